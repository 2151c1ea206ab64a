//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/testutil"
)

func seedItem(ctx context.Context, t *testing.T, repo *ProgressRepository, chapters int) *domain.LearningItem {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &domain.LearningItem{
		ID:            uuid.NewString(),
		Title:         "The Go Programming Language",
		Author:        "Donovan & Kernighan",
		Type:          domain.LearningTypeBook,
		TotalChapters: chapters,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.CreateItem(ctx, item))

	for i := 1; i <= chapters; i++ {
		require.NoError(t, repo.CreateChapter(ctx, &domain.Chapter{
			ID:        uuid.NewString(),
			ItemID:    item.ID,
			Index:     i,
			Title:     "Chapter",
			Status:    domain.ChapterStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}
	return item
}

func TestProgressRepository_ItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProgressRepository(pool)

	item := seedItem(ctx, t, repo, 3)

	got, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)
	assert.Equal(t, "Donovan & Kernighan", got.Author)
	assert.Equal(t, 3, got.TotalChapters)

	chapters, err := repo.ListChapters(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	assert.Equal(t, 1, chapters[0].Index)
	assert.Equal(t, 3, chapters[2].Index)

	_, err = repo.GetItem(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrLearningItemNotFound)
}

func TestProgressRepository_RecountCompleted(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProgressRepository(pool)

	item := seedItem(ctx, t, repo, 3)

	chapters, err := repo.ListChapters(ctx, item.ID)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateChapterStatus(ctx, chapters[0].ID, domain.ChapterStatusDone))
	require.NoError(t, repo.UpdateChapterStatus(ctx, chapters[1].ID, domain.ChapterStatusDone))
	require.NoError(t, repo.RecountCompleted(ctx, item.ID))

	got, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CompletedChapters)

	// reverting a chapter brings the counter back down
	require.NoError(t, repo.UpdateChapterStatus(ctx, chapters[1].ID, domain.ChapterStatusReading))
	require.NoError(t, repo.RecountCompleted(ctx, item.ID))

	got, err = repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedChapters)
}

func TestProgressRepository_DeleteItemCascadesChapters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProgressRepository(pool)

	item := seedItem(ctx, t, repo, 2)
	require.NoError(t, repo.DeleteItem(ctx, item.ID))

	chapters, err := repo.ListChapters(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, chapters)

	assert.ErrorIs(t, repo.DeleteItem(ctx, item.ID), domain.ErrLearningItemNotFound)
}

func TestProgressRepository_UpdateChapterStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProgressRepository(pool)

	err := repo.UpdateChapterStatus(ctx, uuid.NewString(), domain.ChapterStatusDone)
	assert.ErrorIs(t, err, domain.ErrChapterNotFound)
}
