package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tome-labs/tome/internal/domain"
)

// ProgressRepositoryInterface defines the repository interface for learning progress persistence
type ProgressRepositoryInterface interface {
	CreateItem(ctx context.Context, item *domain.LearningItem) error
	GetItem(ctx context.Context, id string) (*domain.LearningItem, error)
	ListItems(ctx context.Context) ([]*domain.LearningItem, error)
	DeleteItem(ctx context.Context, id string) error
	CreateChapter(ctx context.Context, c *domain.Chapter) error
	GetChapter(ctx context.Context, id string) (*domain.Chapter, error)
	ListChapters(ctx context.Context, itemID string) ([]*domain.Chapter, error)
	UpdateChapterStatus(ctx context.Context, id string, status domain.ChapterStatus) error
	RecountCompleted(ctx context.Context, itemID string) error
}

// ProgressService tracks books and courses through their chapters.
type ProgressService struct {
	repo    ProgressRepositoryInterface
	uuidGen UUIDGenerator
}

func NewProgressService(repo ProgressRepositoryInterface) *ProgressService {
	return &ProgressService{repo: repo, uuidGen: &DefaultUUIDGenerator{}}
}

// NewProgressServiceWithUUIDGen creates a ProgressService with a custom
// UUID generator (for testing).
func NewProgressServiceWithUUIDGen(repo ProgressRepositoryInterface, uuidGen UUIDGenerator) *ProgressService {
	return &ProgressService{repo: repo, uuidGen: uuidGen}
}

// CreateItemInput describes a new learning item. ChapterTitles may be
// empty; chapters are then numbered from TotalChapters.
type CreateItemInput struct {
	Title         string
	Author        string
	Type          domain.LearningType
	TotalChapters int
	ChapterTitles []string
}

// CreateItem registers a learning item with its chapters, all pending.
func (s *ProgressService) CreateItem(ctx context.Context, input CreateItemInput) (*domain.LearningItem, error) {
	now := time.Now().UTC()

	total := input.TotalChapters
	if len(input.ChapterTitles) > 0 {
		total = len(input.ChapterTitles)
	}
	if total <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "learning item needs at least one chapter")
	}

	item := &domain.LearningItem{
		ID:            s.uuidGen.NewString(),
		Title:         input.Title,
		Author:        input.Author,
		Type:          input.Type,
		TotalChapters: total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := domain.ValidateLearningItem(item); err != nil {
		return nil, err
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	for i := 0; i < total; i++ {
		title := fmt.Sprintf("Chapter %d", i+1)
		if i < len(input.ChapterTitles) && input.ChapterTitles[i] != "" {
			title = input.ChapterTitles[i]
		}
		chapter := &domain.Chapter{
			ID:        s.uuidGen.NewString(),
			ItemID:    item.ID,
			Index:     i + 1,
			Title:     title,
			Status:    domain.ChapterStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateChapter(ctx, chapter); err != nil {
			return nil, err
		}
	}

	return item, nil
}

// GetItem returns a learning item with its chapters.
func (s *ProgressService) GetItem(ctx context.Context, id string) (*domain.LearningItem, []*domain.Chapter, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	chapters, err := s.repo.ListChapters(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return item, chapters, nil
}

// ListItems returns all learning items, most recently updated first.
func (s *ProgressService) ListItems(ctx context.Context) ([]*domain.LearningItem, error) {
	return s.repo.ListItems(ctx)
}

// DeleteItem removes a learning item and its chapters.
func (s *ProgressService) DeleteItem(ctx context.Context, id string) error {
	return s.repo.DeleteItem(ctx, id)
}

// SetChapterStatus updates one chapter and refreshes the item's completed
// counter.
func (s *ProgressService) SetChapterStatus(ctx context.Context, chapterID string, status domain.ChapterStatus) (*domain.Chapter, error) {
	if err := domain.ValidateChapterStatus(status); err != nil {
		return nil, err
	}

	chapter, err := s.repo.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateChapterStatus(ctx, chapterID, status); err != nil {
		return nil, err
	}
	if err := s.repo.RecountCompleted(ctx, chapter.ItemID); err != nil {
		return nil, err
	}

	chapter.Status = status
	return chapter, nil
}
