package domain

import "time"

// LearningType distinguishes the kinds of tracked learning material
type LearningType string

const (
	LearningTypeBook   LearningType = "book"
	LearningTypeCourse LearningType = "course"
)

// ChapterStatus tracks reading progress for one chapter
type ChapterStatus string

const (
	ChapterStatusPending ChapterStatus = "pending"
	ChapterStatusReading ChapterStatus = "reading"
	ChapterStatusDone    ChapterStatus = "done"
)

// LearningItem is a book or course whose reading progress is tracked.
type LearningItem struct {
	ID                string
	Title             string
	Author            string
	Type              LearningType
	TotalChapters     int
	CompletedChapters int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Chapter is one unit of a learning item, ordered by Index.
type Chapter struct {
	ID        string
	ItemID    string
	Index     int
	Title     string
	Status    ChapterStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateLearningItem checks required fields before persistence.
func ValidateLearningItem(item *LearningItem) error {
	if item.ID == "" {
		return NewDomainError(ErrCodeValidation, "learning item id is required")
	}
	if item.Title == "" {
		return NewDomainError(ErrCodeValidation, "learning item title is required")
	}
	if item.Type != LearningTypeBook && item.Type != LearningTypeCourse {
		return ErrInvalidLearningType
	}
	return nil
}

// ValidateChapterStatus checks a status value supplied by a caller.
func ValidateChapterStatus(status ChapterStatus) error {
	switch status {
	case ChapterStatusPending, ChapterStatusReading, ChapterStatusDone:
		return nil
	default:
		return ErrInvalidChapterStatus
	}
}
