package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// PageResult reports the outcome of one page in a batch illustration
// pass.
type PageResult struct {
	PageNumber int    `json:"page"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// IllustrationSummary aggregates a batch pass.
type IllustrationSummary struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []PageResult `json:"results"`
}

// IllustrationService generates illustrations for every page of a
// story. Pages are processed sequentially behind a rate limiter so a
// six-page batch does not burst the image API.
type IllustrationService struct {
	stories    repository.StoryRepository
	pages      repository.PageRepository
	characters repository.CharacterRepository
	db         repository.DBTX
	images     ai.ImageGenerator
	retry      RetryPolicy
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewIllustrationService(
	stories repository.StoryRepository,
	pages repository.PageRepository,
	characters repository.CharacterRepository,
	db repository.DBTX,
	images ai.ImageGenerator,
	retry RetryPolicy,
	interval time.Duration,
	logger *zap.Logger,
) *IllustrationService {
	if interval <= 0 {
		interval = time.Second
	}
	return &IllustrationService{
		stories:    stories,
		pages:      pages,
		characters: characters,
		db:         db,
		images:     images,
		retry:      retry,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		logger:     logger.Named("IllustrationService"),
	}
}

// GenerateAll runs an illustration pass over the whole story. A failed
// page is recorded and the pass moves on; one bad prompt never blocks
// the rest of the book.
func (s *IllustrationService) GenerateAll(ctx context.Context, storyID uuid.UUID, userID string) (*IllustrationSummary, error) {
	story, err := s.stories.GetForUser(ctx, s.db, storyID, userID)
	if err != nil {
		return nil, err
	}
	child, err := s.characters.GetByID(ctx, s.db, story.ChildID)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting illustration pass",
		zap.String("storyID", storyID.String()), zap.Int("pageCount", len(pages)))

	summary := &IllustrationSummary{Total: len(pages)}
	for _, page := range pages {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result := PageResult{PageNumber: page.PageNumber}
		enhanced := ai.EnhanceIllustrationPrompt(page.IllustrationPrompt,
			child.Name, child.AppearanceDescription, page.Text)

		url, err := generateWithRetry(ctx, s.images, s.retry, enhanced, page.IllustrationPrompt, s.logger)
		if err != nil {
			s.logger.Warn("Illustration failed",
				zap.Error(err), zap.Int("pageNumber", page.PageNumber))
			result.Error = err.Error()
		} else if err := s.pages.UpdateIllustrationURL(ctx, s.db, page.ID, url); err != nil {
			s.logger.Error("Failed to store illustration URL",
				zap.Error(err), zap.Int("pageNumber", page.PageNumber))
			result.Error = "failed to store illustration"
		} else {
			result.Success = true
		}

		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	s.logger.Info("Illustration pass complete",
		zap.String("storyID", storyID.String()),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed))
	return summary, nil
}
