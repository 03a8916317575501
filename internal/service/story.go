package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// generatedStory is the generation contract for a full story.
type generatedStory struct {
	Title string `json:"title"`
	Pages []struct {
		PageNumber         int      `json:"page_number"`
		Text               string   `json:"text"`
		IllustrationPrompt string   `json:"illustration_prompt"`
		CharactersInScene  []string `json:"characters_in_scene"`
	} `json:"pages"`
}

// StoryService owns the story lifecycle: creation with content
// generation, retrieval, listing and deletion.
type StoryService struct {
	stories    repository.StoryRepository
	pages      repository.PageRepository
	characters repository.CharacterRepository
	db         repository.DBTX
	tx         repository.TxManager
	generator  ai.Generator
	logger     *zap.Logger
}

func NewStoryService(
	stories repository.StoryRepository,
	pages repository.PageRepository,
	characters repository.CharacterRepository,
	db repository.DBTX,
	tx repository.TxManager,
	generator ai.Generator,
	logger *zap.Logger,
) *StoryService {
	return &StoryService{
		stories:    stories,
		pages:      pages,
		characters: characters,
		db:         db,
		tx:         tx,
		generator:  generator,
		logger:     logger.Named("StoryService"),
	}
}

// Create makes a new story for a child and generates its content. The
// story record is written with status GENERATING first, then moves to
// COMPLETED or ERROR exactly once depending on how generation went. A
// failed generation leaves a readable error message, never a phantom
// COMPLETED story.
func (s *StoryService) Create(ctx context.Context, userID string, childID uuid.UUID, fearDescription string) (*models.Story, error) {
	if fearDescription == "" {
		return nil, fmt.Errorf("%w: fear description is required", models.ErrInvalidInput)
	}

	child, err := s.characters.GetByID(ctx, s.db, childID)
	if err != nil {
		return nil, err
	}
	if child.UserID != userID {
		return nil, models.ErrNotFound
	}

	story := &models.Story{
		UserID:          userID,
		ChildID:         childID,
		Title:           fmt.Sprintf("%s's Brave Adventure", child.Name),
		FearDescription: fearDescription,
		Status:          models.StatusGenerating,
	}
	if err := s.stories.Create(ctx, s.db, story); err != nil {
		return nil, err
	}

	s.logger.Info("Generating story content",
		zap.String("storyID", story.ID.String()), zap.String("childID", childID.String()))

	if err := s.generateContent(ctx, story, child); err != nil {
		s.logger.Error("Story generation failed", zap.Error(err),
			zap.String("storyID", story.ID.String()))
		msg := err.Error()
		if statusErr := s.stories.UpdateStatus(ctx, s.db, story.ID, models.StatusError, &msg); statusErr != nil {
			s.logger.Error("Failed to record generation error", zap.Error(statusErr))
		}
		story.Status = models.StatusError
		story.ErrorMessage = &msg
		return story, nil
	}

	return s.Get(ctx, story.ID, userID)
}

func (s *StoryService) generateContent(ctx context.Context, story *models.Story, child *models.Child) error {
	raw, err := s.generator.Invoke(ctx, ai.BuildStoryPrompt(child, story.FearDescription))
	if err != nil {
		return fmt.Errorf("failed to generate story: %w", err)
	}

	obj := ai.ExtractJSONObject(raw)
	if obj == "" {
		return fmt.Errorf("story generation returned no JSON")
	}
	var generated generatedStory
	if err := json.Unmarshal([]byte(obj), &generated); err != nil {
		return fmt.Errorf("failed to parse story data: %w", err)
	}
	if len(generated.Pages) == 0 {
		return fmt.Errorf("story generation returned no pages")
	}

	// Pages and the COMPLETED flip land together: a reader never sees a
	// completed story with half its pages.
	return s.tx.WithTx(ctx, func(ctx context.Context, tx repository.DBTX) error {
		for i, gp := range generated.Pages {
			number := gp.PageNumber
			if number <= 0 {
				number = i + 1
			}
			characters := gp.CharactersInScene
			if len(characters) == 0 {
				characters = []string{child.Name}
			}
			page := &models.Page{
				StoryID:            story.ID,
				PageNumber:         number,
				Text:               strings.TrimSpace(gp.Text),
				IllustrationPrompt: strings.TrimSpace(gp.IllustrationPrompt),
				CharactersInScene:  characters,
			}
			if err := s.pages.Create(ctx, tx, page); err != nil {
				return fmt.Errorf("failed to create page %d: %w", number, err)
			}
		}

		if title := strings.TrimSpace(generated.Title); title != "" {
			if err := s.stories.UpdateTitle(ctx, tx, story.ID, title); err != nil {
				return err
			}
		}
		return s.stories.UpdateStatus(ctx, tx, story.ID, models.StatusCompleted, nil)
	})
}

// Get loads a story with its pages, ordered by page number.
func (s *StoryService) Get(ctx context.Context, storyID uuid.UUID, userID string) (*models.Story, error) {
	story, err := s.stories.GetForUser(ctx, s.db, storyID, userID)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	story.Pages = pages
	return story, nil
}

// List returns the user's stories without pages.
func (s *StoryService) List(ctx context.Context, userID string) ([]models.Story, error) {
	return s.stories.ListByUser(ctx, s.db, userID)
}

// Delete removes a story. Pages and conversations go with it via the
// schema's cascade.
func (s *StoryService) Delete(ctx context.Context, storyID uuid.UUID, userID string) error {
	if _, err := s.stories.GetForUser(ctx, s.db, storyID, userID); err != nil {
		return err
	}
	return s.stories.Delete(ctx, s.db, storyID)
}
