package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// reorderTempBase offsets the temporary negative numbers used during
// the two-phase renumber. Page numbers are always positive outside a
// reorder transaction, so the temp range can never collide.
const reorderTempBase = 1000

// InsertPosition says which side of the reference page the new page
// lands on.
type InsertPosition string

const (
	InsertBefore InsertPosition = "before"
	InsertAfter  InsertPosition = "after"
)

func (p InsertPosition) Valid() bool {
	return p == InsertBefore || p == InsertAfter
}

// insertedPageContent is the generation contract for a new page.
type insertedPageContent struct {
	Text               string   `json:"text"`
	IllustrationPrompt string   `json:"illustrationPrompt"`
	CharactersInScene  []string `json:"charactersInScene"`
}

// SequenceManager owns every operation that changes the set or order of
// a story's pages. All of them preserve two properties: page numbers
// are unique within a story, and they form the contiguous run 1..N.
type SequenceManager struct {
	stories    repository.StoryRepository
	pages      repository.PageRepository
	characters repository.CharacterRepository
	db         repository.DBTX
	tx         repository.TxManager
	generator  ai.Generator
	images     ai.ImageGenerator
	retry      RetryPolicy
	logger     *zap.Logger
}

func NewSequenceManager(stories repository.StoryRepository, pages repository.PageRepository, characters repository.CharacterRepository, db repository.DBTX, tx repository.TxManager, generator ai.Generator, images ai.ImageGenerator, retry RetryPolicy, logger *zap.Logger) *SequenceManager {
	return &SequenceManager{
		stories:    stories,
		pages:      pages,
		characters: characters,
		db:         db,
		tx:         tx,
		generator:  generator,
		images:     images,
		retry:      retry,
		logger:     logger.Named("SequenceManager"),
	}
}

// InsertPage is the owner-checked entry point for Insert.
func (s *SequenceManager) InsertPage(ctx context.Context, storyID uuid.UUID, userID string, position InsertPosition, refNumber int) (*models.Page, int, error) {
	story, err := s.stories.GetForUser(ctx, s.db, storyID, userID)
	if err != nil {
		return nil, 0, err
	}
	child, err := s.characters.GetByID(ctx, s.db, story.ChildID)
	if err != nil {
		return nil, 0, err
	}

	page, err := s.Insert(ctx, story, position, refNumber, StoryContext(story, child))
	if err != nil {
		return nil, 0, err
	}
	pages, err := s.pages.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return page, 0, nil
	}
	return page, len(pages), nil
}

// DeletePage is the owner-checked entry point for Delete.
func (s *SequenceManager) DeletePage(ctx context.Context, storyID uuid.UUID, userID string, pageNumber int) (int, error) {
	if _, err := s.stories.GetForUser(ctx, s.db, storyID, userID); err != nil {
		return 0, err
	}
	return s.Delete(ctx, storyID, pageNumber)
}

// ReorderPages is the owner-checked entry point for Reorder.
func (s *SequenceManager) ReorderPages(ctx context.Context, storyID uuid.UUID, userID string, order []uuid.UUID) error {
	if _, err := s.stories.GetForUser(ctx, s.db, storyID, userID); err != nil {
		return err
	}
	return s.Reorder(ctx, storyID, order)
}

// Insert generates a new page and slots it before or after the
// reference page. Generation runs outside the transaction so a slow or
// failed model call never holds row locks; the shift-and-create runs
// inside one so a mid-shift failure rolls the numbering back intact.
//
// Pages at or above the target number shift up in descending order,
// which keeps the unique constraint satisfied at every intermediate
// step.
func (s *SequenceManager) Insert(ctx context.Context, story *models.Story, position InsertPosition, refNumber int, storyCtx ai.StoryContext) (*models.Page, error) {
	if !position.Valid() {
		return nil, fmt.Errorf("%w: position must be %q or %q", models.ErrInvalidInput, InsertBefore, InsertAfter)
	}

	pages, err := s.pages.ListByStory(ctx, s.db, story.ID)
	if err != nil {
		return nil, err
	}
	if findByNumber(pages, refNumber) == nil {
		return nil, models.ErrPageNotFound
	}

	target := refNumber
	if position == InsertAfter {
		target = refNumber + 1
	}

	var prev, next *ai.PageContext
	if p := findByNumber(pages, target-1); p != nil {
		pc := pageContext(p)
		prev = &pc
	}
	if p := findByNumber(pages, target); p != nil {
		pc := pageContext(p)
		next = &pc
	}

	s.logger.Info("Inserting page",
		zap.String("storyID", story.ID.String()),
		zap.String("position", string(position)),
		zap.Int("refNumber", refNumber),
		zap.Int("target", target))

	content, err := s.generateInsertedPage(ctx, storyCtx, prev, next)
	if err != nil {
		return nil, err
	}

	enhanced := ai.EnhanceIllustrationPrompt(content.IllustrationPrompt,
		storyCtx.ChildName, storyCtx.ChildAppearance, content.Text)
	var illustrationURL *string
	if url, err := generateWithRetry(ctx, s.images, s.retry, enhanced, content.IllustrationPrompt, s.logger); err != nil {
		// A page without an illustration is still a valid page; the
		// illustration can be regenerated later.
		s.logger.Warn("Illustration generation failed for inserted page", zap.Error(err))
	} else {
		illustrationURL = &url
	}

	characters := content.CharactersInScene
	if len(characters) == 0 {
		characters = []string{storyCtx.ChildName}
	}

	newPage := &models.Page{
		StoryID:            story.ID,
		PageNumber:         target,
		Text:               content.Text,
		IllustrationPrompt: content.IllustrationPrompt,
		IllustrationURL:    illustrationURL,
		CharactersInScene:  characters,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx repository.DBTX) error {
		toShift := make([]models.Page, 0, len(pages))
		for _, p := range pages {
			if p.PageNumber >= target {
				toShift = append(toShift, p)
			}
		}
		sort.Slice(toShift, func(i, j int) bool {
			return toShift[i].PageNumber > toShift[j].PageNumber
		})
		for _, p := range toShift {
			if err := s.pages.UpdateNumber(ctx, tx, p.ID, p.PageNumber+1); err != nil {
				return fmt.Errorf("failed to shift page %d: %w", p.PageNumber, err)
			}
		}
		return s.pages.Create(ctx, tx, newPage)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inserted page",
		zap.String("pageID", newPage.ID.String()), zap.Int("pageNumber", target))
	return newPage, nil
}

func (s *SequenceManager) generateInsertedPage(ctx context.Context, storyCtx ai.StoryContext, prev, next *ai.PageContext) (*insertedPageContent, error) {
	raw, err := s.generator.Invoke(ctx, ai.BuildInsertPagePrompt(storyCtx, prev, next))
	if err != nil {
		return nil, fmt.Errorf("failed to generate page content: %w", err)
	}

	obj := ai.ExtractJSONObject(raw)
	if obj == "" {
		return nil, fmt.Errorf("%w: generated page content carried no JSON", models.ErrInternalServer)
	}

	var content insertedPageContent
	if err := json.Unmarshal([]byte(obj), &content); err != nil {
		return nil, fmt.Errorf("failed to parse generated page content: %w", err)
	}
	content.Text = strings.TrimSpace(content.Text)
	content.IllustrationPrompt = strings.TrimSpace(content.IllustrationPrompt)
	if content.Text == "" || content.IllustrationPrompt == "" {
		return nil, fmt.Errorf("%w: generated page content is incomplete", models.ErrInternalServer)
	}
	return &content, nil
}

// Delete removes a page and closes the gap. Pages above the deleted
// number decrement in ascending order; with the deleted number free,
// every intermediate state is collision free. A story always keeps at
// least one page.
func (s *SequenceManager) Delete(ctx context.Context, storyID uuid.UUID, pageNumber int) (int, error) {
	pages, err := s.pages.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return 0, err
	}
	if len(pages) <= 1 {
		return 0, models.ErrLastPage
	}
	victim := findByNumber(pages, pageNumber)
	if victim == nil {
		return 0, models.ErrPageNotFound
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := s.pages.Delete(ctx, tx, victim.ID); err != nil {
			return err
		}
		toShift := make([]models.Page, 0, len(pages))
		for _, p := range pages {
			if p.PageNumber > pageNumber {
				toShift = append(toShift, p)
			}
		}
		sort.Slice(toShift, func(i, j int) bool {
			return toShift[i].PageNumber < toShift[j].PageNumber
		})
		for _, p := range toShift {
			if err := s.pages.UpdateNumber(ctx, tx, p.ID, p.PageNumber-1); err != nil {
				return fmt.Errorf("failed to renumber page %d: %w", p.PageNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Deleted page",
		zap.String("storyID", storyID.String()),
		zap.Int("pageNumber", pageNumber),
		zap.Int("remainingPages", len(pages)-1))
	return len(pages) - 1, nil
}

// Reorder renumbers the story's pages to match order, a list of page
// IDs whose position is the new page number. The IDs must be exactly
// the story's current page set.
//
// Renumbering happens in two phases inside one transaction: every page
// first moves to a unique temporary negative number, then each takes
// its final number. No intermediate state can collide with either the
// old or the new numbering.
func (s *SequenceManager) Reorder(ctx context.Context, storyID uuid.UUID, order []uuid.UUID) error {
	pages, err := s.pages.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return err
	}

	existing := make(map[uuid.UUID]struct{}, len(pages))
	for _, p := range pages {
		existing[p.ID] = struct{}{}
	}
	if len(order) != len(pages) {
		return models.ErrPageSetMismatch
	}
	seen := make(map[uuid.UUID]struct{}, len(order))
	for _, id := range order {
		if _, ok := existing[id]; !ok {
			return models.ErrPageSetMismatch
		}
		if _, dup := seen[id]; dup {
			return models.ErrPageSetMismatch
		}
		seen[id] = struct{}{}
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx repository.DBTX) error {
		for i, p := range pages {
			if err := s.pages.UpdateNumber(ctx, tx, p.ID, -(i + reorderTempBase)); err != nil {
				return fmt.Errorf("failed to park page %d: %w", p.PageNumber, err)
			}
		}
		for i, id := range order {
			if err := s.pages.UpdateNumber(ctx, tx, id, i+1); err != nil {
				return fmt.Errorf("failed to assign page number %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Reordered pages",
		zap.String("storyID", storyID.String()), zap.Int("pageCount", len(order)))
	return nil
}

func findByNumber(pages []models.Page, number int) *models.Page {
	for i := range pages {
		if pages[i].PageNumber == number {
			return &pages[i]
		}
	}
	return nil
}
