package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// GlobalMutator applies a permanent character appearance change and
// propagates it into every illustration prompt that embeds the old
// appearance.
type GlobalMutator struct {
	characters repository.CharacterRepository
	pages      repository.PageRepository
	db         repository.DBTX
	generator  ai.Generator
	logger     *zap.Logger
}

func NewGlobalMutator(characters repository.CharacterRepository, pages repository.PageRepository, db repository.DBTX, generator ai.Generator, logger *zap.Logger) *GlobalMutator {
	return &GlobalMutator{
		characters: characters,
		pages:      pages,
		db:         db,
		generator:  generator,
		logger:     logger.Named("GlobalMutator"),
	}
}

// Mutate rewrites the child's appearance description, then rewrites
// page prompts concurrently. The appearance rewrite is the gate: if it
// fails, no page is touched. Prompt propagation is best effort; a page
// whose prompt does not contain the old appearance verbatim is left
// alone rather than guessed at.
func (m *GlobalMutator) Mutate(ctx context.Context, child *models.Child, storyID uuid.UUID, instruction string) MutationResult {
	prompt := ai.BuildAppearanceRewritePrompt(instruction, child.Name, child.AppearanceDescription)

	raw, err := m.generator.Invoke(ctx, prompt)
	if err != nil {
		m.logger.Warn("Appearance rewrite failed", zap.Error(err))
		return MutationResult{Response: "I had trouble understanding the global change you wanted."}
	}

	newAppearance := ai.ExtractText(raw)
	if newAppearance == "" || newAppearance == child.AppearanceDescription {
		return MutationResult{Response: "I had trouble understanding the global change you wanted."}
	}

	oldAppearance := child.AppearanceDescription
	if err := m.characters.UpdateAppearance(ctx, m.db, child.ID, newAppearance); err != nil {
		m.logger.Error("Failed to update appearance", zap.Error(err), zap.String("childID", child.ID.String()))
		return MutationResult{Response: "Sorry, I couldn't make that global change right now."}
	}
	child.AppearanceDescription = newAppearance

	pages, err := m.pages.ListByStory(ctx, m.db, storyID)
	if err != nil {
		m.logger.Error("Failed to list pages for propagation", zap.Error(err))
		return MutationResult{
			Response: fmt.Sprintf("I've updated %s's appearance, but couldn't refresh the page illustrations.", child.Name),
			Updated:  true,
		}
	}

	var propagated atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, page := range pages {
		page := page
		if !strings.Contains(page.IllustrationPrompt, oldAppearance) {
			continue
		}
		updated := strings.ReplaceAll(page.IllustrationPrompt, oldAppearance, newAppearance)
		g.Go(func() error {
			if err := m.pages.UpdatePrompt(gctx, m.db, page.ID, updated); err != nil {
				m.logger.Warn("Failed to propagate appearance to page",
					zap.Error(err), zap.Int("pageNumber", page.PageNumber))
				return nil
			}
			propagated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	m.logger.Info("Propagated appearance change",
		zap.String("childID", child.ID.String()),
		zap.Int32("pagesUpdated", propagated.Load()))

	return MutationResult{
		Response: fmt.Sprintf("I've updated %s's appearance across all pages! The illustrations will be regenerated.", child.Name),
		Updated:  true,
	}
}
