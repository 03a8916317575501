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

// holisticUpdate is the per-page rewrite the model returns.
type holisticUpdate struct {
	PageNumber int    `json:"pageNumber"`
	NewText    string `json:"newText"`
}

type holisticResponse struct {
	Pages []holisticUpdate `json:"pages"`
}

// HolisticRewriter rewrites every page of a story in one model call so
// the texts cohere with each other and with the visuals.
type HolisticRewriter struct {
	stories    repository.StoryRepository
	pages      repository.PageRepository
	characters repository.CharacterRepository
	db         repository.DBTX
	tx         repository.TxManager
	generator  ai.Generator
	vision     ai.VisionDescriber
	logger     *zap.Logger
}

func NewHolisticRewriter(stories repository.StoryRepository, pages repository.PageRepository, characters repository.CharacterRepository, db repository.DBTX, tx repository.TxManager, generator ai.Generator, vision ai.VisionDescriber, logger *zap.Logger) *HolisticRewriter {
	return &HolisticRewriter{
		stories:    stories,
		pages:      pages,
		characters: characters,
		db:         db,
		tx:         tx,
		generator:  generator,
		vision:     vision,
		logger:     logger.Named("HolisticRewriter"),
	}
}

// Process is the owner-checked entry point: it loads the story and
// child profile, then runs the rewrite.
func (h *HolisticRewriter) Process(ctx context.Context, storyID uuid.UUID, userID, instruction string) (*MutationResult, error) {
	story, err := h.stories.GetForUser(ctx, h.db, storyID, userID)
	if err != nil {
		return nil, err
	}
	child, err := h.characters.GetByID(ctx, h.db, story.ChildID)
	if err != nil {
		return nil, err
	}
	result := h.Rewrite(ctx, story, instruction, StoryContext(story, child))
	return &result, nil
}

// Rewrite regenerates all page texts per instruction. When any page
// carries a user-uploaded image the rewrite is grounded in vision
// analyses of the actual images; otherwise the stored illustration
// prompts stand in for the visuals. All accepted updates land in a
// single transaction.
func (h *HolisticRewriter) Rewrite(ctx context.Context, story *models.Story, instruction string, storyCtx ai.StoryContext) MutationResult {
	pages, err := h.pages.ListByStory(ctx, h.db, story.ID)
	if err != nil {
		h.logger.Error("Failed to load pages for rewrite", zap.Error(err))
		return MutationResult{Response: "Sorry, I couldn't load the story pages right now."}
	}
	if len(pages) == 0 {
		return MutationResult{Response: "This story has no pages to rewrite yet."}
	}

	hasUploads := false
	for _, p := range pages {
		if p.UserUploadedImageURL != nil && *p.UserUploadedImageURL != "" {
			hasUploads = true
			break
		}
	}

	var prompt string
	if hasUploads {
		h.logger.Info("Uploaded images present, grounding rewrite in vision analysis",
			zap.String("storyID", story.ID.String()))
		prompt = ai.BuildVisionHolisticPrompt(instruction, storyCtx, h.analyzePages(ctx, pages))
	} else {
		contexts := make([]ai.PageContext, len(pages))
		for i := range pages {
			contexts[i] = pageContext(&pages[i])
		}
		prompt = ai.BuildHolisticPrompt(instruction, storyCtx, contexts)
	}

	raw, err := h.generator.Invoke(ctx, prompt)
	if err != nil {
		h.logger.Error("Holistic rewrite call failed", zap.Error(err))
		return MutationResult{Response: "I had trouble rewriting the story. Please try again."}
	}

	updates, ok := parseHolisticResponse(raw)
	if !ok {
		h.logger.Warn("Holistic response unparseable", zap.Int("responseLength", len(raw)))
		return MutationResult{
			Response: "I got a rewrite back, but had trouble understanding the format. Please try again.",
		}
	}

	byNumber := make(map[int]*models.Page, len(pages))
	for i := range pages {
		byNumber[pages[i].PageNumber] = &pages[i]
	}

	updatedCount := 0
	err = h.tx.WithTx(ctx, func(ctx context.Context, tx repository.DBTX) error {
		for _, u := range updates {
			page, known := byNumber[u.PageNumber]
			text := strings.TrimSpace(u.NewText)
			if !known || text == "" {
				// The model sometimes invents page numbers; skip them
				// rather than failing the whole rewrite.
				h.logger.Warn("Skipping rewrite for unknown or empty page",
					zap.Int("pageNumber", u.PageNumber))
				continue
			}
			if err := h.pages.UpdateText(ctx, tx, page.ID, text); err != nil {
				return fmt.Errorf("failed to update page %d: %w", u.PageNumber, err)
			}
			updatedCount++
		}
		return nil
	})
	if err != nil {
		h.logger.Error("Holistic rewrite transaction failed", zap.Error(err))
		return MutationResult{Response: "Sorry, I couldn't save the rewritten story. Please try again."}
	}

	if updatedCount == 0 {
		return MutationResult{
			Response: "I got a rewrite back, but none of it matched the story's pages. Please try again.",
		}
	}

	h.logger.Info("Holistic rewrite applied",
		zap.String("storyID", story.ID.String()), zap.Int("pagesUpdated", updatedCount))
	return MutationResult{
		Response: fmt.Sprintf("I've updated all %d pages! The story now flows cohesively from beginning to end, with each page matching its visual content. The page will refresh automatically to show the changes.", updatedCount),
		Updated:  true,
	}
}

// analyzePages runs each uploaded image through the vision model. A
// failed analysis degrades to a placeholder instead of aborting; pages
// without uploads use their stored illustration prompt.
func (h *HolisticRewriter) analyzePages(ctx context.Context, pages []models.Page) []ai.PageAnalysis {
	analyses := make([]ai.PageAnalysis, 0, len(pages))
	for _, p := range pages {
		analysis := p.IllustrationPrompt
		if analysis == "" {
			analysis = "No visual description available"
		}

		if p.UserUploadedImageURL != nil && *p.UserUploadedImageURL != "" {
			desc, err := h.vision.Describe(ctx, *p.UserUploadedImageURL, ai.BuildPageVisionPrompt())
			if err != nil {
				h.logger.Warn("Vision analysis failed",
					zap.Error(err), zap.Int("pageNumber", p.PageNumber))
				analysis = "Image analysis unavailable"
			} else {
				analysis = desc
			}
		}

		analyses = append(analyses, ai.PageAnalysis{
			Number:      p.PageNumber,
			CurrentText: p.Text,
			Analysis:    analysis,
		})
	}
	return analyses
}

func parseHolisticResponse(raw string) ([]holisticUpdate, bool) {
	obj := ai.ExtractJSONObject(raw)
	if obj == "" {
		return nil, false
	}
	var resp holisticResponse
	if err := json.Unmarshal([]byte(obj), &resp); err != nil || resp.Pages == nil {
		return nil, false
	}
	return resp.Pages, true
}
