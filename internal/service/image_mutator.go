package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// styleVocabulary marks edits that change the artistic style rather
// than the scene content. Style changes get an emphasis suffix so the
// enhancement boilerplate does not override them.
var styleVocabulary = []string{
	"style", "watercolor", "cartoon", "sketch", "painting", "anime",
	"realistic", "pixel", "3d", "comic", "pastel", "oil painting",
	"crayon", "hand-drawn", "minimalist", "vintage",
}

// ImageMutator regenerates a page's illustration per an instruction.
type ImageMutator struct {
	pages     repository.PageRepository
	db        repository.DBTX
	generator ai.Generator
	images    ai.ImageGenerator
	retry     RetryPolicy
	logger    *zap.Logger
}

func NewImageMutator(pages repository.PageRepository, db repository.DBTX, generator ai.Generator, images ai.ImageGenerator, retry RetryPolicy, logger *zap.Logger) *ImageMutator {
	return &ImageMutator{
		pages:     pages,
		db:        db,
		generator: generator,
		images:    images,
		retry:     retry,
		logger:    logger.Named("ImageMutator"),
	}
}

// Mutate rewrites the illustration prompt, generates a new image and
// stores prompt and URL together. The prompt is only persisted when the
// image succeeds, so a failed generation never leaves the page with a
// prompt that does not match its illustration.
func (m *ImageMutator) Mutate(ctx context.Context, page *models.Page, instruction string, story ai.StoryContext) MutationResult {
	rewritePrompt := ai.BuildImagePromptRewrite(instruction, pageContext(page), story)

	raw, err := m.generator.Invoke(ctx, rewritePrompt)
	if err != nil {
		m.logger.Warn("Illustration prompt rewrite failed", zap.Error(err))
		return MutationResult{Response: "I had trouble understanding how to update the illustration."}
	}

	newPrompt := ai.ExtractText(raw)
	if newPrompt == "" {
		return MutationResult{Response: "I had trouble understanding how to update the illustration."}
	}

	enhanced := ai.EnhanceIllustrationPrompt(newPrompt, story.ChildName, story.ChildAppearance, page.Text)
	if isStyleChange(instruction, page.IllustrationPrompt, newPrompt) {
		m.logger.Info("Style change detected, emphasizing requested style",
			zap.Int("pageNumber", page.PageNumber))
		enhanced += ai.StyleEmphasisSuffix(instruction)
	}

	url, err := generateWithRetry(ctx, m.images, m.retry, enhanced, newPrompt, m.logger)
	if err != nil {
		m.logger.Error("Image generation failed after retries", zap.Error(err),
			zap.String("pageID", page.ID.String()))
		return MutationResult{
			Response: "I couldn't generate the new image. Please try again in a moment.",
		}
	}

	if err := m.pages.UpdateIllustration(ctx, m.db, page.ID, newPrompt, url); err != nil {
		m.logger.Error("Failed to store new illustration", zap.Error(err),
			zap.String("pageID", page.ID.String()))
		return MutationResult{Response: "Sorry, I couldn't save the new illustration right now."}
	}

	return MutationResult{
		Response: "I've updated the illustration for this page! The new image should appear shortly.",
		Updated:  true,
	}
}

// isStyleChange reports whether the edit touches artistic style: the
// instruction names a style term, or a style term appears on one side
// of the prompt rewrite but not the other.
func isStyleChange(instruction, oldPrompt, newPrompt string) bool {
	instructionLower := strings.ToLower(instruction)
	oldLower := strings.ToLower(oldPrompt)
	newLower := strings.ToLower(newPrompt)

	for _, term := range styleVocabulary {
		if strings.Contains(instructionLower, term) {
			return true
		}
		if strings.Contains(oldLower, term) != strings.Contains(newLower, term) {
			return true
		}
	}
	return false
}
