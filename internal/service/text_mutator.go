package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// MutationResult is the conversational outcome of an edit attempt. The
// response is always user-facing prose; Updated reports whether any
// page state actually changed.
type MutationResult struct {
	Response string
	Updated  bool
}

// corruptedTextMarker is the stringified-object artifact older clients
// wrote into page text. A page carrying it is always overwritten, even
// when the rewrite produces identical text.
const corruptedTextMarker = "[object Object]"

// literalTextPattern captures exact replacement requests. Case
// insensitive, and the (?s) flag lets the literal span newlines.
var literalTextPattern = regexp.MustCompile(`(?is)^change the text to:\s*(.*)`)

// TextMutator rewrites a single page's text, either literally from the
// instruction or generatively through the model.
type TextMutator struct {
	pages     repository.PageRepository
	db        repository.DBTX
	generator ai.Generator
	logger    *zap.Logger
}

func NewTextMutator(pages repository.PageRepository, db repository.DBTX, generator ai.Generator, logger *zap.Logger) *TextMutator {
	return &TextMutator{
		pages:     pages,
		db:        db,
		generator: generator,
		logger:    logger.Named("TextMutator"),
	}
}

// Mutate applies instruction to the page. A "change the text to:"
// prefix bypasses the model entirely and stores the literal remainder.
func (m *TextMutator) Mutate(ctx context.Context, page *models.Page, instruction string, story ai.StoryContext) MutationResult {
	if match := literalTextPattern.FindStringSubmatch(instruction); match != nil {
		return m.mutateLiteral(ctx, page, strings.TrimSpace(match[1]))
	}
	return m.mutateGenerative(ctx, page, instruction, story)
}

func (m *TextMutator) mutateLiteral(ctx context.Context, page *models.Page, newText string) MutationResult {
	if newText == "" {
		return MutationResult{
			Response: "Please provide the exact text you want to use after 'Change the text to:'",
		}
	}

	if err := m.pages.UpdateText(ctx, m.db, page.ID, newText); err != nil {
		m.logger.Error("Literal text update failed", zap.Error(err), zap.String("pageID", page.ID.String()))
		return MutationResult{Response: "Sorry, I couldn't save the text update right now."}
	}

	m.logger.Info("Applied literal text replacement",
		zap.String("pageID", page.ID.String()), zap.Int("pageNumber", page.PageNumber))
	return MutationResult{
		Response: fmt.Sprintf("I've updated the page text to exactly what you specified: %q", newText),
		Updated:  true,
	}
}

func (m *TextMutator) mutateGenerative(ctx context.Context, page *models.Page, instruction string, story ai.StoryContext) MutationResult {
	prompt := ai.BuildTextRewritePrompt(instruction, pageContext(page), story)

	raw, err := m.generator.Invoke(ctx, prompt)
	if err != nil {
		m.logger.Warn("Text rewrite call failed", zap.Error(err))
		return MutationResult{
			Response: "I had trouble generating the updated text. Could you try rephrasing your request?",
		}
	}

	newText := ai.ExtractText(raw)
	if newText == "" {
		return MutationResult{
			Response: "I had trouble generating the updated text. Could you try rephrasing your request?",
		}
	}

	// Reload so the comparison sees edits made since page was fetched.
	fresh, err := m.pages.GetByNumber(ctx, m.db, page.StoryID, page.PageNumber)
	currentText := page.Text
	if err == nil {
		currentText = fresh.Text
	}

	if currentText != corruptedTextMarker && newText == currentText {
		return MutationResult{
			Response: "The text is already as you requested, no changes needed.",
		}
	}

	if err := m.pages.UpdateText(ctx, m.db, page.ID, newText); err != nil {
		m.logger.Error("Text update failed", zap.Error(err), zap.String("pageID", page.ID.String()))
		return MutationResult{Response: "Sorry, I couldn't save the text update right now."}
	}

	return MutationResult{
		Response: fmt.Sprintf("I've updated the story text! Changed from: %q to: %q. The page will refresh automatically.", currentText, newText),
		Updated:  true,
	}
}

func pageContext(page *models.Page) ai.PageContext {
	return ai.PageContext{
		Number:             page.PageNumber,
		Text:               page.Text,
		IllustrationPrompt: page.IllustrationPrompt,
		CharactersInScene:  page.CharactersInScene,
	}
}
