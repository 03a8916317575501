package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
)

func testStoryContext() ai.StoryContext {
	return ai.StoryContext{
		Title:           "Mia's Brave Adventure",
		ChildName:       "Mia",
		ChildAge:        6,
		ChildAppearance: "curly brown hair, green rain boots",
		FearDescription: "thunderstorms",
		PageCount:       6,
	}
}

func TestIntentClassifierParsesModelResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"updateType": "image", "instruction": "add a rainbow", "scope": "current_page"}`,
	}}
	c := NewIntentClassifier(gen, zap.NewNop())

	intent := c.Classify(context.Background(), "Add a rainbow to the picture", ai.PageContext{}, testStoryContext())

	assert.Equal(t, models.UpdateTypeImage, intent.UpdateType)
	assert.Equal(t, "add a rainbow", intent.Instruction)
}

func TestIntentClassifierDefaultsMissingFields(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"updateType": "text"}`}}
	c := NewIntentClassifier(gen, zap.NewNop())

	intent := c.Classify(context.Background(), "Make it more exciting", ai.PageContext{}, testStoryContext())

	assert.Equal(t, models.UpdateTypeText, intent.UpdateType)
	assert.Equal(t, "Make it more exciting", intent.Instruction)
	assert.Equal(t, "current_page", intent.Scope)
}

func TestIntentClassifierFallbackOnModelFailure(t *testing.T) {
	testCases := []struct {
		message  string
		expected models.UpdateType
	}{
		{"Make it more exciting", models.UpdateTypeText},
		{"Add some action", models.UpdateTypeText},
		{"Add a rainbow to the picture", models.UpdateTypeImage},
		{"Change the illustration", models.UpdateTypeImage},
		{"Use watercolor style", models.UpdateTypeImage},
		{"Make the colors brighter", models.UpdateTypeImage},
	}

	for _, tc := range testCases {
		t.Run(tc.message, func(t *testing.T) {
			gen := &fakeGenerator{errs: []error{errors.New("model unavailable")}}
			c := NewIntentClassifier(gen, zap.NewNop())

			intent := c.Classify(context.Background(), tc.message, ai.PageContext{}, testStoryContext())

			assert.Equal(t, tc.expected, intent.UpdateType)
			assert.Equal(t, tc.message, intent.Instruction)
			assert.Equal(t, "current_page", intent.Scope)
		})
	}
}

func TestIntentClassifierFallbackOnGarbageResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"I think you want to edit something?"}}
	c := NewIntentClassifier(gen, zap.NewNop())

	intent := c.Classify(context.Background(), "Make it scarier", ai.PageContext{}, testStoryContext())

	assert.Equal(t, models.UpdateTypeText, intent.UpdateType)
}

func TestIntentClassifierFallbackOnInvalidUpdateType(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"updateType": "rewrite-everything"}`}}
	c := NewIntentClassifier(gen, zap.NewNop())

	intent := c.Classify(context.Background(), "Update the drawing", ai.PageContext{}, testStoryContext())

	assert.Equal(t, models.UpdateTypeImage, intent.UpdateType)
}
