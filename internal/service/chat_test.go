package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/models"
)

type chatFixture struct {
	service *ChatService
	store   *memStore
	story   *models.Story
	page    *models.Page
	gen     *fakeGenerator
	images  *fakeImageGenerator
}

func newChatFixture(t *testing.T, gen *fakeGenerator) *chatFixture {
	t.Helper()
	store := newMemStore()
	child := store.addChild(&models.Child{UserID: "user-1", Name: "Mia", Age: 6, AppearanceDescription: "curly brown hair"})
	story := store.addStory(&models.Story{UserID: "user-1", ChildID: child.ID, FearDescription: "thunderstorms"})
	page := store.addPage(story.ID, 1, "Mia heard the thunder rumble.", "Mia by the window")

	pageRepo := &fakePageRepo{store: store}
	characterRepo := &fakeCharacterRepo{store: store}
	images := &fakeImageGenerator{}
	nop := zap.NewNop()

	svc := NewChatService(
		&fakeStoryRepo{store: store},
		pageRepo,
		characterRepo,
		&fakeConversationRepo{store: store},
		nil,
		NewIntentClassifier(gen, nop),
		NewTextMutator(pageRepo, nil, gen, nop),
		NewImageMutator(pageRepo, nil, gen, images, DefaultImageRetryPolicy(), nop),
		NewGlobalMutator(characterRepo, pageRepo, nil, gen, nop),
		nop)

	return &chatFixture{service: svc, store: store, story: story, page: page, gen: gen, images: images}
}

func TestChatForceUpdateTypeBypassesClassification(t *testing.T) {
	// Only one scripted response: the text rewrite. A classification
	// call would consume it first and fail the test.
	gen := &fakeGenerator{responses: []string{"Mia danced in the rain, laughing."}}
	f := newChatFixture(t, gen)

	result, err := f.service.Process(context.Background(), ChatRequest{
		StoryID:         f.story.ID,
		UserID:          "user-1",
		PageNumber:      1,
		Message:         "Make it joyful",
		ForceUpdateType: models.UpdateTypeText,
	})

	require.NoError(t, err)
	assert.True(t, result.Updated)
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "Make it joyful")
	assert.Equal(t, "Mia danced in the rain, laughing.", f.store.pages[f.page.ID].Text)
}

func TestChatClassifiesThenMutatesText(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"updateType": "text", "instruction": "make it more exciting"}`,
		"Lightning flashed and Mia cheered!",
	}}
	f := newChatFixture(t, gen)

	result, err := f.service.Process(context.Background(), ChatRequest{
		StoryID: f.story.ID, UserID: "user-1", PageNumber: 1, Message: "Make it more exciting",
	})

	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, "Lightning flashed and Mia cheered!", f.store.pages[f.page.ID].Text)
}

func TestChatBothCombinesResponsesAndOrsUpdated(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"updateType": "both", "textInstruction": "add excitement", "imageInstruction": "add a rainbow"}`,
		"Mia cheered as colors filled the sky!",
		"Mia under a bright rainbow",
	}}
	f := newChatFixture(t, gen)

	result, err := f.service.Process(context.Background(), ChatRequest{
		StoryID: f.story.ID, UserID: "user-1", PageNumber: 1,
		Message: "Make text more exciting and add rainbow to image",
	})

	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, "Mia cheered as colors filled the sky!", f.store.pages[f.page.ID].Text)
	require.NotNil(t, f.store.pages[f.page.ID].IllustrationURL)
}

func TestChatUnclearReturnsAdvisoryWithoutMutation(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"updateType": "unclear"}`}}
	f := newChatFixture(t, gen)
	originalText := f.store.pages[f.page.ID].Text

	result, err := f.service.Process(context.Background(), ChatRequest{
		StoryID: f.story.ID, UserID: "user-1", PageNumber: 1, Message: "What's the weather like?",
	})

	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Equal(t, unclearHelpResponse, result.Response)
	assert.Equal(t, originalText, f.store.pages[f.page.ID].Text)
}

func TestChatRecordsConversationExchange(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"Mia felt brave."}}
	f := newChatFixture(t, gen)

	result, err := f.service.Process(context.Background(), ChatRequest{
		StoryID: f.story.ID, UserID: "user-1", PageNumber: 1,
		Message: "Make her brave", ForceUpdateType: models.UpdateTypeText,
	})
	require.NoError(t, err)

	msgs := f.store.convos[convoKey(f.story.ID, 1)]
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Make her brave", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, result.Response, msgs[1].Content)
}

func TestChatRejectsForeignStory(t *testing.T) {
	f := newChatFixture(t, &fakeGenerator{})

	_, err := f.service.Process(context.Background(), ChatRequest{
		StoryID: f.story.ID, UserID: "someone-else", PageNumber: 1, Message: "hi",
	})

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChatRejectsUnknownPage(t *testing.T) {
	f := newChatFixture(t, &fakeGenerator{})

	_, err := f.service.Process(context.Background(), ChatRequest{
		StoryID: f.story.ID, UserID: "user-1", PageNumber: 9, Message: "hi",
	})

	assert.ErrorIs(t, err, models.ErrPageNotFound)
}

func TestChatModelFailureStillAnswers(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("model down"), errors.New("model down")}}
	f := newChatFixture(t, gen)

	result, err := f.service.Process(context.Background(), ChatRequest{
		StoryID: f.story.ID, UserID: "user-1", PageNumber: 1, Message: "Make it more exciting",
	})

	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.NotEmpty(t, result.Response, "the chat contract always returns prose")
}
