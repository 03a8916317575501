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

type holisticFixture struct {
	rewriter *HolisticRewriter
	store    *memStore
	story    *models.Story
	gen      *fakeGenerator
	vision   *fakeVision
}

func newHolisticFixture(t *testing.T, gen *fakeGenerator, pageCount int) *holisticFixture {
	t.Helper()
	store := newMemStore()
	child := store.addChild(&models.Child{UserID: "user-1", Name: "Mia", Age: 6})
	story := store.addStory(&models.Story{UserID: "user-1", ChildID: child.ID, FearDescription: "thunderstorms"})
	for i := 1; i <= pageCount; i++ {
		store.addPage(story.ID, i, "old text", "a stormy scene")
	}

	vision := &fakeVision{description: "Mia smiling on a sunny porch"}
	rewriter := NewHolisticRewriter(
		&fakeStoryRepo{store: store},
		&fakePageRepo{store: store},
		&fakeCharacterRepo{store: store},
		nil,
		&fakeTxManager{store: store},
		gen, vision, zap.NewNop())

	return &holisticFixture{rewriter: rewriter, store: store, story: story, gen: gen, vision: vision}
}

func (f *holisticFixture) pageTextByNumber(t *testing.T, number int) string {
	t.Helper()
	for _, p := range f.store.pages {
		if p.PageNumber == number {
			return p.Text
		}
	}
	t.Fatalf("no page %d", number)
	return ""
}

func TestHolisticRewriteUpdatesAllPages(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"pages": [
			{"pageNumber": 1, "newText": "New page one."},
			{"pageNumber": 2, "newText": "New page two."}
		]
	}`}}
	f := newHolisticFixture(t, gen, 2)

	result, err := f.rewriter.Process(context.Background(), f.story.ID, "user-1", "make the story cohesive")

	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, "New page one.", f.pageTextByNumber(t, 1))
	assert.Equal(t, "New page two.", f.pageTextByNumber(t, 2))
}

func TestHolisticRewriteSkipsUnknownPageNumbers(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"pages": [
			{"pageNumber": 1, "newText": "New page one."},
			{"pageNumber": 7, "newText": "Invented page."},
			{"pageNumber": 2, "newText": ""}
		]
	}`}}
	f := newHolisticFixture(t, gen, 2)

	result, err := f.rewriter.Process(context.Background(), f.story.ID, "user-1", "rewrite")

	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, "New page one.", f.pageTextByNumber(t, 1))
	assert.Equal(t, "old text", f.pageTextByNumber(t, 2), "empty rewrites are skipped")
}

func TestHolisticRewriteMalformedResponseChangesNothing(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"Sorry, I cannot produce JSON today."}}
	f := newHolisticFixture(t, gen, 2)

	result, err := f.rewriter.Process(context.Background(), f.story.ID, "user-1", "rewrite")

	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Equal(t, "old text", f.pageTextByNumber(t, 1))
	assert.Equal(t, "old text", f.pageTextByNumber(t, 2))
}

func TestHolisticRewriteUsesVisionForUploadedImages(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"pages": [{"pageNumber": 1, "newText": "Matches the photo."}]}`}}
	f := newHolisticFixture(t, gen, 2)
	upload := "https://uploads.example/page1.png"
	for _, p := range f.store.pages {
		if p.PageNumber == 1 {
			p.UserUploadedImageURL = &upload
		}
	}

	result, err := f.rewriter.Process(context.Background(), f.story.ID, "user-1", "match the photos")

	require.NoError(t, err)
	assert.True(t, result.Updated)
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "Mia smiling on a sunny porch",
		"the rewrite prompt embeds the vision analysis")
	assert.Contains(t, f.gen.prompts[0], "a stormy scene",
		"pages without uploads fall back to their illustration prompt")
}

func TestHolisticRewriteToleratesVisionFailure(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"pages": [{"pageNumber": 1, "newText": "Still works."}]}`}}
	f := newHolisticFixture(t, gen, 1)
	f.vision.err = errors.New("vision down")
	upload := "https://uploads.example/page1.png"
	for _, p := range f.store.pages {
		p.UserUploadedImageURL = &upload
	}

	result, err := f.rewriter.Process(context.Background(), f.story.ID, "user-1", "match the photos")

	require.NoError(t, err)
	assert.True(t, result.Updated)
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "Image analysis unavailable")
}

func TestHolisticRewriteRejectsForeignUser(t *testing.T) {
	f := newHolisticFixture(t, &fakeGenerator{}, 1)

	_, err := f.rewriter.Process(context.Background(), f.story.ID, "someone-else", "rewrite")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
