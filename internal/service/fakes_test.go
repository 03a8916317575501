package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// fakeGenerator scripts Invoke responses. Responses are consumed in
// order; the last one repeats.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (g *fakeGenerator) Invoke(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	i := len(g.prompts) - 1
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

// fakeImageGenerator fails for prompts containing failOn, otherwise
// returns a URL derived from the call count.
type fakeImageGenerator struct {
	mu     sync.Mutex
	failOn string
	calls  []string
}

func (g *fakeImageGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, prompt)
	if g.failOn != "" && strings.Contains(prompt, g.failOn) {
		return "", errors.New("image generation rejected")
	}
	return fmt.Sprintf("https://images.example/%d.png", len(g.calls)), nil
}

type fakeVision struct {
	description string
	err         error
}

func (v *fakeVision) Describe(_ context.Context, _, _ string) (string, error) {
	if v.err != nil {
		return "", v.err
	}
	return v.description, nil
}

// memStore is the shared in-memory backing for the fake repositories.
// The page table enforces the same (story, page number) uniqueness the
// schema does, so sequencing bugs fail tests the way they would fail in
// production.
type memStore struct {
	mu       sync.Mutex
	stories  map[uuid.UUID]*models.Story
	pages    map[uuid.UUID]*models.Page
	children map[uuid.UUID]*models.Child
	convos   map[string][]models.ChatMessage

	failUpdateNumberAt int // fail the Nth UpdateNumber call, 0 disables
	updateNumberCalls  int
}

func newMemStore() *memStore {
	return &memStore{
		stories:  make(map[uuid.UUID]*models.Story),
		pages:    make(map[uuid.UUID]*models.Page),
		children: make(map[uuid.UUID]*models.Child),
		convos:   make(map[string][]models.ChatMessage),
	}
}

func (s *memStore) addStory(story *models.Story) *models.Story {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	s.stories[story.ID] = story
	return story
}

func (s *memStore) addChild(child *models.Child) *models.Child {
	if child.ID == uuid.Nil {
		child.ID = uuid.New()
	}
	s.children[child.ID] = child
	return child
}

func (s *memStore) addPage(storyID uuid.UUID, number int, text, prompt string) *models.Page {
	p := &models.Page{
		ID:                 uuid.New(),
		StoryID:            storyID,
		PageNumber:         number,
		Text:               text,
		IllustrationPrompt: prompt,
	}
	s.pages[p.ID] = p
	return p
}

func (s *memStore) pageNumbers(storyID uuid.UUID) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var numbers []int
	for _, p := range s.pages {
		if p.StoryID == storyID {
			numbers = append(numbers, p.PageNumber)
		}
	}
	sort.Ints(numbers)
	return numbers
}

// snapshotPages deep-copies the page table for transaction rollback.
func (s *memStore) snapshotPages() map[uuid.UUID]models.Page {
	snap := make(map[uuid.UUID]models.Page, len(s.pages))
	for id, p := range s.pages {
		snap[id] = *p
	}
	return snap
}

func (s *memStore) restorePages(snap map[uuid.UUID]models.Page) {
	s.pages = make(map[uuid.UUID]*models.Page, len(snap))
	for id, p := range snap {
		copied := p
		s.pages[id] = &copied
	}
}

func convoKey(storyID uuid.UUID, pageNumber int) string {
	return fmt.Sprintf("%s:%d", storyID, pageNumber)
}

// fakeTxManager snapshots the page table before the callback and
// restores it when the callback fails, mimicking rollback.
type fakeTxManager struct {
	store *memStore
}

func (m *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	m.store.mu.Lock()
	snap := m.store.snapshotPages()
	m.store.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		m.store.mu.Lock()
		m.store.restorePages(snap)
		m.store.mu.Unlock()
		return err
	}
	return nil
}

type fakePageRepo struct {
	store *memStore
}

func (r *fakePageRepo) Create(_ context.Context, _ repository.DBTX, page *models.Page) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.pages {
		if p.StoryID == page.StoryID && p.PageNumber == page.PageNumber {
			return fmt.Errorf("duplicate page number %d", page.PageNumber)
		}
	}
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	copied := *page
	r.store.pages[page.ID] = &copied
	return nil
}

func (r *fakePageRepo) ListByStory(_ context.Context, _ repository.DBTX, storyID uuid.UUID) ([]models.Page, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var pages []models.Page
	for _, p := range r.store.pages {
		if p.StoryID == storyID {
			pages = append(pages, *p)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })
	return pages, nil
}

func (r *fakePageRepo) GetByNumber(_ context.Context, _ repository.DBTX, storyID uuid.UUID, pageNumber int) (*models.Page, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.pages {
		if p.StoryID == storyID && p.PageNumber == pageNumber {
			copied := *p
			return &copied, nil
		}
	}
	return nil, models.ErrPageNotFound
}

func (r *fakePageRepo) UpdateText(_ context.Context, _ repository.DBTX, pageID uuid.UUID, text string) error {
	return r.update(pageID, func(p *models.Page) { p.Text = text })
}

func (r *fakePageRepo) UpdateIllustration(_ context.Context, _ repository.DBTX, pageID uuid.UUID, prompt, url string) error {
	return r.update(pageID, func(p *models.Page) {
		p.IllustrationPrompt = prompt
		p.IllustrationURL = &url
	})
}

func (r *fakePageRepo) UpdateIllustrationURL(_ context.Context, _ repository.DBTX, pageID uuid.UUID, url string) error {
	return r.update(pageID, func(p *models.Page) { p.IllustrationURL = &url })
}

func (r *fakePageRepo) UpdatePrompt(_ context.Context, _ repository.DBTX, pageID uuid.UUID, prompt string) error {
	return r.update(pageID, func(p *models.Page) { p.IllustrationPrompt = prompt })
}

func (r *fakePageRepo) UpdateNumber(_ context.Context, _ repository.DBTX, pageID uuid.UUID, pageNumber int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.updateNumberCalls++
	if r.store.failUpdateNumberAt > 0 && r.store.updateNumberCalls == r.store.failUpdateNumberAt {
		return errors.New("injected update failure")
	}
	target, ok := r.store.pages[pageID]
	if !ok {
		return models.ErrPageNotFound
	}
	for _, p := range r.store.pages {
		if p.ID != pageID && p.StoryID == target.StoryID && p.PageNumber == pageNumber {
			return fmt.Errorf("duplicate page number %d", pageNumber)
		}
	}
	target.PageNumber = pageNumber
	return nil
}

func (r *fakePageRepo) Delete(_ context.Context, _ repository.DBTX, pageID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.pages[pageID]; !ok {
		return models.ErrPageNotFound
	}
	delete(r.store.pages, pageID)
	return nil
}

func (r *fakePageRepo) update(pageID uuid.UUID, fn func(*models.Page)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.pages[pageID]
	if !ok {
		return models.ErrPageNotFound
	}
	fn(p)
	return nil
}

type fakeStoryRepo struct {
	store *memStore
}

func (r *fakeStoryRepo) Create(_ context.Context, _ repository.DBTX, story *models.Story) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	copied := *story
	r.store.stories[story.ID] = &copied
	return nil
}

func (r *fakeStoryRepo) GetForUser(_ context.Context, _ repository.DBTX, id uuid.UUID, userID string) (*models.Story, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.stories[id]
	if !ok || s.UserID != userID {
		return nil, models.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStoryRepo) ListByUser(_ context.Context, _ repository.DBTX, userID string) ([]models.Story, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Story
	for _, s := range r.store.stories {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeStoryRepo) UpdateTitle(_ context.Context, _ repository.DBTX, id uuid.UUID, title string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.stories[id]
	if !ok {
		return models.ErrNotFound
	}
	s.Title = title
	return nil
}

func (r *fakeStoryRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id uuid.UUID, status models.StoryStatus, errorMessage *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.stories[id]
	if !ok {
		return models.ErrNotFound
	}
	s.Status = status
	s.ErrorMessage = errorMessage
	return nil
}

func (r *fakeStoryRepo) Delete(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.stories[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.store.stories, id)
	for pid, p := range r.store.pages {
		if p.StoryID == id {
			delete(r.store.pages, pid)
		}
	}
	return nil
}

type fakeCharacterRepo struct {
	store *memStore
}

func (r *fakeCharacterRepo) Create(_ context.Context, _ repository.DBTX, child *models.Child) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if child.ID == uuid.Nil {
		child.ID = uuid.New()
	}
	copied := *child
	r.store.children[child.ID] = &copied
	return nil
}

func (r *fakeCharacterRepo) GetByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*models.Child, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.children[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCharacterRepo) ListByUser(_ context.Context, _ repository.DBTX, userID string) ([]models.Child, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Child
	for _, c := range r.store.children {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCharacterRepo) UpdateAppearance(_ context.Context, _ repository.DBTX, id uuid.UUID, appearance string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.children[id]
	if !ok {
		return models.ErrNotFound
	}
	c.AppearanceDescription = appearance
	return nil
}

type fakeConversationRepo struct {
	store *memStore
}

func (r *fakeConversationRepo) GetMessages(_ context.Context, _ repository.DBTX, storyID uuid.UUID, pageNumber int) ([]models.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	msgs := r.store.convos[convoKey(storyID, pageNumber)]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *fakeConversationRepo) ReplaceMessages(_ context.Context, _ repository.DBTX, storyID uuid.UUID, pageNumber int, messages []models.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.convos[convoKey(storyID, pageNumber)] = append([]models.ChatMessage(nil), messages...)
	return nil
}

func (r *fakeConversationRepo) AppendMessages(_ context.Context, _ repository.DBTX, storyID uuid.UUID, pageNumber int, messages ...models.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := convoKey(storyID, pageNumber)
	r.store.convos[key] = append(r.store.convos[key], messages...)
	return nil
}
