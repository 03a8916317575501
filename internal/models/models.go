package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus tracks the lifecycle of a story generation attempt.
// A story moves Generating -> Completed or Generating -> Error exactly
// once per attempt and never reverses.
type StoryStatus string

const (
	StatusGenerating StoryStatus = "GENERATING"
	StatusCompleted  StoryStatus = "COMPLETED"
	StatusError      StoryStatus = "ERROR"
)

// UpdateType is the classified kind of change a chat instruction asks for.
type UpdateType string

const (
	UpdateTypeText    UpdateType = "text"
	UpdateTypeImage   UpdateType = "image"
	UpdateTypeBoth    UpdateType = "both"
	UpdateTypeGlobal  UpdateType = "global"
	UpdateTypeUnclear UpdateType = "unclear"
)

// Valid reports whether t is one of the known update types.
func (t UpdateType) Valid() bool {
	switch t {
	case UpdateTypeText, UpdateTypeImage, UpdateTypeBoth, UpdateTypeGlobal, UpdateTypeUnclear:
		return true
	}
	return false
}

// Child is a reader profile. Its appearance description is the single
// source of truth embedded in every illustration prompt of the child's
// stories.
type Child struct {
	ID                    uuid.UUID `json:"id" db:"id"`
	UserID                string    `json:"userId" db:"user_id"`
	Name                  string    `json:"name" db:"name"`
	Age                   int       `json:"age" db:"age"`
	AppearanceDescription string    `json:"appearanceDescription" db:"appearance_description"`
	CreatedAt             time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time `json:"updatedAt" db:"updated_at"`
}

// Story is a generated multi-page narrative owned by a user.
type Story struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	UserID          string      `json:"userId" db:"user_id"`
	ChildID         uuid.UUID   `json:"childId" db:"child_id"`
	Title           string      `json:"title" db:"title"`
	FearDescription string      `json:"fearDescription" db:"fear_description"`
	Status          StoryStatus `json:"status" db:"status"`
	ErrorMessage    *string     `json:"errorMessage,omitempty" db:"error_message"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`

	// Pages is populated by the repositories on full loads, ordered by
	// page number ascending. Not a database column.
	Pages []Page `json:"pages,omitempty" db:"-"`
}

// Page is a single story page. Page numbers within a story are unique
// and form the contiguous set {1..N}; the sequence manager is the only
// component allowed to change them.
type Page struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	StoryID              uuid.UUID `json:"storyId" db:"story_id"`
	PageNumber           int       `json:"pageNumber" db:"page_number"`
	Text                 string    `json:"text" db:"text"`
	IllustrationPrompt   string    `json:"illustrationPrompt" db:"illustration_prompt"`
	IllustrationURL      *string   `json:"illustrationUrl,omitempty" db:"illustration_url"`
	UserUploadedImageURL *string   `json:"userUploadedImageUrl,omitempty" db:"user_uploaded_image_url"`
	CharactersInScene    []string  `json:"charactersInScene" db:"characters_in_scene"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayImageURL returns the image shown for the page: a user upload
// takes precedence over the generated illustration.
func (p *Page) DisplayImageURL() *string {
	if p.UserUploadedImageURL != nil && *p.UserUploadedImageURL != "" {
		return p.UserUploadedImageURL
	}
	return p.IllustrationURL
}

// ChatMessage is one entry of a page conversation log.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PageConversation holds the chat history for one (story, page number)
// pair. History is keyed by the logical page number, not page identity:
// after a delete or reorder renumbers pages, existing history stays with
// the number, not the page that used to carry it.
type PageConversation struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	StoryID    uuid.UUID     `json:"storyId" db:"story_id"`
	PageNumber int           `json:"pageNumber" db:"page_number"`
	Messages   []ChatMessage `json:"messages" db:"messages"`
	CreatedAt  time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time     `json:"updatedAt" db:"updated_at"`
}
