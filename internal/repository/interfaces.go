package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/danaingraham/storyhealer/internal/models"
)

// DBTX is the subset of pgx operations repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository methods
// run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager runs a function inside a database transaction, rolling back
// on error or panic.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// StoryRepository persists stories.
type StoryRepository interface {
	Create(ctx context.Context, db DBTX, story *models.Story) error
	// GetForUser loads a story owned by userID, or models.ErrNotFound.
	GetForUser(ctx context.Context, db DBTX, id uuid.UUID, userID string) (*models.Story, error)
	ListByUser(ctx context.Context, db DBTX, userID string) ([]models.Story, error)
	UpdateTitle(ctx context.Context, db DBTX, id uuid.UUID, title string) error
	// UpdateStatus records the terminal outcome of a generation attempt.
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status models.StoryStatus, errorMessage *string) error
	Delete(ctx context.Context, db DBTX, id uuid.UUID) error
}

// PageRepository persists story pages. Page numbers are changed only
// through UpdateNumber; callers own the ordering discipline that keeps
// the (story_id, page_number) unique constraint satisfied.
type PageRepository interface {
	Create(ctx context.Context, db DBTX, page *models.Page) error
	ListByStory(ctx context.Context, db DBTX, storyID uuid.UUID) ([]models.Page, error)
	GetByNumber(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int) (*models.Page, error)
	UpdateText(ctx context.Context, db DBTX, pageID uuid.UUID, text string) error
	// UpdateIllustration persists a new prompt and URL as one row update.
	UpdateIllustration(ctx context.Context, db DBTX, pageID uuid.UUID, prompt, url string) error
	UpdateIllustrationURL(ctx context.Context, db DBTX, pageID uuid.UUID, url string) error
	UpdatePrompt(ctx context.Context, db DBTX, pageID uuid.UUID, prompt string) error
	UpdateNumber(ctx context.Context, db DBTX, pageID uuid.UUID, pageNumber int) error
	Delete(ctx context.Context, db DBTX, pageID uuid.UUID) error
}

// ConversationRepository persists per-page chat history.
//
// History is keyed by (story, page number), mirroring the client
// contract. When the sequence manager renumbers pages, history does not
// follow the page it was recorded against; it stays with the number.
type ConversationRepository interface {
	GetMessages(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int) ([]models.ChatMessage, error)
	ReplaceMessages(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int, messages []models.ChatMessage) error
	AppendMessages(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int, messages ...models.ChatMessage) error
}

// CharacterRepository persists child profiles.
type CharacterRepository interface {
	Create(ctx context.Context, db DBTX, child *models.Child) error
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*models.Child, error)
	ListByUser(ctx context.Context, db DBTX, userID string) ([]models.Child, error)
	UpdateAppearance(ctx context.Context, db DBTX, id uuid.UUID, appearance string) error
}
