package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/models"
)

var _ ConversationRepository = (*pgConversationRepository)(nil)

type pgConversationRepository struct {
	logger *zap.Logger
}

// NewPgConversationRepository creates the PostgreSQL conversation
// repository.
func NewPgConversationRepository(logger *zap.Logger) ConversationRepository {
	return &pgConversationRepository{logger: logger.Named("ConversationRepo")}
}

func (r *pgConversationRepository) GetMessages(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int) ([]models.ChatMessage, error) {
	var raw []byte
	err := db.QueryRow(ctx,
		`SELECT messages FROM page_conversations WHERE story_id = $1 AND page_number = $2`,
		storyID, pageNumber).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No conversation yet is an empty history, not an error.
			return []models.ChatMessage{}, nil
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode conversation messages: %w", err)
	}
	return messages, nil
}

func (r *pgConversationRepository) ReplaceMessages(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int, messages []models.ChatMessage) error {
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode conversation messages: %w", err)
	}

	_, err = db.Exec(ctx, `
INSERT INTO page_conversations (id, story_id, page_number, messages, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (story_id, page_number)
DO UPDATE SET messages = EXCLUDED.messages, updated_at = now()`,
		uuid.New(), storyID, pageNumber, raw)
	if err != nil {
		r.logger.Error("Failed to save conversation", zap.Error(err),
			zap.String("storyID", storyID.String()), zap.Int("pageNumber", pageNumber))
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (r *pgConversationRepository) AppendMessages(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int, messages ...models.ChatMessage) error {
	existing, err := r.GetMessages(ctx, db, storyID, pageNumber)
	if err != nil {
		return err
	}
	return r.ReplaceMessages(ctx, db, storyID, pageNumber, append(existing, messages...))
}
