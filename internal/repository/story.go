package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/models"
)

var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	logger *zap.Logger
}

// NewPgStoryRepository creates the PostgreSQL story repository.
func NewPgStoryRepository(logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{logger: logger.Named("StoryRepo")}
}

const createStoryQuery = `
INSERT INTO stories (id, user_id, child_id, title, fear_description, status, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const getStoryForUserQuery = `
SELECT id, user_id, child_id, title, fear_description, status, error_message, created_at, updated_at
FROM stories
WHERE id = $1 AND user_id = $2`

const listStoriesByUserQuery = `
SELECT id, user_id, child_id, title, fear_description, status, error_message, created_at, updated_at
FROM stories
WHERE user_id = $1
ORDER BY created_at DESC`

func (r *pgStoryRepository) Create(ctx context.Context, db DBTX, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now

	_, err := db.Exec(ctx, createStoryQuery,
		story.ID, story.UserID, story.ChildID, story.Title,
		story.FearDescription, story.Status, story.ErrorMessage,
		story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", zap.Error(err), zap.String("storyID", story.ID.String()))
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

func (r *pgStoryRepository) GetForUser(ctx context.Context, db DBTX, id uuid.UUID, userID string) (*models.Story, error) {
	var story models.Story
	err := pgxscan.Get(ctx, db, &story, getStoryForUserQuery, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return &story, nil
}

func (r *pgStoryRepository) ListByUser(ctx context.Context, db DBTX, userID string) ([]models.Story, error) {
	var stories []models.Story
	if err := pgxscan.Select(ctx, db, &stories, listStoriesByUserQuery, userID); err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

func (r *pgStoryRepository) UpdateTitle(ctx context.Context, db DBTX, id uuid.UUID, title string) error {
	tag, err := db.Exec(ctx,
		`UPDATE stories SET title = $2, updated_at = now() WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("failed to update story title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status models.StoryStatus, errorMessage *string) error {
	tag, err := db.Exec(ctx,
		`UPDATE stories SET status = $2, error_message = $3, updated_at = now() WHERE id = $1`,
		id, status, errorMessage)
	if err != nil {
		r.logger.Error("Failed to update story status", zap.Error(err), zap.String("storyID", id.String()), zap.String("status", string(status)))
		return fmt.Errorf("failed to update story status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, db DBTX, id uuid.UUID) error {
	// Pages and conversations cascade at the schema level.
	tag, err := db.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
