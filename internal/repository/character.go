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

var _ CharacterRepository = (*pgCharacterRepository)(nil)

type pgCharacterRepository struct {
	logger *zap.Logger
}

// NewPgCharacterRepository creates the PostgreSQL child profile
// repository.
func NewPgCharacterRepository(logger *zap.Logger) CharacterRepository {
	return &pgCharacterRepository{logger: logger.Named("CharacterRepo")}
}

const getChildByIDQuery = `
SELECT id, user_id, name, age, appearance_description, created_at, updated_at
FROM children
WHERE id = $1`

func (r *pgCharacterRepository) Create(ctx context.Context, db DBTX, child *models.Child) error {
	if child.ID == uuid.Nil {
		child.ID = uuid.New()
	}
	now := time.Now().UTC()
	if child.CreatedAt.IsZero() {
		child.CreatedAt = now
	}
	child.UpdatedAt = now

	_, err := db.Exec(ctx, `
INSERT INTO children (id, user_id, name, age, appearance_description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		child.ID, child.UserID, child.Name, child.Age,
		child.AppearanceDescription, child.CreatedAt, child.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create child profile", zap.Error(err), zap.String("childID", child.ID.String()))
		return fmt.Errorf("failed to create child profile: %w", err)
	}
	return nil
}

func (r *pgCharacterRepository) GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*models.Child, error) {
	var child models.Child
	err := pgxscan.Get(ctx, db, &child, getChildByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get child profile %s: %w", id, err)
	}
	return &child, nil
}

func (r *pgCharacterRepository) ListByUser(ctx context.Context, db DBTX, userID string) ([]models.Child, error) {
	var children []models.Child
	err := pgxscan.Select(ctx, db, &children, `
SELECT id, user_id, name, age, appearance_description, created_at, updated_at
FROM children
WHERE user_id = $1
ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child profiles: %w", err)
	}
	return children, nil
}

func (r *pgCharacterRepository) UpdateAppearance(ctx context.Context, db DBTX, id uuid.UUID, appearance string) error {
	tag, err := db.Exec(ctx,
		`UPDATE children SET appearance_description = $2, updated_at = now() WHERE id = $1`,
		id, appearance)
	if err != nil {
		r.logger.Error("Failed to update appearance", zap.Error(err), zap.String("childID", id.String()))
		return fmt.Errorf("failed to update appearance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
