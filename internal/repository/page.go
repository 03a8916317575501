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

var _ PageRepository = (*pgPageRepository)(nil)

type pgPageRepository struct {
	logger *zap.Logger
}

// NewPgPageRepository creates the PostgreSQL page repository.
func NewPgPageRepository(logger *zap.Logger) PageRepository {
	return &pgPageRepository{logger: logger.Named("PageRepo")}
}

const createPageQuery = `
INSERT INTO story_pages (id, story_id, page_number, text, illustration_prompt, illustration_url,
                         user_uploaded_image_url, characters_in_scene, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const listPagesByStoryQuery = `
SELECT id, story_id, page_number, text, illustration_prompt, illustration_url,
       user_uploaded_image_url, characters_in_scene, created_at, updated_at
FROM story_pages
WHERE story_id = $1
ORDER BY page_number ASC`

const getPageByNumberQuery = `
SELECT id, story_id, page_number, text, illustration_prompt, illustration_url,
       user_uploaded_image_url, characters_in_scene, created_at, updated_at
FROM story_pages
WHERE story_id = $1 AND page_number = $2`

func (r *pgPageRepository) Create(ctx context.Context, db DBTX, page *models.Page) error {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	now := time.Now().UTC()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now
	if page.CharactersInScene == nil {
		page.CharactersInScene = []string{}
	}

	_, err := db.Exec(ctx, createPageQuery,
		page.ID, page.StoryID, page.PageNumber, page.Text,
		page.IllustrationPrompt, page.IllustrationURL,
		page.UserUploadedImageURL, page.CharactersInScene,
		page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create page", zap.Error(err),
			zap.String("storyID", page.StoryID.String()), zap.Int("pageNumber", page.PageNumber))
		return fmt.Errorf("failed to create page %d: %w", page.PageNumber, err)
	}
	return nil
}

func (r *pgPageRepository) ListByStory(ctx context.Context, db DBTX, storyID uuid.UUID) ([]models.Page, error) {
	var pages []models.Page
	if err := pgxscan.Select(ctx, db, &pages, listPagesByStoryQuery, storyID); err != nil {
		r.logger.Error("Failed to list pages", zap.Error(err), zap.String("storyID", storyID.String()))
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

func (r *pgPageRepository) GetByNumber(ctx context.Context, db DBTX, storyID uuid.UUID, pageNumber int) (*models.Page, error) {
	var page models.Page
	err := pgxscan.Get(ctx, db, &page, getPageByNumberQuery, storyID, pageNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page %d: %w", pageNumber, err)
	}
	return &page, nil
}

func (r *pgPageRepository) UpdateText(ctx context.Context, db DBTX, pageID uuid.UUID, text string) error {
	return r.execOne(ctx, db,
		`UPDATE story_pages SET text = $2, updated_at = now() WHERE id = $1`,
		"text", pageID, text)
}

func (r *pgPageRepository) UpdateIllustration(ctx context.Context, db DBTX, pageID uuid.UUID, prompt, url string) error {
	return r.execOne(ctx, db,
		`UPDATE story_pages SET illustration_prompt = $2, illustration_url = $3, updated_at = now() WHERE id = $1`,
		"illustration", pageID, prompt, url)
}

func (r *pgPageRepository) UpdateIllustrationURL(ctx context.Context, db DBTX, pageID uuid.UUID, url string) error {
	return r.execOne(ctx, db,
		`UPDATE story_pages SET illustration_url = $2, updated_at = now() WHERE id = $1`,
		"illustration URL", pageID, url)
}

func (r *pgPageRepository) UpdatePrompt(ctx context.Context, db DBTX, pageID uuid.UUID, prompt string) error {
	return r.execOne(ctx, db,
		`UPDATE story_pages SET illustration_prompt = $2, updated_at = now() WHERE id = $1`,
		"illustration prompt", pageID, prompt)
}

func (r *pgPageRepository) UpdateNumber(ctx context.Context, db DBTX, pageID uuid.UUID, pageNumber int) error {
	return r.execOne(ctx, db,
		`UPDATE story_pages SET page_number = $2, updated_at = now() WHERE id = $1`,
		"page number", pageID, pageNumber)
}

func (r *pgPageRepository) Delete(ctx context.Context, db DBTX, pageID uuid.UUID) error {
	tag, err := db.Exec(ctx, `DELETE FROM story_pages WHERE id = $1`, pageID)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPageNotFound
	}
	return nil
}

func (r *pgPageRepository) execOne(ctx context.Context, db DBTX, query, field string, pageID uuid.UUID, args ...any) error {
	tag, err := db.Exec(ctx, query, append([]any{pageID}, args...)...)
	if err != nil {
		r.logger.Error("Failed to update page "+field, zap.Error(err), zap.String("pageID", pageID.String()))
		return fmt.Errorf("failed to update page %s: %w", field, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPageNotFound
	}
	return nil
}
