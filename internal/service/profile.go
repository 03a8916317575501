package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// ProfileService manages child profiles and exposes per-page
// conversation history.
type ProfileService struct {
	characters    repository.CharacterRepository
	stories       repository.StoryRepository
	conversations repository.ConversationRepository
	db            repository.DBTX
	logger        *zap.Logger
}

func NewProfileService(
	characters repository.CharacterRepository,
	stories repository.StoryRepository,
	conversations repository.ConversationRepository,
	db repository.DBTX,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		characters:    characters,
		stories:       stories,
		conversations: conversations,
		db:            db,
		logger:        logger.Named("ProfileService"),
	}
}

// CreateChild registers a child profile for the user.
func (s *ProfileService) CreateChild(ctx context.Context, userID, name string, age int, appearance string) (*models.Child, error) {
	if name == "" || age <= 0 {
		return nil, fmt.Errorf("%w: name and a positive age are required", models.ErrInvalidInput)
	}
	child := &models.Child{
		UserID:                userID,
		Name:                  name,
		Age:                   age,
		AppearanceDescription: appearance,
	}
	if err := s.characters.Create(ctx, s.db, child); err != nil {
		return nil, err
	}
	s.logger.Info("Created child profile",
		zap.String("childID", child.ID.String()), zap.String("userID", userID))
	return child, nil
}

// ListChildren returns the user's child profiles.
func (s *ProfileService) ListChildren(ctx context.Context, userID string) ([]models.Child, error) {
	return s.characters.ListByUser(ctx, s.db, userID)
}

// GetConversation returns the chat history for one page of a story the
// user owns. A page with no history yet yields an empty list.
func (s *ProfileService) GetConversation(ctx context.Context, storyID uuid.UUID, userID string, pageNumber int) ([]models.ChatMessage, error) {
	if _, err := s.stories.GetForUser(ctx, s.db, storyID, userID); err != nil {
		return nil, err
	}
	return s.conversations.GetMessages(ctx, s.db, storyID, pageNumber)
}

// ReplaceConversation overwrites the chat history for one page of a
// story the user owns.
func (s *ProfileService) ReplaceConversation(ctx context.Context, storyID uuid.UUID, userID string, pageNumber int, messages []models.ChatMessage) error {
	if _, err := s.stories.GetForUser(ctx, s.db, storyID, userID); err != nil {
		return err
	}
	return s.conversations.ReplaceMessages(ctx, s.db, storyID, pageNumber, messages)
}
