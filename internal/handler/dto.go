package handler

import (
	"github.com/google/uuid"

	"github.com/danaingraham/storyhealer/internal/models"
)

// APIError is the standard error response body.
type APIError struct {
	Message string `json:"message"`
}

type createStoryRequest struct {
	ChildID         uuid.UUID `json:"childId" binding:"required"`
	FearDescription string    `json:"fearDescription" binding:"required"`
}

type chatRequest struct {
	Message         string            `json:"message" binding:"required"`
	PageNumber      int               `json:"pageNumber" binding:"required,min=1"`
	ForceUpdateType models.UpdateType `json:"forceUpdateType"`
}

type holisticChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// chatResponse is the conversational envelope every chat endpoint
// returns. The response string is always user-facing prose.
type chatResponse struct {
	Response     string `json:"response"`
	StoryUpdated bool   `json:"storyUpdated"`
}

type insertPageRequest struct {
	Position   string `json:"position" binding:"required,oneof=before after"`
	PageNumber int    `json:"pageNumber" binding:"required,min=1"`
}

type insertPageResponse struct {
	Success    bool         `json:"success"`
	Page       *models.Page `json:"page"`
	TotalPages int          `json:"totalPages"`
}

type deletePageResponse struct {
	Success     bool `json:"success"`
	DeletedPage int  `json:"deletedPage"`
	TotalPages  int  `json:"totalPages"`
}

type reorderRequest struct {
	PageOrder []uuid.UUID `json:"pageOrder" binding:"required,min=1"`
}

type reorderResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	TotalPages int    `json:"totalPages"`
}

type conversationResponse struct {
	StoryID    uuid.UUID            `json:"storyId"`
	PageNumber int                  `json:"pageNumber"`
	Messages   []models.ChatMessage `json:"messages"`
}

type replaceConversationRequest struct {
	Messages []models.ChatMessage `json:"messages" binding:"required"`
}

type createChildRequest struct {
	Name                  string `json:"name" binding:"required"`
	Age                   int    `json:"age" binding:"required,min=1"`
	AppearanceDescription string `json:"appearanceDescription"`
}
