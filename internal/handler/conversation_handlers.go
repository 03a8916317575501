package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) getConversation(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	pageNumber, ok := parsePageNumberParam(c)
	if !ok {
		return
	}

	messages, err := h.profiles.GetConversation(c.Request.Context(), storyID, currentUserID(c), pageNumber)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversationResponse{
		StoryID:    storyID,
		PageNumber: pageNumber,
		Messages:   messages,
	})
}

func (h *StoryHandler) replaceConversation(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	pageNumber, ok := parsePageNumberParam(c)
	if !ok {
		return
	}

	var req replaceConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "messages are required"})
		return
	}

	if err := h.profiles.ReplaceConversation(c.Request.Context(), storyID, currentUserID(c), pageNumber, req.Messages); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
