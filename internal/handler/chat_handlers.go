package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/danaingraham/storyhealer/internal/service"
)

func (h *StoryHandler) processChat(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "message and pageNumber are required"})
		return
	}
	if req.ForceUpdateType != "" && !req.ForceUpdateType.Valid() {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid forceUpdateType"})
		return
	}

	updateTypeLabel := "auto"
	if req.ForceUpdateType != "" {
		updateTypeLabel = string(req.ForceUpdateType)
	}
	h.metrics.ChatRequests.WithLabelValues(updateTypeLabel).Inc()

	result, err := h.chat.Process(c.Request.Context(), service.ChatRequest{
		StoryID:         storyID,
		UserID:          currentUserID(c),
		PageNumber:      req.PageNumber,
		Message:         req.Message,
		ForceUpdateType: req.ForceUpdateType,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.StoryMutations.WithLabelValues("chat", strconv.FormatBool(result.Updated)).Inc()
	c.JSON(http.StatusOK, chatResponse{Response: result.Response, StoryUpdated: result.Updated})
}

func (h *StoryHandler) processHolisticChat(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req holisticChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "message is required"})
		return
	}

	result, err := h.holistic.Process(c.Request.Context(), storyID, currentUserID(c), req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.StoryMutations.WithLabelValues("holistic", strconv.FormatBool(result.Updated)).Inc()
	c.JSON(http.StatusOK, chatResponse{Response: result.Response, StoryUpdated: result.Updated})
}
