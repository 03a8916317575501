package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/danaingraham/storyhealer/internal/models"
)

func (h *StoryHandler) createStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "childId and fearDescription are required"})
		return
	}

	story, err := h.stories.Create(c.Request.Context(), currentUserID(c), req.ChildID, req.FearDescription)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if story.Status == models.StatusError {
		// The story record exists but generation failed; the body
		// carries the error message.
		status = http.StatusOK
	}
	c.JSON(status, story)
}

func (h *StoryHandler) listStories(c *gin.Context) {
	stories, err := h.stories.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

func (h *StoryHandler) getStory(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	story, err := h.stories.Get(c.Request.Context(), storyID, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) deleteStory(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.stories.Delete(c.Request.Context(), storyID, currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *StoryHandler) generateIllustrations(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.illustrations.GenerateAll(c.Request.Context(), storyID, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": summary.Results,
		"summary": gin.H{
			"total":      summary.Total,
			"successful": summary.Successful,
			"failed":     summary.Failed,
		},
	})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
