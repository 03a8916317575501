package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/danaingraham/storyhealer/internal/service"
)

func (h *StoryHandler) insertPage(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req insertPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "position (before|after) and pageNumber are required"})
		return
	}

	page, totalPages, err := h.sequence.InsertPage(c.Request.Context(), storyID, currentUserID(c),
		service.InsertPosition(req.Position), req.PageNumber)
	if err != nil {
		h.metrics.SequenceOperations.WithLabelValues("insert", "error").Inc()
		h.respondError(c, err)
		return
	}

	h.metrics.SequenceOperations.WithLabelValues("insert", "ok").Inc()
	c.JSON(http.StatusOK, insertPageResponse{
		Success:    true,
		Page:       page,
		TotalPages: totalPages,
	})
}

func (h *StoryHandler) deletePage(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	pageNumber, ok := parsePageNumberParam(c)
	if !ok {
		return
	}

	remaining, err := h.sequence.DeletePage(c.Request.Context(), storyID, currentUserID(c), pageNumber)
	if err != nil {
		h.metrics.SequenceOperations.WithLabelValues("delete", "error").Inc()
		h.respondError(c, err)
		return
	}

	h.metrics.SequenceOperations.WithLabelValues("delete", "ok").Inc()
	c.JSON(http.StatusOK, deletePageResponse{
		Success:     true,
		DeletedPage: pageNumber,
		TotalPages:  remaining,
	})
}

func (h *StoryHandler) reorderPages(c *gin.Context) {
	storyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "pageOrder is required"})
		return
	}

	if err := h.sequence.ReorderPages(c.Request.Context(), storyID, currentUserID(c), req.PageOrder); err != nil {
		h.metrics.SequenceOperations.WithLabelValues("reorder", "error").Inc()
		h.respondError(c, err)
		return
	}

	h.metrics.SequenceOperations.WithLabelValues("reorder", "ok").Inc()
	c.JSON(http.StatusOK, reorderResponse{
		Success:    true,
		Message:    "Pages reordered successfully",
		TotalPages: len(req.PageOrder),
	})
}

func parsePageNumberParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("pageNumber"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid pageNumber"})
		return 0, false
	}
	return n, true
}
