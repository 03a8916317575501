package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) createChild(c *gin.Context) {
	var req createChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "name and a positive age are required"})
		return
	}

	child, err := h.profiles.CreateChild(c.Request.Context(), currentUserID(c),
		req.Name, req.Age, req.AppearanceDescription)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, child)
}

func (h *StoryHandler) listChildren(c *gin.Context) {
	children, err := h.profiles.ListChildren(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, children)
}
