package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/service"
)

// StoryHandler serves the story editing API.
type StoryHandler struct {
	stories       *service.StoryService
	chat          *service.ChatService
	holistic      *service.HolisticRewriter
	sequence      *service.SequenceManager
	illustrations *service.IllustrationService
	profiles      *service.ProfileService
	metrics       *Metrics
	logger        *zap.Logger
}

func NewStoryHandler(
	stories *service.StoryService,
	chat *service.ChatService,
	holistic *service.HolisticRewriter,
	sequence *service.SequenceManager,
	illustrations *service.IllustrationService,
	profiles *service.ProfileService,
	metrics *Metrics,
	logger *zap.Logger,
) *StoryHandler {
	return &StoryHandler{
		stories:       stories,
		chat:          chat,
		holistic:      holistic,
		sequence:      sequence,
		illustrations: illustrations,
		profiles:      profiles,
		metrics:       metrics,
		logger:        logger.Named("StoryHandler"),
	}
}

// RegisterRoutes wires the API routes. Everything under /api requires
// the gateway identity header.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(IdentityMiddleware())
	{
		stories := api.Group("/stories")
		{
			stories.POST("", h.createStory)
			stories.GET("", h.listStories)
			stories.GET("/:id", h.getStory)
			stories.DELETE("/:id", h.deleteStory)
			stories.POST("/:id/illustrations", h.generateIllustrations)
			stories.POST("/:id/chat", h.processChat)
			stories.POST("/:id/holistic-chat", h.processHolisticChat)
			stories.POST("/:id/pages/insert", h.insertPage)
			stories.DELETE("/:id/pages/:pageNumber", h.deletePage)
			stories.POST("/:id/pages/reorder", h.reorderPages)
			stories.GET("/:id/conversations/:pageNumber", h.getConversation)
			stories.PUT("/:id/conversations/:pageNumber", h.replaceConversation)
		}

		children := api.Group("/children")
		{
			children.POST("", h.createChild)
			children.GET("", h.listChildren)
		}
	}
}

// respondError maps service sentinels onto HTTP statuses. Unknown
// errors surface as 500 without leaking internals.
func (h *StoryHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, APIError{Message: "story not found"})
	case errors.Is(err, models.ErrPageNotFound):
		c.JSON(http.StatusNotFound, APIError{Message: "page not found"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, APIError{Message: "forbidden"})
	case errors.Is(err, models.ErrLastPage):
		c.JSON(http.StatusBadRequest, APIError{Message: "cannot delete the last page of a story"})
	case errors.Is(err, models.ErrPageSetMismatch):
		c.JSON(http.StatusBadRequest, APIError{Message: "page order must contain exactly the story's pages"})
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
	}
}
