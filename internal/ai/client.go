package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/config"
)

// Generator sends a prompt to the content-generation collaborator and
// returns the raw response text. Callers never assume the response
// shape; all parsing is defensive (see extract.go).
type Generator interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator produces an illustration for a prompt and returns its
// URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VisionDescriber describes an uploaded image (data URL or plain URL)
// guided by a prompt.
type VisionDescriber interface {
	Describe(ctx context.Context, imageData, prompt string) (string, error)
}

// Client wraps the OpenAI-compatible API behind the three collaborator
// contracts.
type Client struct {
	api         *openai.Client
	model       string
	imageModel  string
	visionModel string
	timeout     time.Duration
	logger      *zap.Logger
}

// New creates a Client from configuration.
func New(cfg config.AIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("AI API key is not set")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		imageModel:  cfg.ImageModel,
		visionModel: cfg.VisionModel,
		timeout:     timeout,
		logger:      logger.Named("AIClient"),
	}, nil
}

// Invoke sends a single-prompt chat completion and returns the raw
// response content. The upstream timeout bounds the call so a slow
// generation cannot hang the request indefinitely.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("Invoking generation", zap.Int("promptLength", len(prompt)))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		c.logger.Error("Generation call failed", zap.Error(err))
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("generation returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
