package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Generate creates an illustration for prompt and returns its URL.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("Generating image", zap.Int("promptLength", len(prompt)))

	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Model:   c.imageModel,
		Prompt:  prompt,
		N:       1,
		Size:    openai.CreateImageSize1024x1024,
		Quality: openai.CreateImageQualityStandard,
		Style:   openai.CreateImageStyleVivid,
	})
	if err != nil {
		c.logger.Error("Image generation failed", zap.Error(err))
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("image generation returned no URL")
	}

	return resp.Data[0].URL, nil
}
