package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Describe runs an uploaded image through the vision model and returns
// the textual description.
func (c *Client) Describe(ctx context.Context, imageData, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("Describing image", zap.Int("promptLength", len(prompt)))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageData},
					},
				},
			},
		},
	})
	if err != nil {
		c.logger.Error("Vision call failed", zap.Error(err))
		return "", fmt.Errorf("vision call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("vision call returned no description")
	}

	return resp.Choices[0].Message.Content, nil
}
