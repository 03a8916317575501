package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
)

// RetryPolicy controls image generation retries. Fallback transforms
// the prompt before the retry attempts; a nil Fallback retries with the
// original prompt.
type RetryPolicy struct {
	MaxAttempts int
	Fallback    func(prompt string) string
}

// DefaultImageRetryPolicy retries once with the raw scene prompt.
// Enhanced prompts occasionally trip content filters; the unenhanced
// prompt usually passes.
func DefaultImageRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2}
}

// generateWithRetry drives an image generation through the policy.
// fallbackPrompt is used from the second attempt on when the policy has
// no Fallback transform of its own.
func generateWithRetry(ctx context.Context, gen ai.ImageGenerator, policy RetryPolicy, prompt, fallbackPrompt string, logger *zap.Logger) (string, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		p := prompt
		if attempt > 1 {
			if policy.Fallback != nil {
				p = policy.Fallback(prompt)
			} else if fallbackPrompt != "" {
				p = fallbackPrompt
			}
			logger.Info("Retrying image generation with fallback prompt", zap.Int("attempt", attempt))
		}

		url, err := gen.Generate(ctx, p)
		if err == nil {
			return url, nil
		}
		lastErr = err
		logger.Warn("Image generation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return "", lastErr
}
