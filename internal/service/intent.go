package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
)

// Intent is the classified interpretation of an edit request.
type Intent struct {
	UpdateType       models.UpdateType `json:"updateType"`
	Instruction      string            `json:"instruction"`
	TextInstruction  string            `json:"textInstruction"`
	ImageInstruction string            `json:"imageInstruction"`
	Scope            string            `json:"scope"`
}

// imageKeywords trigger the image fallback classification. The list is
// deliberately conservative: anything else defaults to text.
var imageKeywords = []string{
	"picture", "image", "illustration", "visual", "drawing", "art",
	"style", "cartoon", "watercolor", "vibrant", "color",
}

// IntentClassifier decides what kind of edit a chat message asks for.
type IntentClassifier struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewIntentClassifier(generator ai.Generator, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{generator: generator, logger: logger.Named("IntentClassifier")}
}

// Classify never fails: when the model call or its parse fails, the
// keyword fallback decides between image and text so the user always
// gets an edit attempt rather than an error.
func (c *IntentClassifier) Classify(ctx context.Context, message string, page ai.PageContext, story ai.StoryContext) Intent {
	prompt := ai.BuildIntentPrompt(message, page, story)

	raw, err := c.generator.Invoke(ctx, prompt)
	if err != nil {
		c.logger.Warn("Intent model call failed, using keyword fallback", zap.Error(err))
		return fallbackIntent(message)
	}

	obj := ai.ExtractJSONObject(raw)
	if obj == "" {
		c.logger.Warn("Intent response carried no JSON, using keyword fallback")
		return fallbackIntent(message)
	}

	var intent Intent
	if err := json.Unmarshal([]byte(obj), &intent); err != nil || !intent.UpdateType.Valid() {
		c.logger.Warn("Intent response unparseable, using keyword fallback",
			zap.Error(err), zap.String("updateType", string(intent.UpdateType)))
		return fallbackIntent(message)
	}

	if intent.Instruction == "" {
		intent.Instruction = message
	}
	if intent.Scope == "" {
		intent.Scope = "current_page"
	}
	return intent
}

func fallbackIntent(message string) Intent {
	updateType := models.UpdateTypeText
	lower := strings.ToLower(message)
	for _, kw := range imageKeywords {
		if strings.Contains(lower, kw) {
			updateType = models.UpdateTypeImage
			break
		}
	}
	return Intent{
		UpdateType:  updateType,
		Instruction: message,
		Scope:       "current_page",
	}
}
