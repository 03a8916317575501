package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/models"
	"github.com/danaingraham/storyhealer/internal/repository"
)

// unclearHelpResponse is the advisory answer for messages unrelated to
// story editing. No mutation happens for these.
const unclearHelpResponse = "I can help you edit the story text, update illustrations, or change character details. What would you like me to modify?"

// ChatService orchestrates a page edit conversation: classify the
// request, dispatch to the matching mutator, log the exchange.
type ChatService struct {
	stories       repository.StoryRepository
	pages         repository.PageRepository
	characters    repository.CharacterRepository
	conversations repository.ConversationRepository
	db            repository.DBTX
	classifier    *IntentClassifier
	text          *TextMutator
	image         *ImageMutator
	global        *GlobalMutator
	logger        *zap.Logger
}

func NewChatService(
	stories repository.StoryRepository,
	pages repository.PageRepository,
	characters repository.CharacterRepository,
	conversations repository.ConversationRepository,
	db repository.DBTX,
	classifier *IntentClassifier,
	text *TextMutator,
	image *ImageMutator,
	global *GlobalMutator,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		stories:       stories,
		pages:         pages,
		characters:    characters,
		conversations: conversations,
		db:            db,
		classifier:    classifier,
		text:          text,
		image:         image,
		global:        global,
		logger:        logger.Named("ChatService"),
	}
}

// ChatRequest is a page edit message. ForceUpdateType, when set,
// bypasses intent classification entirely.
type ChatRequest struct {
	StoryID         uuid.UUID
	UserID          string
	PageNumber      int
	Message         string
	ForceUpdateType models.UpdateType
}

// Process runs one edit exchange. The returned result always carries a
// conversational response; errors are reserved for ownership and
// existence failures, never for a model that could not help.
func (s *ChatService) Process(ctx context.Context, req ChatRequest) (*MutationResult, error) {
	story, err := s.stories.GetForUser(ctx, s.db, req.StoryID, req.UserID)
	if err != nil {
		return nil, err
	}
	child, err := s.characters.GetByID(ctx, s.db, story.ChildID)
	if err != nil {
		return nil, err
	}
	page, err := s.pages.GetByNumber(ctx, s.db, req.StoryID, req.PageNumber)
	if err != nil {
		return nil, err
	}

	storyCtx := StoryContext(story, child)

	var intent Intent
	if req.ForceUpdateType != "" {
		if !req.ForceUpdateType.Valid() {
			return nil, models.ErrInvalidInput
		}
		s.logger.Info("Forcing update type",
			zap.String("updateType", string(req.ForceUpdateType)))
		intent = Intent{
			UpdateType:  req.ForceUpdateType,
			Instruction: req.Message,
			Scope:       "current_page",
		}
	} else {
		intent = s.classifier.Classify(ctx, req.Message, pageContext(page), storyCtx)
	}

	s.logger.Info("Processing chat message",
		zap.String("storyID", req.StoryID.String()),
		zap.Int("pageNumber", req.PageNumber),
		zap.String("updateType", string(intent.UpdateType)))

	result := s.dispatch(ctx, intent, story, child, page, storyCtx)

	s.recordExchange(ctx, req, result.Response)
	return &result, nil
}

func (s *ChatService) dispatch(ctx context.Context, intent Intent, story *models.Story, child *models.Child, page *models.Page, storyCtx ai.StoryContext) MutationResult {
	switch intent.UpdateType {
	case models.UpdateTypeText:
		return s.text.Mutate(ctx, page, intent.Instruction, storyCtx)

	case models.UpdateTypeImage:
		return s.image.Mutate(ctx, page, intent.Instruction, storyCtx)

	case models.UpdateTypeBoth:
		textInstruction := intent.TextInstruction
		if textInstruction == "" {
			textInstruction = intent.Instruction
		}
		imageInstruction := intent.ImageInstruction
		if imageInstruction == "" {
			imageInstruction = intent.Instruction
		}
		textResult := s.text.Mutate(ctx, page, textInstruction, storyCtx)
		imageResult := s.image.Mutate(ctx, page, imageInstruction, storyCtx)
		return MutationResult{
			Response: textResult.Response + " " + imageResult.Response,
			Updated:  textResult.Updated || imageResult.Updated,
		}

	case models.UpdateTypeGlobal:
		return s.global.Mutate(ctx, child, story.ID, intent.Instruction)

	default:
		return MutationResult{Response: unclearHelpResponse}
	}
}

// recordExchange appends the user message and the assistant response to
// the page's conversation log. Logging is best effort: a failed append
// never fails the edit that already happened.
func (s *ChatService) recordExchange(ctx context.Context, req ChatRequest, response string) {
	now := time.Now().UTC()
	err := s.conversations.AppendMessages(ctx, s.db, req.StoryID, req.PageNumber,
		models.ChatMessage{Role: "user", Content: req.Message, Timestamp: now},
		models.ChatMessage{Role: "assistant", Content: response, Timestamp: now},
	)
	if err != nil {
		s.logger.Warn("Failed to record conversation exchange",
			zap.Error(err),
			zap.String("storyID", req.StoryID.String()),
			zap.Int("pageNumber", req.PageNumber))
	}
}

// StoryContext assembles the prompt-building view of a story and its
// child profile.
func StoryContext(story *models.Story, child *models.Child) ai.StoryContext {
	return ai.StoryContext{
		Title:           story.Title,
		ChildName:       child.Name,
		ChildAge:        child.Age,
		ChildAppearance: child.AppearanceDescription,
		FearDescription: story.FearDescription,
		PageCount:       len(story.Pages),
	}
}
