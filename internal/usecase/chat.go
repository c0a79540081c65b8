package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/registry"
	"github.com/daito-dot/AI-CONNECTIVE/internal/repository"
)

// Context injection markers. Providers see file contents verbatim between the
// delimiters; truncation strategies must keep the delimiters intact.
const (
	ragInstruction    = "以下のファイル内容を参考にして回答してください。"
	ragOpenDelimiter  = "--- ファイル内容 ---"
	ragCloseDelimiter = "--- ファイル終了 ---"
)

// ConversationStore is the conversation persistence consumed by ChatService.
type ConversationStore interface {
	PutConversation(ctx context.Context, cv domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (domain.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string, limit int) ([]domain.Conversation, error)
	PutMessage(ctx context.Context, conversationID string, msg domain.ConversationMessage) error
	ListMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error)
	ApplyTurn(ctx context.Context, conversationID string, totals repository.TurnTotals) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

// ContextProvider resolves a file id to its injectable text for one actor.
type ContextProvider interface {
	TextForRAG(ctx context.Context, actor domain.Actor, fileID string) (string, error)
}

// UserReader looks up the caller's persisted scope for file access checks.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// ChatService orchestrates one chat turn: validation, context assembly,
// provider dispatch, cost accounting and conversation persistence.
type ChatService struct {
	convs     ConversationStore
	rag       ContextProvider
	users     UserReader
	providers map[string]domain.Invoker
	logger    *zap.Logger
	now       func() time.Time
}

func NewChatService(convs ConversationStore, rag ContextProvider, users UserReader, providers map[string]domain.Invoker, logger *zap.Logger) (*ChatService, error) {
	if convs == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	if rag == nil {
		return nil, errors.New("usecase: context provider must not be nil")
	}
	if users == nil {
		return nil, errors.New("usecase: user reader must not be nil")
	}
	if len(providers) == 0 {
		return nil, errors.New("usecase: at least one provider must be configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		convs:     convs,
		rag:       rag,
		users:     users,
		providers: providers,
		logger:    logger,
		now:       time.Now,
	}, nil
}

type ChatInput struct {
	Model          string
	Messages       []domain.ChatMessage
	SystemPrompt   string
	MaxTokens      int
	Temperature    *float64
	ConversationID string
	UserID         string
	FileIDs        []string
	SaveHistory    *bool
}

type ChatOutput struct {
	Content        string        `json:"content"`
	Model          string        `json:"model"`
	Provider       string        `json:"provider"`
	ConversationID string        `json:"conversationId,omitempty"`
	Usage          *domain.Usage `json:"usage,omitempty"`
}

// Chat runs the full turn pipeline. The provider response is authoritative:
// if persistence fails afterwards the content is still returned, without a
// conversationId, and the failure is logged.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	modelID := strings.TrimSpace(in.Model)
	if modelID == "" {
		return ChatOutput{}, newError(ErrorValidation, "missing_model", nil)
	}
	model, ok := registry.Lookup(modelID)
	if !ok {
		return ChatOutput{}, newError(ErrorUnknownModel, "unknown_model", nil)
	}
	if len(in.Messages) == 0 {
		return ChatOutput{}, newError(ErrorValidation, "empty_messages", nil)
	}

	actor := s.resolveActor(ctx, in.UserID)
	systemPrompt := s.assembleSystemPrompt(ctx, actor, in.SystemPrompt, in.FileIDs)

	invoker, ok := s.providers[model.Provider]
	if !ok {
		return ChatOutput{}, newError(ErrorInternal, "provider_not_configured", nil)
	}
	resp, err := invoker.Invoke(ctx, domain.ChatRequest{
		ModelID:      model.ModelID,
		Messages:     in.Messages,
		SystemPrompt: systemPrompt,
		MaxTokens:    in.MaxTokens,
		Temperature:  in.Temperature,
	})
	if err != nil {
		return ChatOutput{}, newError(ErrorProvider, "provider_invoke_error", err)
	}

	var inputTokens, outputTokens int
	var cost float64
	if resp.Usage != nil {
		inputTokens = resp.Usage.InputTokens
		outputTokens = resp.Usage.OutputTokens
		cost = model.Cost(inputTokens, outputTokens)
	}

	out := ChatOutput{
		Content:  resp.Content,
		Model:    model.ModelID,
		Provider: model.Provider,
		Usage:    resp.Usage,
	}

	if in.SaveHistory != nil && !*in.SaveHistory {
		return out, nil
	}
	if in.UserID == "" {
		s.logger.Debug("skipping history persistence for anonymous turn")
		return out, nil
	}

	convID, err := s.persistTurn(ctx, in, actor, model, resp.Content, inputTokens, outputTokens, cost)
	if err != nil {
		s.logger.Error("conversation persistence failed",
			zap.String("userId", in.UserID),
			zap.String("conversationId", in.ConversationID),
			zap.Error(err),
		)
		return out, nil
	}
	out.ConversationID = convID
	return out, nil
}

// resolveActor loads the caller's scope. Unknown callers act with no scope at
// all, which restricts context assembly to system-visible files.
func (s *ChatService) resolveActor(ctx context.Context, userID string) domain.Actor {
	if userID == "" {
		return domain.Actor{}
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("actor lookup failed", zap.String("userId", userID), zap.Error(err))
		}
		return domain.Actor{UserID: userID, Role: domain.RoleUser}
	}
	return user.AsActor()
}

// assembleSystemPrompt fetches referenced file contents concurrently,
// preserving request order in the concatenation. Files that are missing or
// not visible to the actor are skipped without comment.
func (s *ChatService) assembleSystemPrompt(ctx context.Context, actor domain.Actor, base string, fileIDs []string) string {
	if len(fileIDs) == 0 {
		return base
	}

	texts := make([]string, len(fileIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		i, fileID := i, fileID
		g.Go(func() error {
			text, err := s.rag.TextForRAG(gctx, actor, fileID)
			if err != nil {
				s.logger.Debug("context file skipped", zap.String("fileId", fileID), zap.Error(err))
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	blocks := make([]string, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			continue
		}
		blocks = append(blocks, ragOpenDelimiter+"\n"+text+"\n"+ragCloseDelimiter)
	}
	if len(blocks) == 0 {
		return base
	}
	section := ragInstruction + "\n" + strings.Join(blocks, "\n")
	if base == "" {
		return section
	}
	return base + "\n\n" + section
}

// persistTurn upserts the conversation, writes both halves of the turn and
// bumps the metadata counters in a single update.
func (s *ChatService) persistTurn(ctx context.Context, in ChatInput, actor domain.Actor, model registry.ModelInfo, content string, inputTokens, outputTokens int, cost float64) (string, error) {
	base := s.now().UTC()
	userAt := base.Format(timeLayout)
	// The assistant message sorts strictly after the user message even when
	// both land in the same clock tick.
	assistantAt := base.Add(time.Millisecond).Format(timeLayout)

	convID := in.ConversationID
	if convID == "" {
		convID = newUUID()
		if err := s.createConversation(ctx, convID, in, actor, model.ModelID, userAt); err != nil {
			return "", err
		}
	} else if _, err := s.convs.GetConversation(ctx, convID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", err
		}
		if err := s.createConversation(ctx, convID, in, actor, model.ModelID, userAt); err != nil {
			return "", err
		}
	}

	userMsg := domain.ConversationMessage{
		MessageID: newUUID(),
		Role:      "user",
		Content:   latestUserContent(in.Messages),
		CreatedAt: userAt,
	}
	if err := s.convs.PutMessage(ctx, convID, userMsg); err != nil {
		return "", err
	}

	assistantMsg := domain.ConversationMessage{
		MessageID:    newUUID(),
		Role:         "assistant",
		Content:      content,
		ModelID:      model.ModelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		CreatedAt:    assistantAt,
	}
	if err := s.convs.PutMessage(ctx, convID, assistantMsg); err != nil {
		return "", err
	}

	err := s.convs.ApplyTurn(ctx, convID, repository.TurnTotals{
		Messages:     2,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		UpdatedAt:    assistantAt,
	})
	if err != nil {
		return "", err
	}
	return convID, nil
}

func (s *ChatService) createConversation(ctx context.Context, convID string, in ChatInput, actor domain.Actor, modelID, now string) error {
	return s.convs.PutConversation(ctx, domain.Conversation{
		ConversationID: convID,
		Title:          conversationTitle(in.Messages),
		UserID:         in.UserID,
		OrganizationID: actor.OrganizationID,
		CompanyID:      actor.CompanyID,
		DepartmentID:   actor.DepartmentID,
		ModelID:        modelID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// ListConversations returns the caller's conversations most-recent-first.
func (s *ChatService) ListConversations(ctx context.Context, userID string, limit int) ([]domain.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newError(ErrorValidation, "missing_user_id", nil)
	}
	convs, err := s.convs.ListConversationsByUser(ctx, userID, limit)
	if err != nil {
		return nil, newError(ErrorStorage, "list_conversations_error", err)
	}
	return convs, nil
}

// GetConversation returns the metadata record and the chronological messages.
func (s *ChatService) GetConversation(ctx context.Context, conversationID string) (domain.Conversation, []domain.ConversationMessage, error) {
	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Conversation{}, nil, newError(ErrorNotFound, "conversation_not_found", nil)
		}
		return domain.Conversation{}, nil, newError(ErrorStorage, "conversation_read_error", err)
	}
	msgs, err := s.convs.ListMessages(ctx, conversationID)
	if err != nil {
		return domain.Conversation{}, nil, newError(ErrorStorage, "messages_read_error", err)
	}
	return conv, msgs, nil
}

// DeleteConversation removes the metadata record and every message.
func (s *ChatService) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := s.convs.DeleteConversation(ctx, conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrorNotFound, "conversation_not_found", nil)
		}
		return newError(ErrorStorage, "conversation_delete_error", err)
	}
	return nil
}

// conversationTitle derives the thread title from the first user message.
func conversationTitle(messages []domain.ChatMessage) string {
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if m.Role == "user" && content != "" {
			runes := []rune(content)
			if len(runes) > conversationTitleN {
				runes = runes[:conversationTitleN]
			}
			return string(runes)
		}
	}
	return "新しい会話"
}

// latestUserContent is the turn's incoming user message: the last user-role
// entry, falling back to the final message.
func latestUserContent(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return messages[len(messages)-1].Content
}
