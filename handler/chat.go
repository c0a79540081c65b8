package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/registry"
	"github.com/daito-dot/AI-CONNECTIVE/internal/usecase"
)

type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []domain.ChatMessage `json:"messages"`
	SystemPrompt   string               `json:"systemPrompt"`
	MaxTokens      int                  `json:"maxTokens"`
	Temperature    *float64             `json:"temperature"`
	ConversationID string               `json:"conversationId"`
	UserID         string               `json:"userId"`
	FileIDs        []string             `json:"fileIds"`
	SaveHistory    *bool                `json:"saveHistory"`
}

func (h *Handler) handleChat(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body chatRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{
		Model:          body.Model,
		Messages:       body.Messages,
		SystemPrompt:   body.SystemPrompt,
		MaxTokens:      body.MaxTokens,
		Temperature:    body.Temperature,
		ConversationID: body.ConversationID,
		UserID:         body.UserID,
		FileIDs:        body.FileIDs,
		SaveHistory:    body.SaveHistory,
	})
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, out), nil
}

type modelsResponse struct {
	Models []registry.ModelInfo `json:"models"`
}

func (h *Handler) handleListModels(corrID string) (events.APIGatewayProxyResponse, error) {
	return respondJSON(corrID, http.StatusOK, modelsResponse{Models: registry.List()}), nil
}
