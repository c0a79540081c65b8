package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
)

type conversationListResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}

type conversationDetailResponse struct {
	Conversation domain.Conversation          `json:"conversation"`
	Messages     []domain.ConversationMessage `json:"messages"`
}

func (h *Handler) handleConversationList(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := req.QueryStringParameters["userId"]
	limit := 0
	if raw := req.QueryStringParameters["limit"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	convs, err := h.chat.ListConversations(ctx, userID, limit)
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, conversationListResponse{Conversations: convs}), nil
}

func (h *Handler) handleConversationGet(ctx context.Context, corrID, conversationID string) (events.APIGatewayProxyResponse, error) {
	conv, msgs, err := h.chat.GetConversation(ctx, conversationID)
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, conversationDetailResponse{Conversation: conv, Messages: msgs}), nil
}

func (h *Handler) handleConversationDelete(ctx context.Context, corrID, conversationID string) (events.APIGatewayProxyResponse, error) {
	if err := h.chat.DeleteConversation(ctx, conversationID); err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, map[string]string{"message": "deleted"}), nil
}
