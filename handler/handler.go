// Package handler adapts API Gateway proxy events onto the service layer.
// Routing, body decoding and error-to-status mapping live here; all domain
// decisions stay in the services.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/usecase"
)

// ChatService is the chat orchestration surface consumed by the handler.
type ChatService interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]domain.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (domain.Conversation, []domain.ConversationMessage, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// FileService is the file management surface consumed by the handler.
type FileService interface {
	Upload(ctx context.Context, in usecase.UploadInput) (usecase.UploadOutput, error)
	List(ctx context.Context, actor domain.Actor, category domain.FileCategory) ([]domain.FileRecord, error)
	Get(ctx context.Context, actor domain.Actor, fileID string) (domain.FileRecord, error)
	UpdateVisibility(ctx context.Context, actor domain.Actor, fileID string, visibility domain.Visibility) (domain.FileRecord, error)
	Delete(ctx context.Context, actor domain.Actor, fileID string) error
	Query(ctx context.Context, actor domain.Actor, fileID, question string) (usecase.QueryOutput, error)
}

// UserService is the auth and admin surface consumed by the handler.
type UserService interface {
	SignUp(ctx context.Context, in usecase.SignUpInput) (usecase.SignUpOutput, error)
	Confirm(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (usecase.SignInOutput, error)
	GetProfile(ctx context.Context, userID string) (domain.User, error)
	UpdateProfile(ctx context.Context, userID, name string) (domain.User, error)
	ResolveActor(ctx context.Context, userID string) (domain.Actor, error)
	ListUsers(ctx context.Context, actor domain.Actor, organizationID string) ([]domain.User, error)
	CreateUser(ctx context.Context, actor domain.Actor, in usecase.CreateUserInput) (usecase.CreateUserOutput, error)
}

// TokenVerifier authenticates the bearer value on admin routes.
type TokenVerifier interface {
	Verify(ctx context.Context, bearer string) (string, error)
}

type Handler struct {
	chat     ChatService
	files    FileService
	users    UserService
	verifier TokenVerifier
	logger   *zap.Logger
}

func NewHandler(chat ChatService, files FileService, users UserService, verifier TokenVerifier, logger *zap.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	if files == nil {
		return nil, errors.New("handler: file service must not be nil")
	}
	if users == nil {
		return nil, errors.New("handler: user service must not be nil")
	}
	if verifier == nil {
		return nil, errors.New("handler: token verifier must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chat: chat, files: files, users: users, verifier: verifier, logger: logger}, nil
}

// Handle routes one proxy event. OPTIONS always succeeds so browser
// preflights never reach the services.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	if req.HTTPMethod == http.MethodOptions {
		return respondEmpty(corrID), nil
	}
	h.logger.Info("request",
		zap.String("correlationId", corrID),
		zap.String("method", req.HTTPMethod),
		zap.String("path", req.Path),
	)

	seg := pathSegments(req.Path)
	method := req.HTTPMethod

	switch {
	case method == http.MethodPost && pathIs(seg, "chat"):
		return h.handleChat(ctx, corrID, req)
	case method == http.MethodGet && pathIs(seg, "models"):
		return h.handleListModels(corrID)

	case method == http.MethodPost && pathIs(seg, "files", "upload"):
		return h.handleFileUpload(ctx, corrID, req)
	case method == http.MethodGet && pathIs(seg, "files"):
		return h.handleFileList(ctx, corrID, req)
	case method == http.MethodGet && len(seg) == 2 && seg[0] == "files":
		return h.handleFileGet(ctx, corrID, req, seg[1])
	case method == http.MethodPut && len(seg) == 2 && seg[0] == "files":
		return h.handleFileUpdate(ctx, corrID, req, seg[1])
	case method == http.MethodDelete && len(seg) == 2 && seg[0] == "files":
		return h.handleFileDelete(ctx, corrID, req, seg[1])
	case method == http.MethodPost && len(seg) == 3 && seg[0] == "files" && seg[2] == "query":
		return h.handleFileQuery(ctx, corrID, req, seg[1])

	case method == http.MethodGet && pathIs(seg, "conversations"):
		return h.handleConversationList(ctx, corrID, req)
	case method == http.MethodGet && len(seg) == 2 && seg[0] == "conversations":
		return h.handleConversationGet(ctx, corrID, seg[1])
	case method == http.MethodDelete && len(seg) == 2 && seg[0] == "conversations":
		return h.handleConversationDelete(ctx, corrID, seg[1])

	case method == http.MethodPost && pathIs(seg, "auth", "signup"):
		return h.handleSignUp(ctx, corrID, req)
	case method == http.MethodPost && pathIs(seg, "auth", "confirm"):
		return h.handleConfirm(ctx, corrID, req)
	case method == http.MethodPost && pathIs(seg, "auth", "signin"):
		return h.handleSignIn(ctx, corrID, req)
	case method == http.MethodGet && pathIs(seg, "auth", "profile"):
		return h.handleProfileGet(ctx, corrID, req)
	case method == http.MethodPut && pathIs(seg, "auth", "profile"):
		return h.handleProfileUpdate(ctx, corrID, req)

	case method == http.MethodGet && pathIs(seg, "admin", "users"):
		return h.handleAdminListUsers(ctx, corrID, req)
	case method == http.MethodPost && pathIs(seg, "admin", "users"):
		return h.handleAdminCreateUser(ctx, corrID, req)
	}

	return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorNotFound, Reason: "route_not_found"}), nil
}

// authorize verifies the bearer token and resolves the subject's actor.
func (h *Handler) authorize(ctx context.Context, req events.APIGatewayProxyRequest) (domain.Actor, error) {
	raw := headerValue(req.Headers, "Authorization")
	bearer := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if bearer == "" {
		return domain.Actor{}, &usecase.Error{Code: usecase.ErrorAuthFailure, Reason: "missing_bearer_token"}
	}
	sub, err := h.verifier.Verify(ctx, bearer)
	if err != nil {
		return domain.Actor{}, &usecase.Error{Code: usecase.ErrorAuthFailure, Reason: "invalid_bearer_token", Err: err}
	}
	return h.users.ResolveActor(ctx, sub)
}

// actorFromQuery builds the caller's claimed scope from query parameters.
func actorFromQuery(params map[string]string) domain.Actor {
	return domain.Actor{
		UserID:         params["userId"],
		Role:           domain.Role(params["userRole"]),
		OrganizationID: params["organizationId"],
		CompanyID:      params["companyId"],
		DepartmentID:   params["departmentId"],
	}
}

func pathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func pathIs(seg []string, want ...string) bool {
	if len(seg) != len(want) {
		return false
	}
	for i := range want {
		if seg[i] != want[i] {
			return false
		}
	}
	return true
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
