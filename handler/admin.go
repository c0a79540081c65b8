package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/usecase"
)

type userListResponse struct {
	Users []domain.User `json:"users"`
}

func (h *Handler) handleAdminListUsers(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	actor, err := h.authorize(ctx, req)
	if err != nil {
		return h.respondError(corrID, err), nil
	}

	users, err := h.users.ListUsers(ctx, actor, req.QueryStringParameters["organizationId"])
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, userListResponse{Users: users}), nil
}

type createUserRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	OrganizationID    string `json:"organizationId"`
	CompanyID         string `json:"companyId"`
	DepartmentID      string `json:"departmentId"`
	TemporaryPassword string `json:"temporaryPassword"`
}

func (h *Handler) handleAdminCreateUser(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	actor, err := h.authorize(ctx, req)
	if err != nil {
		return h.respondError(corrID, err), nil
	}

	var body createUserRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}

	out, err := h.users.CreateUser(ctx, actor, usecase.CreateUserInput{
		Email:             body.Email,
		Name:              body.Name,
		Role:              domain.Role(body.Role),
		OrganizationID:    body.OrganizationID,
		CompanyID:         body.CompanyID,
		DepartmentID:      body.DepartmentID,
		TemporaryPassword: body.TemporaryPassword,
	})
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, out), nil
}
