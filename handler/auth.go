package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/daito-dot/AI-CONNECTIVE/internal/usecase"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) handleSignUp(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body signUpRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}

	out, err := h.users.SignUp(ctx, usecase.SignUpInput{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
	})
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, out), nil
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) handleConfirm(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body confirmRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}

	if err := h.users.Confirm(ctx, body.Email, body.Code); err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, map[string]string{"message": "confirmed"}), nil
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleSignIn(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body signInRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}

	out, err := h.users.SignIn(ctx, body.Email, body.Password)
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, out), nil
}

func (h *Handler) handleProfileGet(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	user, err := h.users.GetProfile(ctx, req.QueryStringParameters["userId"])
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, user), nil
}

type profileUpdateRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleProfileUpdate(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body profileUpdateRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}

	user, err := h.users.UpdateProfile(ctx, req.QueryStringParameters["userId"], body.Name)
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, user), nil
}
