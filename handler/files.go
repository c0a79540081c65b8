package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/usecase"
)

type uploadRequest struct {
	FileName       string `json:"fileName"`
	FileType       string `json:"fileType"`
	MimeType       string `json:"mimeType"`
	FileDataBase64 string `json:"fileDataBase64"`
	UserID         string `json:"userId"`
	UserRole       string `json:"userRole"`
	OrganizationID string `json:"organizationId"`
	CompanyID      string `json:"companyId"`
	DepartmentID   string `json:"departmentId"`
	Visibility     string `json:"visibility"`
	Category       string `json:"category"`
	Description    string `json:"description"`
}

func (h *Handler) handleFileUpload(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body uploadRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}

	out, err := h.files.Upload(ctx, usecase.UploadInput{
		FileName:       body.FileName,
		FileType:       domain.FileType(body.FileType),
		MimeType:       body.MimeType,
		FileDataBase64: body.FileDataBase64,
		Actor: domain.Actor{
			UserID:         body.UserID,
			Role:           domain.Role(body.UserRole),
			OrganizationID: body.OrganizationID,
			CompanyID:      body.CompanyID,
			DepartmentID:   body.DepartmentID,
		},
		Visibility:  domain.Visibility(body.Visibility),
		Category:    domain.FileCategory(body.Category),
		Description: body.Description,
	})
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, out), nil
}

type fileListResponse struct {
	Files []domain.FileRecord `json:"files"`
}

func (h *Handler) handleFileList(ctx context.Context, corrID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	actor := actorFromQuery(req.QueryStringParameters)
	category := domain.FileCategory(req.QueryStringParameters["category"])

	files, err := h.files.List(ctx, actor, category)
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, fileListResponse{Files: files}), nil
}

func (h *Handler) handleFileGet(ctx context.Context, corrID string, req events.APIGatewayProxyRequest, fileID string) (events.APIGatewayProxyResponse, error) {
	actor := actorFromQuery(req.QueryStringParameters)
	file, err := h.files.Get(ctx, actor, fileID)
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, file), nil
}

type fileUpdateRequest struct {
	UserID         string `json:"userId"`
	UserRole       string `json:"userRole"`
	OrganizationID string `json:"organizationId"`
	CompanyID      string `json:"companyId"`
	DepartmentID   string `json:"departmentId"`
	Visibility     string `json:"visibility"`
}

func (h *Handler) handleFileUpdate(ctx context.Context, corrID string, req events.APIGatewayProxyRequest, fileID string) (events.APIGatewayProxyResponse, error) {
	var body fileUpdateRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}
	actor := domain.Actor{
		UserID:         body.UserID,
		Role:           domain.Role(body.UserRole),
		OrganizationID: body.OrganizationID,
		CompanyID:      body.CompanyID,
		DepartmentID:   body.DepartmentID,
	}

	file, err := h.files.UpdateVisibility(ctx, actor, fileID, domain.Visibility(body.Visibility))
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, file), nil
}

func (h *Handler) handleFileDelete(ctx context.Context, corrID string, req events.APIGatewayProxyRequest, fileID string) (events.APIGatewayProxyResponse, error) {
	actor := actorFromQuery(req.QueryStringParameters)
	if err := h.files.Delete(ctx, actor, fileID); err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, map[string]string{"message": "deleted"}), nil
}

type fileQueryRequest struct {
	Question       string `json:"question"`
	UserID         string `json:"userId"`
	UserRole       string `json:"userRole"`
	OrganizationID string `json:"organizationId"`
	CompanyID      string `json:"companyId"`
	DepartmentID   string `json:"departmentId"`
}

func (h *Handler) handleFileQuery(ctx context.Context, corrID string, req events.APIGatewayProxyRequest, fileID string) (events.APIGatewayProxyResponse, error) {
	var body fileQueryRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return h.respondError(corrID, &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}), nil
	}
	actor := domain.Actor{
		UserID:         body.UserID,
		Role:           domain.Role(body.UserRole),
		OrganizationID: body.OrganizationID,
		CompanyID:      body.CompanyID,
		DepartmentID:   body.DepartmentID,
	}

	out, err := h.files.Query(ctx, actor, fileID, body.Question)
	if err != nil {
		return h.respondError(corrID, err), nil
	}
	return respondJSON(corrID, http.StatusOK, out), nil
}
