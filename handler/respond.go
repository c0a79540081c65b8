package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daito-dot/AI-CONNECTIVE/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type errorResponse struct {
	Error string `json:"error"`
}

var statusByCode = map[usecase.ErrorCode]int{
	usecase.ErrorValidation:          http.StatusBadRequest,
	usecase.ErrorUnknownModel:        http.StatusBadRequest,
	usecase.ErrorUnsupportedFileType: http.StatusBadRequest,
	usecase.ErrorForbiddenVisibility: http.StatusForbidden,
	usecase.ErrorForbiddenRole:       http.StatusForbidden,
	usecase.ErrorForbiddenScope:      http.StatusForbidden,
	usecase.ErrorNotFound:            http.StatusNotFound,
	usecase.ErrorAuthFailure:         http.StatusUnauthorized,
	usecase.ErrorProvider:            http.StatusInternalServerError,
	usecase.ErrorStorage:             http.StatusInternalServerError,
	usecase.ErrorInternal:            http.StatusInternalServerError,
}

func baseHeaders(corrID string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		correlationHeader:              corrID,
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization,X-Amz-Date,X-Api-Key,X-Amz-Security-Token",
		"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
	}
}

func respondEmpty(corrID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    baseHeaders(corrID),
	}
}

func respondJSON(corrID string, status int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(`{"error":"` + string(usecase.ErrorInternal) + `"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    baseHeaders(corrID),
		Body:       string(raw),
	}
}

// respondError maps a service error onto the HTTP taxonomy. Provider failures
// surface the vendor's own message, client errors surface the service reason,
// and everything else reads as the bare code so storage and internal causes
// never leak. Unexpected error types read as internal.
func (h *Handler) respondError(corrID string, err error) events.APIGatewayProxyResponse {
	code := usecase.ErrorInternal
	var ue *usecase.Error
	if errors.As(err, &ue) {
		code = ue.Code
	}
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := string(code)
	if ue != nil {
		switch {
		case code == usecase.ErrorProvider && ue.Err != nil:
			msg = ue.Err.Error()
		case status < http.StatusInternalServerError && ue.Reason != "":
			msg = ue.Reason
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("correlationId", corrID),
			zap.String("code", string(code)),
			zap.Error(err),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("correlationId", corrID),
			zap.String("code", string(code)),
		)
	}
	return respondJSON(corrID, status, errorResponse{Error: msg})
}

func correlationID(headers map[string]string) string {
	if v := headerValue(headers, correlationHeader); v != "" {
		return v
	}
	return uuid.NewString()
}
