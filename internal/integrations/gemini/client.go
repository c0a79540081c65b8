// Package gemini is a focused client for the Gemini generateContent API,
// adapting it to the neutral chat contract.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
)

const (
	providerTag      = "gemini"
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultMaxTokens = 8192
)

// Wire shapes, minimal for generateContent.

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Getter resolves the API key from the parameter store when no static key
// was configured.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client invokes Gemini models over REST.
type Client struct {
	baseURL    string
	httpClient *http.Client

	staticKey string
	getter    Getter
	paramName string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithParamStoreKey configures a parameter-store fallback for the API key,
// used when the static key is empty. The key is fetched on the first Invoke
// and reused for the lifetime of the process.
func WithParamStoreKey(getter Getter, paramName string) Option {
	return func(c *Client) {
		c.getter = getter
		c.paramName = strings.TrimSpace(paramName)
	}
}

// NewClient creates a Client. apiKey may be empty when a parameter-store
// fallback is configured.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		staticKey:  strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.staticKey == "" && (c.getter == nil || c.paramName == "") {
		return nil, errors.New("gemini: api key or parameter-store fallback is required")
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		if c.staticKey != "" {
			c.apiKey = c.staticKey
			return
		}
		raw, err := c.getter.GetParameter(ctx, c.paramName)
		if err != nil {
			c.keyErr = fmt.Errorf("gemini: fetch api key from paramstore: %w", err)
			return
		}
		if strings.TrimSpace(raw) == "" {
			c.keyErr = errors.New("gemini: api key parameter is empty")
			return
		}
		c.apiKey = strings.TrimSpace(raw)
	})
	return c.apiKey, c.keyErr
}

// toRole maps neutral roles to the Gemini wire roles.
func toRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

func toParts(msg domain.ChatMessage) []part {
	parts := []part{{Text: msg.Content}}
	for _, att := range msg.Attachments {
		if !strings.HasPrefix(att.MediaType, "image/") {
			continue
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: att.MediaType,
			Data:     att.Bytes,
		}})
	}
	return parts
}

// Invoke translates the neutral request to a generateContent call and back.
func (c *Client) Invoke(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if req.ModelID == "" {
		return domain.ChatResponse{}, errors.New("gemini: model id must not be empty")
	}
	if len(req.Messages) == 0 {
		return domain.ChatResponse{}, errors.New("gemini: messages must not be empty")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	wire := generateRequest{
		GenerationConfig: &generationConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.SystemPrompt != "" {
		wire.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	for _, msg := range req.Messages {
		wire.Contents = append(wire.Contents, content{
			Role:  toRole(msg.Role),
			Parts: toParts(msg),
		})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/models/" + req.ModelID + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	raw, err := c.doJSONRequest(httpReq, url)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("gemini: request failed: %w", err)
	}

	var payload generateResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return domain.ChatResponse{}, fmt.Errorf("gemini: decode response: %w", decErr)
	}
	if len(payload.Candidates) == 0 {
		return domain.ChatResponse{}, errors.New("gemini: no candidates in response")
	}

	var text strings.Builder
	for _, p := range payload.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	resp := domain.ChatResponse{
		Content:     text.String(),
		ModelID:     req.ModelID,
		ProviderTag: providerTag,
	}
	if payload.UsageMetadata != nil {
		resp.Usage = &domain.Usage{
			InputTokens:  payload.UsageMetadata.PromptTokenCount,
			OutputTokens: payload.UsageMetadata.CandidatesTokenCount,
		}
	}
	return resp, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<22))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
