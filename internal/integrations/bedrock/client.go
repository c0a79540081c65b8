// Package bedrock adapts the unified Converse API to the neutral chat
// contract. Model identifiers are cross-region inference profiles (us.*),
// so the client must be constructed for the region hosting the profiles.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	br "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
)

const (
	providerTag        = "bedrock"
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// bedrockAPI is the minimal Bedrock runtime interface required by Client.
type bedrockAPI interface {
	Converse(ctx context.Context, in *br.ConverseInput, optFns ...func(*br.Options)) (*br.ConverseOutput, error)
}

// Client invokes models through the Converse API.
type Client struct {
	api bedrockAPI
}

// New creates a Client.
func New(api bedrockAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	return &Client{api: api}, nil
}

// imageFormat maps a recognized media type to the Converse image format.
// Unknown types return "" and the attachment is dropped from the payload.
func imageFormat(mediaType string) brtypes.ImageFormat {
	switch mediaType {
	case "image/png":
		return brtypes.ImageFormatPng
	case "image/jpeg":
		return brtypes.ImageFormatJpeg
	case "image/gif":
		return brtypes.ImageFormatGif
	case "image/webp":
		return brtypes.ImageFormatWebp
	}
	return ""
}

func toContentBlocks(msg domain.ChatMessage) []brtypes.ContentBlock {
	blocks := []brtypes.ContentBlock{
		&brtypes.ContentBlockMemberText{Value: msg.Content},
	}
	for _, att := range msg.Attachments {
		format := imageFormat(att.MediaType)
		if format == "" {
			continue
		}
		blocks = append(blocks, &brtypes.ContentBlockMemberImage{
			Value: brtypes.ImageBlock{
				Format: format,
				Source: &brtypes.ImageSourceMemberBytes{Value: att.Bytes},
			},
		})
	}
	return blocks
}

func toRole(role string) brtypes.ConversationRole {
	if role == "assistant" {
		return brtypes.ConversationRoleAssistant
	}
	return brtypes.ConversationRoleUser
}

// Invoke translates the neutral request to a Converse call and back.
func (c *Client) Invoke(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if req.ModelID == "" {
		return domain.ChatResponse{}, errors.New("bedrock: model id must not be empty")
	}
	if len(req.Messages) == 0 {
		return domain.ChatResponse{}, errors.New("bedrock: messages must not be empty")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	in := &br.ConverseInput{
		ModelId: aws.String(req.ModelID),
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(maxTokens)),
			Temperature: aws.Float32(float32(temperature)),
		},
	}
	if req.SystemPrompt != "" {
		in.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.SystemPrompt},
		}
	}
	for _, msg := range req.Messages {
		in.Messages = append(in.Messages, brtypes.Message{
			Role:    toRole(msg.Role),
			Content: toContentBlocks(msg),
		})
	}

	out, err := c.api.Converse(ctx, in)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("bedrock: Converse: %w", err)
	}

	content, err := extractText(out)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	resp := domain.ChatResponse{
		Content:     content,
		ModelID:     req.ModelID,
		ProviderTag: providerTag,
	}
	if out.Usage != nil && out.Usage.InputTokens != nil && out.Usage.OutputTokens != nil {
		resp.Usage = &domain.Usage{
			InputTokens:  int(*out.Usage.InputTokens),
			OutputTokens: int(*out.Usage.OutputTokens),
		}
	}
	return resp, nil
}

func extractText(out *br.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock: response has no message output")
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", errors.New("bedrock: response message has no text block")
}
