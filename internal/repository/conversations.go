package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
)

// batchDeleteChunk is the DynamoDB BatchWriteItem request limit.
const batchDeleteChunk = 25

// convItem is the DynamoDB shape of a conversation metadata record.
type convItem struct {
	PK                string  `dynamodbav:"PK"`
	SK                string  `dynamodbav:"SK"`
	GSI1PK            string  `dynamodbav:"GSI1PK"`
	GSI1SK            string  `dynamodbav:"GSI1SK"`
	ConversationID    string  `dynamodbav:"conversationId"`
	Title             string  `dynamodbav:"title"`
	UserID            string  `dynamodbav:"userId"`
	OrganizationID    string  `dynamodbav:"organizationId,omitempty"`
	CompanyID         string  `dynamodbav:"companyId,omitempty"`
	DepartmentID      string  `dynamodbav:"departmentId,omitempty"`
	ModelID           string  `dynamodbav:"modelId"`
	CreatedAt         string  `dynamodbav:"createdAt"`
	UpdatedAt         string  `dynamodbav:"updatedAt"`
	MessageCount      int     `dynamodbav:"messageCount"`
	TotalInputTokens  int     `dynamodbav:"totalInputTokens"`
	TotalOutputTokens int     `dynamodbav:"totalOutputTokens"`
	TotalCost         float64 `dynamodbav:"totalCost"`
}

// msgItem is the DynamoDB shape of one conversation message.
type msgItem struct {
	PK           string  `dynamodbav:"PK"`
	SK           string  `dynamodbav:"SK"`
	MessageID    string  `dynamodbav:"messageId"`
	Role         string  `dynamodbav:"role"`
	Content      string  `dynamodbav:"content"`
	ModelID      string  `dynamodbav:"modelId,omitempty"`
	InputTokens  int     `dynamodbav:"inputTokens"`
	OutputTokens int     `dynamodbav:"outputTokens"`
	Cost         float64 `dynamodbav:"cost"`
	CreatedAt    string  `dynamodbav:"createdAt"`
}

func toConvItem(cv domain.Conversation) convItem {
	return convItem{
		PK:                convPK(cv.ConversationID),
		SK:                skMeta,
		GSI1PK:            userPK(cv.UserID),
		GSI1SK:            convGSI1SK(cv.UpdatedAt),
		ConversationID:    cv.ConversationID,
		Title:             cv.Title,
		UserID:            cv.UserID,
		OrganizationID:    cv.OrganizationID,
		CompanyID:         cv.CompanyID,
		DepartmentID:      cv.DepartmentID,
		ModelID:           cv.ModelID,
		CreatedAt:         cv.CreatedAt,
		UpdatedAt:         cv.UpdatedAt,
		MessageCount:      cv.MessageCount,
		TotalInputTokens:  cv.TotalInputTokens,
		TotalOutputTokens: cv.TotalOutputTokens,
		TotalCost:         cv.TotalCost,
	}
}

func (i convItem) toDomain() domain.Conversation {
	return domain.Conversation{
		ConversationID:    i.ConversationID,
		Title:             i.Title,
		UserID:            i.UserID,
		OrganizationID:    i.OrganizationID,
		CompanyID:         i.CompanyID,
		DepartmentID:      i.DepartmentID,
		ModelID:           i.ModelID,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
		MessageCount:      i.MessageCount,
		TotalInputTokens:  i.TotalInputTokens,
		TotalOutputTokens: i.TotalOutputTokens,
		TotalCost:         i.TotalCost,
	}
}

func (i msgItem) toDomain() domain.ConversationMessage {
	return domain.ConversationMessage{
		MessageID:    i.MessageID,
		Role:         i.Role,
		Content:      i.Content,
		ModelID:      i.ModelID,
		InputTokens:  i.InputTokens,
		OutputTokens: i.OutputTokens,
		Cost:         i.Cost,
		CreatedAt:    i.CreatedAt,
	}
}

// PutConversation writes or replaces a conversation metadata record.
func (c *Client) PutConversation(ctx context.Context, cv domain.Conversation) error {
	if cv.ConversationID == "" {
		return errors.New("repository: PutConversation: conversationId is required")
	}
	item, err := attributevalue.MarshalMap(toConvItem(cv))
	if err != nil {
		return fmt.Errorf("repository: PutConversation marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutConversation: %w", err)
	}
	return nil
}

// GetConversation reads the metadata record. Returns ErrNotFound when absent.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (domain.Conversation, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(conversationID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: GetConversation: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Conversation{}, ErrNotFound
	}
	var item convItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: GetConversation unmarshal: %w", err)
	}
	return item.toDomain(), nil
}

// ListConversationsByUser queries the user's GSI1 partition, most recently
// updated first.
func (c *Client) ListConversationsByUser(ctx context.Context, userID string, limit int) ([]domain.Conversation, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(indexGSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: prefixConv},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}
	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: ListConversationsByUser query: %w", err)
	}
	convs := make([]domain.Conversation, 0, len(out.Items))
	for _, raw := range out.Items {
		var item convItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("repository: ListConversationsByUser unmarshal: %w", err)
		}
		convs = append(convs, item.toDomain())
	}
	return convs, nil
}

// PutMessage writes one message into the conversation's partition. The sort
// key embeds the creation timestamp so scans come back chronological.
func (c *Client) PutMessage(ctx context.Context, conversationID string, msg domain.ConversationMessage) error {
	if msg.MessageID == "" || msg.CreatedAt == "" {
		return errors.New("repository: PutMessage: messageId and createdAt are required")
	}
	item, err := attributevalue.MarshalMap(msgItem{
		PK:           convPK(conversationID),
		SK:           msgSK(msg.CreatedAt, msg.MessageID),
		MessageID:    msg.MessageID,
		Role:         msg.Role,
		Content:      msg.Content,
		ModelID:      msg.ModelID,
		InputTokens:  msg.InputTokens,
		OutputTokens: msg.OutputTokens,
		Cost:         msg.Cost,
		CreatedAt:    msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("repository: PutMessage marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutMessage: %w", err)
	}
	return nil
}

// ListMessages queries all MSG# items for a conversation in chronological order.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: convPK(conversationID)},
			":prefix": &types.AttributeValueMemberS{Value: prefixMsg},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListMessages query: %w", err)
	}
	msgs := make([]domain.ConversationMessage, 0, len(out.Items))
	for _, raw := range out.Items {
		var item msgItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("repository: ListMessages unmarshal: %w", err)
		}
		msgs = append(msgs, item.toDomain())
	}
	return msgs, nil
}

// TurnTotals is the delta one completed chat turn applies to the metadata.
type TurnTotals struct {
	Messages     int
	InputTokens  int
	OutputTokens int
	Cost         float64
	UpdatedAt    string
}

// ApplyTurn increments the conversation counters in a single unconditional
// update. Concurrent turns interleave but converge to the correct sums.
// Setting updatedAt also refreshes the GSI1 sort key.
func (c *Client) ApplyTurn(ctx context.Context, conversationID string, totals TurnTotals) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(conversationID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression: aws.String(
			"ADD messageCount :mc, totalInputTokens :in, totalOutputTokens :out, totalCost :cost " +
				"SET updatedAt = :now, GSI1SK = :gsk",
		),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":mc":   &types.AttributeValueMemberN{Value: strconv.Itoa(totals.Messages)},
			":in":   &types.AttributeValueMemberN{Value: strconv.Itoa(totals.InputTokens)},
			":out":  &types.AttributeValueMemberN{Value: strconv.Itoa(totals.OutputTokens)},
			":cost": &types.AttributeValueMemberN{Value: strconv.FormatFloat(totals.Cost, 'f', -1, 64)},
			":now":  &types.AttributeValueMemberS{Value: totals.UpdatedAt},
			":gsk":  &types.AttributeValueMemberS{Value: convGSI1SK(totals.UpdatedAt)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: ApplyTurn: %w", err)
	}
	return nil
}

// DeleteConversation removes the metadata record and every message in the
// conversation's partition, paging through the query and batching deletes.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	pk := convPK(conversationID)

	var keys []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ProjectionExpression: aws.String("PK, SK"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return fmt.Errorf("repository: DeleteConversation query: %w", err)
		}
		for _, item := range out.Items {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			})
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	if len(keys) == 0 {
		return ErrNotFound
	}

	for start := 0; start < len(keys); start += batchDeleteChunk {
		end := start + batchDeleteChunk
		if end > len(keys) {
			end = len(keys)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}
		batch := map[string][]types.WriteRequest{c.tableName: requests}
		for len(batch[c.tableName]) > 0 {
			out, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: batch,
			})
			if err != nil {
				return fmt.Errorf("repository: DeleteConversation batch: %w", err)
			}
			if len(out.UnprocessedItems) == 0 {
				break
			}
			batch = out.UnprocessedItems
		}
	}
	return nil
}
