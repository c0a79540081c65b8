package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
)

// userItem is the DynamoDB shape of a user record.
type userItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	GSI1PK         string `dynamodbav:"GSI1PK"`
	GSI1SK         string `dynamodbav:"GSI1SK"`
	UserID         string `dynamodbav:"userId"`
	Email          string `dynamodbav:"email"`
	Name           string `dynamodbav:"name"`
	Role           string `dynamodbav:"role"`
	OrganizationID string `dynamodbav:"organizationId,omitempty"`
	CompanyID      string `dynamodbav:"companyId,omitempty"`
	DepartmentID   string `dynamodbav:"departmentId,omitempty"`
	CreatedAt      string `dynamodbav:"createdAt"`
	UpdatedAt      string `dynamodbav:"updatedAt"`
}

func toUserItem(u domain.User) userItem {
	return userItem{
		PK:             userPK(u.UserID),
		SK:             skMeta,
		GSI1PK:         usersPartition,
		GSI1SK:         userGSI1SK(u.CreatedAt),
		UserID:         u.UserID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           string(u.Role),
		OrganizationID: u.OrganizationID,
		CompanyID:      u.CompanyID,
		DepartmentID:   u.DepartmentID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (i userItem) toDomain() domain.User {
	return domain.User{
		UserID:         i.UserID,
		Email:          i.Email,
		Name:           i.Name,
		Role:           domain.Role(i.Role),
		OrganizationID: i.OrganizationID,
		CompanyID:      i.CompanyID,
		DepartmentID:   i.DepartmentID,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

// PutUser writes or replaces a user record and its USERS index projection.
func (c *Client) PutUser(ctx context.Context, u domain.User) error {
	if u.UserID == "" {
		return errors.New("repository: PutUser: userId is required")
	}
	item, err := attributevalue.MarshalMap(toUserItem(u))
	if err != nil {
		return fmt.Errorf("repository: PutUser marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutUser: %w", err)
	}
	return nil
}

// GetUser reads a user record by id. Returns ErrNotFound when absent.
func (c *Client) GetUser(ctx context.Context, userID string) (domain.User, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: GetUser: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.User{}, ErrNotFound
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.User{}, fmt.Errorf("repository: GetUser unmarshal: %w", err)
	}
	return item.toDomain(), nil
}

// UpdateUserName sets the display name on an existing user record.
func (c *Client) UpdateUserName(ctx context.Context, userID, name, updatedAt string) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET #n = :name, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
			":now":  &types.AttributeValueMemberS{Value: updatedAt},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: UpdateUserName: %w", err)
	}
	return nil
}

// UserFilter narrows an admin user listing to a tenant scope.
type UserFilter struct {
	OrganizationID string
	CompanyID      string
}

// ListUsers queries the USERS partition on GSI1, newest first, applying the
// scope filter as a DynamoDB filter expression.
func (c *Client) ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(indexGSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: usersPartition},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var filters []string
	if filter.OrganizationID != "" {
		filters = append(filters, "organizationId = :org")
		in.ExpressionAttributeValues[":org"] = &types.AttributeValueMemberS{Value: filter.OrganizationID}
	}
	if filter.CompanyID != "" {
		filters = append(filters, "companyId = :co")
		in.ExpressionAttributeValues[":co"] = &types.AttributeValueMemberS{Value: filter.CompanyID}
	}
	if len(filters) > 0 {
		expr := filters[0]
		for _, f := range filters[1:] {
			expr += " AND " + f
		}
		in.FilterExpression = aws.String(expr)
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: ListUsers query: %w", err)
	}
	users := make([]domain.User, 0, len(out.Items))
	for _, raw := range out.Items {
		var item userItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("repository: ListUsers unmarshal: %w", err)
		}
		users = append(users, item.toDomain())
	}
	return users, nil
}
