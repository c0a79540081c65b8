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

// fileItem is the DynamoDB shape of a file record. GSI2 keys are present only
// for system, organization and company visibility.
type fileItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	GSI1PK         string `dynamodbav:"GSI1PK"`
	GSI1SK         string `dynamodbav:"GSI1SK"`
	GSI2PK         string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK         string `dynamodbav:"GSI2SK,omitempty"`
	FileID         string `dynamodbav:"fileId"`
	FileName       string `dynamodbav:"fileName"`
	FileType       string `dynamodbav:"fileType"`
	MimeType       string `dynamodbav:"mimeType"`
	BlobKey        string `dynamodbav:"blobKey"`
	UserID         string `dynamodbav:"userId"`
	CreatedByRole  string `dynamodbav:"createdByRole"`
	OrganizationID string `dynamodbav:"organizationId,omitempty"`
	CompanyID      string `dynamodbav:"companyId,omitempty"`
	DepartmentID   string `dynamodbav:"departmentId,omitempty"`
	UploadedAt     string `dynamodbav:"uploadedAt"`
	FileSize       int64  `dynamodbav:"fileSize"`
	Status         string `dynamodbav:"status"`
	Visibility     string `dynamodbav:"visibility"`
	Category       string `dynamodbav:"category"`
	ExtractedText  string `dynamodbav:"extractedText,omitempty"`
	TextBlobKey    string `dynamodbav:"textBlobKey,omitempty"`
	Description    string `dynamodbav:"description,omitempty"`
	ErrorMessage   string `dynamodbav:"errorMessage,omitempty"`
}

// fileGSI2PK returns the GSI2 partition for a file, or "" when the
// visibility is not projected (private, department).
func fileGSI2PK(f domain.FileRecord) string {
	switch f.Visibility {
	case domain.VisibilitySystem:
		return gsi2VisibilitySystem
	case domain.VisibilityOrganization:
		if f.OrganizationID != "" {
			return gsi2PrefixOrg + f.OrganizationID
		}
	case domain.VisibilityCompany:
		if f.CompanyID != "" {
			return gsi2PrefixCompany + f.CompanyID
		}
	}
	return ""
}

func toFileItem(f domain.FileRecord) fileItem {
	item := fileItem{
		PK:             filePK(f.FileID),
		SK:             skMeta,
		GSI1PK:         userPK(f.UserID),
		GSI1SK:         fileIndexSK(f.UploadedAt),
		FileID:         f.FileID,
		FileName:       f.FileName,
		FileType:       string(f.FileType),
		MimeType:       f.MimeType,
		BlobKey:        f.BlobKey,
		UserID:         f.UserID,
		CreatedByRole:  string(f.CreatedByRole),
		OrganizationID: f.OrganizationID,
		CompanyID:      f.CompanyID,
		DepartmentID:   f.DepartmentID,
		UploadedAt:     f.UploadedAt,
		FileSize:       f.FileSize,
		Status:         string(f.Status),
		Visibility:     string(f.Visibility),
		Category:       string(f.Category),
		ExtractedText:  f.ExtractedText,
		TextBlobKey:    f.TextBlobKey,
		Description:    f.Description,
		ErrorMessage:   f.ErrorMessage,
	}
	if pk := fileGSI2PK(f); pk != "" {
		item.GSI2PK = pk
		item.GSI2SK = fileIndexSK(f.UploadedAt)
	}
	return item
}

func (i fileItem) toDomain() domain.FileRecord {
	return domain.FileRecord{
		FileID:         i.FileID,
		FileName:       i.FileName,
		FileType:       domain.FileType(i.FileType),
		MimeType:       i.MimeType,
		BlobKey:        i.BlobKey,
		UserID:         i.UserID,
		CreatedByRole:  domain.Role(i.CreatedByRole),
		OrganizationID: i.OrganizationID,
		CompanyID:      i.CompanyID,
		DepartmentID:   i.DepartmentID,
		UploadedAt:     i.UploadedAt,
		FileSize:       i.FileSize,
		Status:         domain.FileStatus(i.Status),
		Visibility:     domain.Visibility(i.Visibility),
		Category:       domain.FileCategory(i.Category),
		ExtractedText:  i.ExtractedText,
		TextBlobKey:    i.TextBlobKey,
		Description:    i.Description,
		ErrorMessage:   i.ErrorMessage,
	}
}

// PutFile writes a file record with its index projections.
func (c *Client) PutFile(ctx context.Context, f domain.FileRecord) error {
	if f.FileID == "" {
		return errors.New("repository: PutFile: fileId is required")
	}
	item, err := attributevalue.MarshalMap(toFileItem(f))
	if err != nil {
		return fmt.Errorf("repository: PutFile marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutFile: %w", err)
	}
	return nil
}

// GetFile reads a file record by id. Returns ErrNotFound when absent.
func (c *Client) GetFile(ctx context.Context, fileID string) (domain.FileRecord, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: filePK(fileID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
	})
	if err != nil {
		return domain.FileRecord{}, fmt.Errorf("repository: GetFile: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.FileRecord{}, ErrNotFound
	}
	var item fileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.FileRecord{}, fmt.Errorf("repository: GetFile unmarshal: %w", err)
	}
	return item.toDomain(), nil
}

// ListFilesByOwner queries the owner's GSI1 partition, newest first.
func (c *Client) ListFilesByOwner(ctx context.Context, userID string) ([]domain.FileRecord, error) {
	return c.queryFiles(ctx, indexGSI1, "GSI1PK", userPK(userID), "GSI1SK")
}

// ListFilesSystemVisible queries the system-visibility GSI2 partition.
func (c *Client) ListFilesSystemVisible(ctx context.Context) ([]domain.FileRecord, error) {
	return c.queryFiles(ctx, indexGSI2, "GSI2PK", gsi2VisibilitySystem, "GSI2SK")
}

// ListFilesByOrganization queries an organization's GSI2 partition.
func (c *Client) ListFilesByOrganization(ctx context.Context, organizationID string) ([]domain.FileRecord, error) {
	return c.queryFiles(ctx, indexGSI2, "GSI2PK", gsi2PrefixOrg+organizationID, "GSI2SK")
}

// ListFilesByCompany queries a company's GSI2 partition.
func (c *Client) ListFilesByCompany(ctx context.Context, companyID string) ([]domain.FileRecord, error) {
	return c.queryFiles(ctx, indexGSI2, "GSI2PK", gsi2PrefixCompany+companyID, "GSI2SK")
}

func (c *Client) queryFiles(ctx context.Context, index, pkName, pkValue, skName string) ([]domain.FileRecord, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(fmt.Sprintf("%s = :pk AND begins_with(%s, :prefix)", pkName, skName)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pkValue},
			":prefix": &types.AttributeValueMemberS{Value: prefixFile},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: queryFiles %s: %w", index, err)
	}
	files := make([]domain.FileRecord, 0, len(out.Items))
	for _, raw := range out.Items {
		var item fileItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("repository: queryFiles unmarshal: %w", err)
		}
		files = append(files, item.toDomain())
	}
	return files, nil
}

// UpdateFileVisibility rewrites the visibility attribute and the GSI2 keys in
// one update so the projection can never disagree with the visibility.
func (c *Client) UpdateFileVisibility(ctx context.Context, f domain.FileRecord) error {
	in := &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: filePK(f.FileID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
	if pk := fileGSI2PK(f); pk != "" {
		in.UpdateExpression = aws.String("SET visibility = :vis, GSI2PK = :g2pk, GSI2SK = :g2sk")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":vis":  &types.AttributeValueMemberS{Value: string(f.Visibility)},
			":g2pk": &types.AttributeValueMemberS{Value: pk},
			":g2sk": &types.AttributeValueMemberS{Value: fileIndexSK(f.UploadedAt)},
		}
	} else {
		in.UpdateExpression = aws.String("SET visibility = :vis REMOVE GSI2PK, GSI2SK")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":vis": &types.AttributeValueMemberS{Value: string(f.Visibility)},
		}
	}
	_, err := c.api.UpdateItem(ctx, in)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: UpdateFileVisibility: %w", err)
	}
	return nil
}

// DeleteFile removes the file record.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: filePK(fileID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: DeleteFile: %w", err)
	}
	return nil
}
