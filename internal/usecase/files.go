package usecase

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/repository"
)

// Sort keys embed these timestamps, so the fractional part is fixed-width to
// keep lexicographic order chronological.
const timeLayout = "2006-01-02T15:04:05.000Z"

const (
	defaultMimeType    = "application/octet-stream"
	defaultScopePart   = "default"
	textPreviewRunes   = 500
	conversationTitleN = 50
)

var newUUID = func() string {
	return uuid.NewString()
}

// FileStore is the metadata persistence consumed by FileService.
type FileStore interface {
	PutFile(ctx context.Context, f domain.FileRecord) error
	GetFile(ctx context.Context, fileID string) (domain.FileRecord, error)
	ListFilesByOwner(ctx context.Context, userID string) ([]domain.FileRecord, error)
	ListFilesSystemVisible(ctx context.Context) ([]domain.FileRecord, error)
	ListFilesByOrganization(ctx context.Context, organizationID string) ([]domain.FileRecord, error)
	ListFilesByCompany(ctx context.Context, companyID string) ([]domain.FileRecord, error)
	UpdateFileVisibility(ctx context.Context, f domain.FileRecord) error
	DeleteFile(ctx context.Context, fileID string) error
}

// BlobStore is the raw payload storage consumed by FileService.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// FileService implements the upload pipeline, scoped listing, visibility
// management and ad-hoc content queries over uploaded files.
type FileService struct {
	files  FileStore
	blobs  BlobStore
	logger *zap.Logger
	now    func() time.Time
}

func NewFileService(files FileStore, blobs BlobStore, logger *zap.Logger) (*FileService, error) {
	if files == nil {
		return nil, errors.New("usecase: file store must not be nil")
	}
	if blobs == nil {
		return nil, errors.New("usecase: blob store must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		files:  files,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}, nil
}

type UploadInput struct {
	FileName       string
	FileType       domain.FileType
	MimeType       string
	FileDataBase64 string
	Actor          domain.Actor
	Visibility     domain.Visibility
	Category       domain.FileCategory
	Description    string
}

type UploadOutput struct {
	FileID     string            `json:"fileId"`
	FileName   string            `json:"fileName"`
	Status     domain.FileStatus `json:"status"`
	UploadedAt string            `json:"uploadedAt"`
}

// Upload decodes the payload, stores the blob and writes the metadata record.
// Indexable types keep their UTF-8 text inline on the record so RAG assembly
// does not have to re-read the blob.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (UploadOutput, error) {
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return UploadOutput{}, newError(ErrorValidation, "empty_file_name", nil)
	}
	if in.Actor.UserID == "" {
		return UploadOutput{}, newError(ErrorValidation, "missing_user_id", nil)
	}
	if !domain.ValidFileType(in.FileType) {
		return UploadOutput{}, newError(ErrorUnsupportedFileType, "unsupported_file_type", nil)
	}
	data, err := base64.StdEncoding.DecodeString(in.FileDataBase64)
	if err != nil {
		return UploadOutput{}, newError(ErrorValidation, "invalid_base64_payload", err)
	}
	if len(data) == 0 {
		return UploadOutput{}, newError(ErrorValidation, "empty_file_payload", nil)
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	if !domain.VisibilityAllowed(in.Actor.Role, visibility) {
		return UploadOutput{}, newError(ErrorForbiddenVisibility, "visibility_not_allowed_for_role", nil)
	}
	category := in.Category
	if category == "" {
		category = domain.CategoryChatAttachment
	}
	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	fileID := newUUID()
	blobKey := buildBlobKey(in.Actor, fileID, fileName)
	if err := s.blobs.Put(ctx, blobKey, data, mimeType); err != nil {
		return UploadOutput{}, newError(ErrorStorage, "blob_put_error", err)
	}

	now := s.now().UTC().Format(timeLayout)
	record := domain.FileRecord{
		FileID:         fileID,
		FileName:       fileName,
		FileType:       in.FileType,
		MimeType:       mimeType,
		BlobKey:        blobKey,
		UserID:         in.Actor.UserID,
		CreatedByRole:  in.Actor.Role,
		OrganizationID: in.Actor.OrganizationID,
		CompanyID:      in.Actor.CompanyID,
		DepartmentID:   in.Actor.DepartmentID,
		UploadedAt:     now,
		FileSize:       int64(len(data)),
		Status:         domain.FileStatusReady,
		Visibility:     visibility,
		Category:       category,
		Description:    in.Description,
	}
	if in.FileType.Indexable() {
		record.ExtractedText = string(data)
	}

	if err := s.files.PutFile(ctx, record); err != nil {
		return UploadOutput{}, newError(ErrorStorage, "file_record_put_error", err)
	}
	s.logger.Info("file uploaded",
		zap.String("fileId", fileID),
		zap.String("userId", in.Actor.UserID),
		zap.String("visibility", string(visibility)),
		zap.Int64("size", record.FileSize),
	)
	return UploadOutput{
		FileID:     fileID,
		FileName:   fileName,
		Status:     record.Status,
		UploadedAt: now,
	}, nil
}

// List unions the owner, system, organization and company partitions, then
// deduplicates and applies the access predicate before the category filter.
// The predicate runs even over the owner partition so department-scoped
// records never leak past a stale projection.
func (s *FileService) List(ctx context.Context, actor domain.Actor, category domain.FileCategory) ([]domain.FileRecord, error) {
	if actor.UserID == "" {
		return nil, newError(ErrorValidation, "missing_user_id", nil)
	}

	var all []domain.FileRecord
	owned, err := s.files.ListFilesByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, newError(ErrorStorage, "list_owner_files_error", err)
	}
	all = append(all, owned...)

	system, err := s.files.ListFilesSystemVisible(ctx)
	if err != nil {
		return nil, newError(ErrorStorage, "list_system_files_error", err)
	}
	all = append(all, system...)

	if actor.OrganizationID != "" {
		org, err := s.files.ListFilesByOrganization(ctx, actor.OrganizationID)
		if err != nil {
			return nil, newError(ErrorStorage, "list_org_files_error", err)
		}
		all = append(all, org...)
	}
	if actor.CompanyID != "" {
		company, err := s.files.ListFilesByCompany(ctx, actor.CompanyID)
		if err != nil {
			return nil, newError(ErrorStorage, "list_company_files_error", err)
		}
		all = append(all, company...)
	}

	seen := make(map[string]bool, len(all))
	out := make([]domain.FileRecord, 0, len(all))
	for _, f := range all {
		if seen[f.FileID] {
			continue
		}
		seen[f.FileID] = true
		if !domain.CanAccessFile(f, actor) {
			continue
		}
		if category != "" && f.Category != category {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt > out[j].UploadedAt })
	return out, nil
}

// Get returns a single record. Records the actor cannot access read as absent
// so private file ids cannot be probed.
func (s *FileService) Get(ctx context.Context, actor domain.Actor, fileID string) (domain.FileRecord, error) {
	f, err := s.getAccessible(ctx, actor, fileID)
	if err != nil {
		return domain.FileRecord{}, err
	}
	return f, nil
}

// UpdateVisibility relabels a file. Owner or system_admin only, and the new
// visibility must be in the actor's allowed set.
func (s *FileService) UpdateVisibility(ctx context.Context, actor domain.Actor, fileID string, visibility domain.Visibility) (domain.FileRecord, error) {
	f, err := s.fetch(ctx, fileID)
	if err != nil {
		return domain.FileRecord{}, err
	}
	if f.UserID != actor.UserID && actor.Role != domain.RoleSystemAdmin {
		return domain.FileRecord{}, newError(ErrorForbiddenRole, "not_file_owner", nil)
	}
	if !domain.VisibilityAllowed(actor.Role, visibility) {
		return domain.FileRecord{}, newError(ErrorForbiddenVisibility, "visibility_not_allowed_for_role", nil)
	}
	f.Visibility = visibility
	if err := s.files.UpdateFileVisibility(ctx, f); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.FileRecord{}, newError(ErrorNotFound, "file_not_found", nil)
		}
		return domain.FileRecord{}, newError(ErrorStorage, "visibility_update_error", err)
	}
	return f, nil
}

// Delete removes the blob first, then the record. A blob deletion failure
// aborts with the record intact so the file stays listed and retryable.
func (s *FileService) Delete(ctx context.Context, actor domain.Actor, fileID string) error {
	f, err := s.fetch(ctx, fileID)
	if err != nil {
		return err
	}
	if f.UserID != actor.UserID && actor.Role != domain.RoleSystemAdmin {
		return newError(ErrorForbiddenRole, "not_file_owner", nil)
	}
	if err := s.blobs.Delete(ctx, f.BlobKey); err != nil {
		return newError(ErrorStorage, "blob_delete_error", err)
	}
	if err := s.files.DeleteFile(ctx, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrorNotFound, "file_not_found", nil)
		}
		return newError(ErrorStorage, "file_record_delete_error", err)
	}
	s.logger.Info("file deleted", zap.String("fileId", fileID), zap.String("userId", actor.UserID))
	return nil
}

type QueryOutput struct {
	Answer     string         `json:"answer"`
	SourceData map[string]any `json:"sourceData,omitempty"`
}

// Query answers a question about a file from its stored content alone: a
// schema summary for CSV, a head-of-file preview for text. No model call.
func (s *FileService) Query(ctx context.Context, actor domain.Actor, fileID, question string) (QueryOutput, error) {
	f, err := s.getAccessible(ctx, actor, fileID)
	if err != nil {
		return QueryOutput{}, err
	}

	switch f.FileType {
	case domain.FileTypeCSV:
		text, err := s.fileText(ctx, f)
		if err != nil {
			return QueryOutput{}, newError(ErrorStorage, "file_content_read_error", err)
		}
		return summarizeCSV(f.FileName, text)
	case domain.FileTypeTxt:
		text, err := s.fileText(ctx, f)
		if err != nil {
			return QueryOutput{}, newError(ErrorStorage, "file_content_read_error", err)
		}
		preview := []rune(text)
		if len(preview) > textPreviewRunes {
			preview = preview[:textPreviewRunes]
		}
		return QueryOutput{
			Answer: fmt.Sprintf("ファイル「%s」の冒頭部分です。\n%s", f.FileName, string(preview)),
		}, nil
	default:
		return QueryOutput{
			Answer: fmt.Sprintf("ファイル「%s」(%s) はテキスト抽出に対応していない形式です。", f.FileName, f.FileType),
		}, nil
	}
}

// TextForRAG returns the file's text for context injection. Callers treat any
// error as "skip this file": inaccessible and nonexistent ids look identical.
func (s *FileService) TextForRAG(ctx context.Context, actor domain.Actor, fileID string) (string, error) {
	f, err := s.getAccessible(ctx, actor, fileID)
	if err != nil {
		return "", err
	}
	return s.fileText(ctx, f)
}

func (s *FileService) fetch(ctx context.Context, fileID string) (domain.FileRecord, error) {
	if strings.TrimSpace(fileID) == "" {
		return domain.FileRecord{}, newError(ErrorValidation, "missing_file_id", nil)
	}
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.FileRecord{}, newError(ErrorNotFound, "file_not_found", nil)
		}
		return domain.FileRecord{}, newError(ErrorStorage, "file_record_read_error", err)
	}
	return f, nil
}

func (s *FileService) getAccessible(ctx context.Context, actor domain.Actor, fileID string) (domain.FileRecord, error) {
	f, err := s.fetch(ctx, fileID)
	if err != nil {
		return domain.FileRecord{}, err
	}
	if !domain.CanAccessFile(f, actor) {
		return domain.FileRecord{}, newError(ErrorNotFound, "file_not_found", nil)
	}
	return f, nil
}

// fileText resolves the file's text content: inline extract when present,
// otherwise the extraction blob, otherwise the raw blob for indexable types.
func (s *FileService) fileText(ctx context.Context, f domain.FileRecord) (string, error) {
	if f.ExtractedText != "" {
		return f.ExtractedText, nil
	}
	key := f.TextBlobKey
	if key == "" {
		if !f.FileType.Indexable() {
			return "", fmt.Errorf("usecase: file %s has no extractable text", f.FileID)
		}
		key = f.BlobKey
	}
	body, err := s.blobs.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("usecase: read file text: %w", err)
	}
	return string(body), nil
}

func summarizeCSV(fileName, text string) (QueryOutput, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return QueryOutput{}, newError(ErrorValidation, "malformed_csv", err)
	}
	if len(records) == 0 {
		return QueryOutput{
			Answer: fmt.Sprintf("ファイル「%s」は空のCSVです。", fileName),
		}, nil
	}
	headers := records[0]
	rows := len(records) - 1
	return QueryOutput{
		Answer: fmt.Sprintf("ファイル「%s」はCSV形式です。%d列、%d行のデータが含まれます。列: %s",
			fileName, len(headers), rows, strings.Join(headers, ", ")),
		SourceData: map[string]any{
			"headers":  headers,
			"rowCount": rows,
		},
	}, nil
}

func buildBlobKey(actor domain.Actor, fileID, fileName string) string {
	return scopeOrDefault(actor.OrganizationID) + "/" +
		scopeOrDefault(actor.CompanyID) + "/" +
		actor.UserID + "/" + fileID + "/" + fileName
}

func scopeOrDefault(v string) string {
	if v == "" {
		return defaultScopePart
	}
	return v
}
