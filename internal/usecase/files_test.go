package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
)

func newFileFixture(t *testing.T) (*FileService, *fakeFileStore, *fakeBlobStore) {
	t.Helper()
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	svc, err := NewFileService(files, blobs, nil)
	require.NoError(t, err)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc, files, blobs
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var ue *Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, code, ue.Code)
}

func uploadInput() UploadInput {
	return UploadInput{
		FileName:       "note.txt",
		FileType:       domain.FileTypeTxt,
		MimeType:       "text/plain",
		FileDataBase64: base64.StdEncoding.EncodeToString([]byte("hello world")),
		Actor: domain.Actor{
			UserID:         "u-1",
			Role:           domain.RoleCompanyAdmin,
			OrganizationID: "org-1",
			CompanyID:      "c-1",
		},
	}
}

func TestNewFileService_Validation(t *testing.T) {
	_, err := NewFileService(nil, newFakeBlobStore(), nil)
	require.Error(t, err)
	_, err = NewFileService(newFakeFileStore(), nil, nil)
	require.Error(t, err)
}

func TestUpload_HappyPathTxt(t *testing.T) {
	svc, files, blobs := newFileFixture(t)

	out, err := svc.Upload(context.Background(), uploadInput())
	require.NoError(t, err)
	require.NotEmpty(t, out.FileID)
	require.Equal(t, "note.txt", out.FileName)
	require.Equal(t, domain.FileStatusReady, out.Status)
	require.Equal(t, "2026-03-01T10:00:00.000Z", out.UploadedAt)

	require.Equal(t, "org-1/c-1/u-1/"+out.FileID+"/note.txt", blobs.lastPutKey)
	require.Equal(t, "text/plain", blobs.lastPutContentType)

	rec := files.lastPut
	require.NotNil(t, rec)
	require.Equal(t, "hello world", rec.ExtractedText, "txt content must be indexed inline")
	require.Equal(t, domain.VisibilityPrivate, rec.Visibility, "visibility defaults to private")
	require.Equal(t, domain.CategoryChatAttachment, rec.Category)
	require.Equal(t, int64(11), rec.FileSize)
	require.Equal(t, domain.RoleCompanyAdmin, rec.CreatedByRole)
}

func TestUpload_NonIndexableTypeHasNoInlineText(t *testing.T) {
	svc, files, _ := newFileFixture(t)

	in := uploadInput()
	in.FileName = "report.pdf"
	in.FileType = domain.FileTypePDF
	in.MimeType = "application/pdf"
	_, err := svc.Upload(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, files.lastPut.ExtractedText)
}

func TestUpload_MissingScopesUseDefault(t *testing.T) {
	svc, _, blobs := newFileFixture(t)

	in := uploadInput()
	in.Actor = domain.Actor{UserID: "u-1", Role: domain.RoleUser}
	out, err := svc.Upload(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "default/default/u-1/"+out.FileID+"/note.txt", blobs.lastPutKey)
}

func TestUpload_VisibilityForbiddenForRole(t *testing.T) {
	svc, _, _ := newFileFixture(t)

	in := uploadInput()
	in.Actor.Role = domain.RoleUser
	in.Visibility = domain.VisibilityCompany
	_, err := svc.Upload(context.Background(), in)
	requireCode(t, err, ErrorForbiddenVisibility)
}

func TestUpload_UnsupportedFileType(t *testing.T) {
	svc, _, _ := newFileFixture(t)

	in := uploadInput()
	in.FileType = "exe"
	_, err := svc.Upload(context.Background(), in)
	requireCode(t, err, ErrorUnsupportedFileType)
}

func TestUpload_InvalidBase64(t *testing.T) {
	svc, _, _ := newFileFixture(t)

	in := uploadInput()
	in.FileDataBase64 = "%%not-base64%%"
	_, err := svc.Upload(context.Background(), in)
	requireCode(t, err, ErrorValidation)
}

func TestUpload_BlobFailureLeavesNoRecord(t *testing.T) {
	svc, files, blobs := newFileFixture(t)
	blobs.putErr = errors.New("s3 down")

	_, err := svc.Upload(context.Background(), uploadInput())
	requireCode(t, err, ErrorStorage)
	require.Nil(t, files.lastPut)
}

func TestList_UnionDedupePredicate(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	actor := domain.Actor{UserID: "u-1", Role: domain.RoleUser, OrganizationID: "org-1", CompanyID: "c-1"}

	own := domain.FileRecord{FileID: "f-own", UserID: "u-1", Visibility: domain.VisibilityPrivate, UploadedAt: "2026-03-01T09:00:00.000Z", Category: domain.CategoryChatAttachment}
	sys := domain.FileRecord{FileID: "f-sys", UserID: "u-9", Visibility: domain.VisibilitySystem, UploadedAt: "2026-03-01T08:00:00.000Z", Category: domain.CategoryRAGSource}
	org := domain.FileRecord{FileID: "f-org", UserID: "u-9", Visibility: domain.VisibilityOrganization, OrganizationID: "org-1", UploadedAt: "2026-03-01T10:00:00.000Z", Category: domain.CategoryChatAttachment}
	// Relabeled to private but still present in the index projection; the
	// predicate must drop it.
	stale := domain.FileRecord{FileID: "f-stale", UserID: "u-9", Visibility: domain.VisibilityPrivate, OrganizationID: "org-1", UploadedAt: "2026-03-01T07:00:00.000Z"}

	files.owned = []domain.FileRecord{own}
	files.system = []domain.FileRecord{sys}
	files.org = []domain.FileRecord{org, stale}
	files.company = []domain.FileRecord{own} // duplicate through another partition

	out, err := svc.List(context.Background(), actor, "")
	require.NoError(t, err)
	require.Equal(t, "org-1", files.orgQueried)
	require.Equal(t, "c-1", files.companyQueried)

	ids := make([]string, 0, len(out))
	for _, f := range out {
		ids = append(ids, f.FileID)
	}
	require.Equal(t, []string{"f-org", "f-own", "f-sys"}, ids, "newest first, deduplicated, stale entry dropped")
}

func TestList_CategoryFilter(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	actor := domain.Actor{UserID: "u-1", Role: domain.RoleUser}

	files.owned = []domain.FileRecord{
		{FileID: "a", UserID: "u-1", UploadedAt: "1", Category: domain.CategoryChatAttachment},
		{FileID: "b", UserID: "u-1", UploadedAt: "2", Category: domain.CategoryRAGSource},
	}
	out, err := svc.List(context.Background(), actor, domain.CategoryRAGSource)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "b", out[0].FileID)
}

func TestGet_InvisibleFileReadsAsAbsent(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "owner", Visibility: domain.VisibilityPrivate}

	_, err := svc.Get(context.Background(), domain.Actor{UserID: "stranger", Role: domain.RoleUser}, "f-1")
	requireCode(t, err, ErrorNotFound)
}

func TestGet_Missing(t *testing.T) {
	svc, _, _ := newFileFixture(t)
	_, err := svc.Get(context.Background(), domain.Actor{UserID: "u-1"}, "nope")
	requireCode(t, err, ErrorNotFound)
}

func TestUpdateVisibility_OwnerAllowed(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "u-1", Visibility: domain.VisibilityPrivate, CompanyID: "c-1"}

	out, err := svc.UpdateVisibility(context.Background(), domain.Actor{UserID: "u-1", Role: domain.RoleCompanyAdmin, CompanyID: "c-1"}, "f-1", domain.VisibilityCompany)
	require.NoError(t, err)
	require.Equal(t, domain.VisibilityCompany, out.Visibility)
	require.Equal(t, domain.VisibilityCompany, files.lastUpdate.Visibility)
}

func TestUpdateVisibility_NonOwnerForbidden(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "owner"}

	_, err := svc.UpdateVisibility(context.Background(), domain.Actor{UserID: "other", Role: domain.RoleOrgAdmin}, "f-1", domain.VisibilityPrivate)
	requireCode(t, err, ErrorForbiddenRole)
}

func TestUpdateVisibility_SystemAdminBypassesOwnership(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "owner"}

	_, err := svc.UpdateVisibility(context.Background(), domain.Actor{UserID: "admin", Role: domain.RoleSystemAdmin}, "f-1", domain.VisibilitySystem)
	require.NoError(t, err)
}

func TestUpdateVisibility_TargetOutsideAllowedSet(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "u-1"}

	_, err := svc.UpdateVisibility(context.Background(), domain.Actor{UserID: "u-1", Role: domain.RoleUser}, "f-1", domain.VisibilitySystem)
	requireCode(t, err, ErrorForbiddenVisibility)
}

func TestDelete_BlobThenRecord(t *testing.T) {
	svc, files, blobs := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "u-1", BlobKey: "org/c/u-1/f-1/a.txt"}

	err := svc.Delete(context.Background(), domain.Actor{UserID: "u-1", Role: domain.RoleUser}, "f-1")
	require.NoError(t, err)
	require.Equal(t, []string{"org/c/u-1/f-1/a.txt"}, blobs.deletedKeys)
	require.Equal(t, []string{"f-1"}, files.deletedIDs)
}

func TestDelete_BlobFailureAborts(t *testing.T) {
	svc, files, blobs := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "u-1", BlobKey: "k"}
	blobs.delErr = errors.New("s3 down")

	err := svc.Delete(context.Background(), domain.Actor{UserID: "u-1", Role: domain.RoleUser}, "f-1")
	requireCode(t, err, ErrorStorage)
	require.Empty(t, files.deletedIDs, "record must survive a failed blob delete")
}

func TestDelete_NonOwnerForbidden(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", UserID: "owner"}

	err := svc.Delete(context.Background(), domain.Actor{UserID: "other", Role: domain.RoleUser}, "f-1")
	requireCode(t, err, ErrorForbiddenRole)
}

func TestQuery_CSVSchemaSummary(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{
		FileID:        "f-1",
		FileName:      "facts.csv",
		FileType:      domain.FileTypeCSV,
		UserID:        "u-1",
		ExtractedText: "name,age\nAlice,30\nBob,40",
	}

	out, err := svc.Query(context.Background(), domain.Actor{UserID: "u-1"}, "f-1", "How many rows?")
	require.NoError(t, err)
	require.Contains(t, out.Answer, "facts.csv")
	require.Contains(t, out.Answer, "2行")
	require.Equal(t, []string{"name", "age"}, out.SourceData["headers"])
	require.Equal(t, 2, out.SourceData["rowCount"])
}

func TestQuery_TxtPreview(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{
		FileID:        "f-1",
		FileName:      "note.txt",
		FileType:      domain.FileTypeTxt,
		UserID:        "u-1",
		ExtractedText: "line one\nline two",
	}

	out, err := svc.Query(context.Background(), domain.Actor{UserID: "u-1"}, "f-1", "what is this")
	require.NoError(t, err)
	require.Contains(t, out.Answer, "line one")
	require.Nil(t, out.SourceData)
}

func TestQuery_BinaryTypeHasNoExtraction(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", FileName: "deck.pdf", FileType: domain.FileTypePDF, UserID: "u-1"}

	out, err := svc.Query(context.Background(), domain.Actor{UserID: "u-1"}, "f-1", "q")
	require.NoError(t, err)
	require.Contains(t, out.Answer, "deck.pdf")
}

func TestTextForRAG_InlineText(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", FileType: domain.FileTypeTxt, UserID: "u-1", ExtractedText: "inline"}

	text, err := svc.TextForRAG(context.Background(), domain.Actor{UserID: "u-1"}, "f-1")
	require.NoError(t, err)
	require.Equal(t, "inline", text)
}

func TestTextForRAG_BlobFallback(t *testing.T) {
	svc, files, blobs := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", FileType: domain.FileTypeCSV, UserID: "u-1", BlobKey: "k"}
	blobs.objects["k"] = []byte("a,b\n1,2")

	text, err := svc.TextForRAG(context.Background(), domain.Actor{UserID: "u-1"}, "f-1")
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2", text)
}

func TestTextForRAG_InaccessibleFileErrors(t *testing.T) {
	svc, files, _ := newFileFixture(t)
	files.records["f-1"] = domain.FileRecord{FileID: "f-1", FileType: domain.FileTypeTxt, UserID: "owner", Visibility: domain.VisibilityPrivate, ExtractedText: "secret"}

	_, err := svc.TextForRAG(context.Background(), domain.Actor{UserID: "stranger", Role: domain.RoleUser}, "f-1")
	require.Error(t, err)
}
