package domain

// Visibility is the broadest scope at which a file is readable.
type Visibility string

const (
	VisibilityPrivate      Visibility = "private"
	VisibilityDepartment   Visibility = "department"
	VisibilityCompany      Visibility = "company"
	VisibilityOrganization Visibility = "organization"
	VisibilitySystem       Visibility = "system"
)

// FileStatus tracks the upload pipeline state of a file record.
type FileStatus string

const (
	FileStatusUploading  FileStatus = "uploading"
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusError      FileStatus = "error"
)

// FileCategory classifies what a file is used for.
type FileCategory string

const (
	CategoryChatAttachment FileCategory = "chat_attachment"
	CategoryRAGSource      FileCategory = "rag_source"
	CategoryKnowledgeBase  FileCategory = "knowledge_base"
)

// FileType is the declared logical type of an uploaded file.
// Only txt and csv are indexable; the rest are stored verbatim.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDocx FileType = "docx"
	FileTypeTxt  FileType = "txt"
	FileTypeCSV  FileType = "csv"
	FileTypeXlsx FileType = "xlsx"
)

// ValidFileType reports whether t is an accepted upload type.
func ValidFileType(t FileType) bool {
	switch t {
	case FileTypePDF, FileTypeDocx, FileTypeTxt, FileTypeCSV, FileTypeXlsx:
		return true
	}
	return false
}

// Indexable reports whether the file's text is extracted inline at upload.
func (t FileType) Indexable() bool {
	return t == FileTypeTxt || t == FileTypeCSV
}

// FileRecord is the metadata record for an uploaded blob.
type FileRecord struct {
	FileID         string       `json:"fileId"`
	FileName       string       `json:"fileName"`
	FileType       FileType     `json:"fileType"`
	MimeType       string       `json:"mimeType"`
	BlobKey        string       `json:"-"`
	UserID         string       `json:"userId"`
	CreatedByRole  Role         `json:"createdByRole"`
	OrganizationID string       `json:"organizationId,omitempty"`
	CompanyID      string       `json:"companyId,omitempty"`
	DepartmentID   string       `json:"departmentId,omitempty"`
	UploadedAt     string       `json:"uploadedAt"`
	FileSize       int64        `json:"fileSize"`
	Status         FileStatus   `json:"status"`
	Visibility     Visibility   `json:"visibility"`
	Category       FileCategory `json:"category"`
	ExtractedText  string       `json:"-"`
	TextBlobKey    string       `json:"-"`
	Description    string       `json:"description,omitempty"`
	ErrorMessage   string       `json:"errorMessage,omitempty"`
}
