package dto

import (
	"github.com/noah-isme/unibody-docs-api/internal/models"
)

// DocumentListQuery captures list query parameters for document endpoints.
type DocumentListQuery struct {
	Search    string `form:"search" validate:"omitempty,max=200"`
	UnitID    string `form:"unit_id" validate:"omitempty,max=64"`
	Status    string `form:"approval_status" validate:"omitempty,oneof=pending approved rejected"`
	View      string `form:"view" validate:"omitempty,oneof=all unit mine"`
	Mine      bool   `form:"mine"`
	Type      string `form:"type" validate:"omitempty,max=100"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=created_at updated_at title file_size download_count approval_status"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=1000"`
}

// CreateDocumentRequest contains metadata submitted alongside a file upload.
type CreateDocumentRequest struct {
	Title       string  `form:"title" json:"title" validate:"required,min=1,max=255"`
	Description *string `form:"description" json:"description" validate:"omitempty,max=2000"`
	UnitID      *string `form:"unit_id" json:"unit_id" validate:"omitempty,max=64"`
	IsPublic    bool    `form:"is_public" json:"is_public"`
}

// UpdateDocumentRequest carries a partial update; nil fields keep their value.
type UpdateDocumentRequest struct {
	Title       *string `form:"title" json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `form:"description" json:"description" validate:"omitempty,max=2000"`
	UnitID      *string `form:"unit_id" json:"unit_id" validate:"omitempty,max=64"`
	IsPublic    *bool   `form:"is_public" json:"is_public"`
}

// RejectDocumentRequest holds the reviewer's reason.
type RejectDocumentRequest struct {
	Reason string `json:"reason" form:"reason" validate:"omitempty,max=1000"`
}

// ExportDocumentsQuery selects the register export format.
type ExportDocumentsQuery struct {
	DocumentListQuery
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// FileUpload is the single file buffered from a multipart request.
type FileUpload struct {
	Data     []byte
	Filename string
	MimeType string
	Size     int64
}

// FileContent is a document payload returned for download or preview.
type FileContent struct {
	Data     []byte
	Filename string
	MimeType string
	Size     int64
}

// DocumentExport is a rendered register export.
type DocumentExport struct {
	Data        []byte
	Filename    string
	ContentType string
}

// DocumentListResult groups a page of documents with its total count.
type DocumentListResult struct {
	Items  []models.Document
	Total  int
	Query  models.DocumentQuery
	Cached bool
}
