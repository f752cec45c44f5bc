package models

import (
	"errors"
	"time"
)

// ApprovalStatus tracks where a document sits in the review workflow.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// DefaultRejectionReason is stored when a reviewer rejects without a reason.
const DefaultRejectionReason = "No reason provided"

// ErrPublicRequiresApproval is returned when a document would become public
// without being approved.
var ErrPublicRequiresApproval = errors.New("only approved documents can be public")

// ErrStaleDocument is returned by conditional writes whose precondition no
// longer holds in the store.
var ErrStaleDocument = errors.New("document state changed concurrently")

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Document is an uploaded file owned by a university body.
type Document struct {
	ID              string         `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Description     *string        `db:"description" json:"description,omitempty"`
	FileData        []byte         `db:"file_data" json:"-"`
	FileName        string         `db:"file_name" json:"file_name"`
	MimeType        string         `db:"mime_type" json:"mime_type"`
	FileSize        int64          `db:"file_size" json:"file_size"`
	UploadedBy      string         `db:"uploaded_by" json:"uploaded_by"`
	UnitID          *string        `db:"unit_id" json:"unit_id,omitempty"`
	IsPublic        bool           `db:"is_public" json:"is_public"`
	ApprovalStatus  ApprovalStatus `db:"approval_status" json:"approval_status"`
	ApprovedBy      *string        `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	RequestedAt     *time.Time     `db:"requested_at" json:"requested_at,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	DownloadCount   int64          `db:"download_count" json:"download_count"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// DocumentVersion is the stored state a metadata write was computed from.
type DocumentVersion struct {
	ApprovalStatus ApprovalStatus
	UpdatedAt      time.Time
}

// Version captures the fields a concurrent review would change.
func (d *Document) Version() DocumentVersion {
	return DocumentVersion{ApprovalStatus: d.ApprovalStatus, UpdatedAt: d.UpdatedAt}
}

// NewUploadedDocument applies the creation rules for an upload by role.
// Admins and super admins self-approve; sub admin uploads always start pending
// and private regardless of the requested visibility.
func NewUploadedDocument(uploader *Principal, unitID *string, requestPublic bool, now time.Time) *Document {
	doc := &Document{
		UploadedBy: uploader.UserID,
		UnitID:     unitID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if uploader.Role.AtLeast(RoleAdmin) {
		approver := uploader.UserID
		approvedAt := now
		doc.ApprovalStatus = ApprovalApproved
		doc.ApprovedBy = &approver
		doc.ApprovedAt = &approvedAt
		doc.IsPublic = requestPublic
		return doc
	}
	requestedAt := now
	doc.ApprovalStatus = ApprovalPending
	doc.IsPublic = false
	doc.RequestedAt = &requestedAt
	return doc
}

// Approve moves the document to approved and publishes it.
func (d *Document) Approve(approverID string, now time.Time) {
	approvedAt := now
	d.ApprovalStatus = ApprovalApproved
	d.ApprovedBy = &approverID
	d.ApprovedAt = &approvedAt
	d.RejectionReason = nil
	d.IsPublic = true
	d.UpdatedAt = now
}

// Reject moves the document to rejected, unpublishing it.
func (d *Document) Reject(reviewerID, reason string, now time.Time) {
	if reason == "" {
		reason = DefaultRejectionReason
	}
	reviewedAt := now
	d.ApprovalStatus = ApprovalRejected
	d.ApprovedBy = &reviewerID
	d.ApprovedAt = &reviewedAt
	d.RejectionReason = &reason
	d.IsPublic = false
	d.UpdatedAt = now
}

// CheckPublicInvariant enforces that public documents are approved.
func (d *Document) CheckPublicInvariant() error {
	if d.IsPublic && d.ApprovalStatus != ApprovalApproved {
		return ErrPublicRequiresApproval
	}
	return nil
}

// PubliclyAvailable reports whether anonymous callers may read the document.
func (d *Document) PubliclyAvailable() bool {
	return d.IsPublic && d.ApprovalStatus == ApprovalApproved
}

// WithinWindow reports whether now falls inside window measured from creation.
func (d *Document) WithinWindow(now time.Time, window time.Duration) bool {
	return now.Sub(d.CreatedAt) <= window
}

// IsUploader reports whether the principal uploaded the document.
func (d *Document) IsUploader(p *Principal) bool {
	return p != nil && p.UserID == d.UploadedBy
}

// DocumentStats aggregates document counts by approval status.
type DocumentStats struct {
	Total    int `db:"total" json:"total"`
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
	Public   int `db:"public" json:"public"`
}
