package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unibody-docs-api/internal/models"
	"github.com/noah-isme/unibody-docs-api/pkg/pagination"
)

// documentColumns never includes file_data so listings stay light.
const documentColumns = `id, title, description, file_name, mime_type, file_size, uploaded_by, unit_id, is_public,
       approval_status, approved_by, approved_at, requested_at, rejection_reason, download_count, created_at, updated_at`

const publicApprovedClause = "(is_public = TRUE AND approval_status = 'approved')"

var documentSortColumns = map[string]string{
	"created_at":      "created_at",
	"updated_at":      "updated_at",
	"title":           "title",
	"file_size":       "file_size",
	"download_count":  "download_count",
	"approval_status": "approval_status",
	"requested_at":    "requested_at",
}

// DocumentRepository persists documents and their binary payloads.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores a new document including its payload.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	const query = `INSERT INTO documents
	(id, title, description, file_data, file_name, mime_type, file_size, uploaded_by, unit_id, is_public,
	 approval_status, approved_by, approved_at, requested_at, rejection_reason, download_count, created_at, updated_at)
	VALUES (:id, :title, :description, :file_data, :file_name, :mime_type, :file_size, :uploaded_by, :unit_id, :is_public,
	 :approval_status, :approved_by, :approved_at, :requested_at, :rejection_reason, :download_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID returns document metadata without the payload.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// GetWithContent returns the document including its binary payload.
func (r *DocumentRepository) GetWithContent(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + `, file_data FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get document content: %w", err)
	}
	return &doc, nil
}

// List returns one page of documents matching the query with the total count.
func (r *DocumentRepository) List(ctx context.Context, q models.DocumentQuery) ([]models.Document, int, error) {
	where, args := buildDocumentWhere(q)

	sortBy, ok := documentSortColumns[q.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(q.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}
	page, pageSize := pagination.Normalize(q.Page, q.PageSize)
	if pageSize > pagination.MaxPageSize {
		pageSize = pagination.MaxPageSize
	}

	listQuery := fmt.Sprintf("SELECT %s FROM documents%s ORDER BY %s %s, id %s LIMIT %d OFFSET %d",
		documentColumns, where, sortBy, sortOrder, sortOrder, pageSize, pagination.Offset(page, pageSize))

	docs := make([]models.Document, 0)
	if err := r.db.SelectContext(ctx, &docs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM documents"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return docs, total, nil
}

// Stats counts documents by status within the query scope.
func (r *DocumentRepository) Stats(ctx context.Context, q models.DocumentQuery) (*models.DocumentStats, error) {
	where, args := buildDocumentWhere(q)
	query := `SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE approval_status = 'pending') AS pending,
       COUNT(*) FILTER (WHERE approval_status = 'approved') AS approved,
       COUNT(*) FILTER (WHERE approval_status = 'rejected') AS rejected,
       COUNT(*) FILTER (WHERE ` + publicApprovedClause + `) AS public
	FROM documents` + where
	var stats models.DocumentStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}
	return &stats, nil
}

// Update writes editable metadata. The payload is replaced only when replaceFile
// is set. The write applies only while the stored row still matches prev;
// otherwise ErrStaleDocument is returned.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document, prev models.DocumentVersion, replaceFile bool) error {
	set := "title = $1, description = $2, unit_id = $3, is_public = $4, updated_at = $5"
	args := []interface{}{doc.Title, doc.Description, doc.UnitID, doc.IsPublic, doc.UpdatedAt}
	if replaceFile {
		set += ", file_data = $6, file_name = $7, mime_type = $8, file_size = $9"
		args = append(args, doc.FileData, doc.FileName, doc.MimeType, doc.FileSize)
	}
	n := len(args)
	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d AND approval_status = $%d AND updated_at = $%d", set, n+1, n+2, n+3)
	args = append(args, doc.ID, prev.ApprovalStatus, prev.UpdatedAt)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document update rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)`, doc.ID); err != nil {
		return fmt.Errorf("check document exists: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return models.ErrStaleDocument
}

// UpdateReview persists an approval decision. When expected is set the write only
// applies if the stored status still equals it; otherwise ErrStaleDocument is returned.
func (r *DocumentRepository) UpdateReview(ctx context.Context, doc *models.Document, expected *models.ApprovalStatus) error {
	query := `UPDATE documents SET approval_status = $2, approved_by = $3, approved_at = $4,
	rejection_reason = $5, is_public = $6, updated_at = $7 WHERE id = $1`
	args := []interface{}{doc.ID, doc.ApprovalStatus, doc.ApprovedBy, doc.ApprovedAt, doc.RejectionReason, doc.IsPublic, doc.UpdatedAt}
	if expected != nil {
		query += " AND approval_status = $8"
		args = append(args, *expected)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document review rows: %w", err)
	}
	if affected == 0 {
		if expected != nil {
			return models.ErrStaleDocument
		}
		return sql.ErrNoRows
	}
	return nil
}

// IncrementDownloads bumps the counter of a publicly available document.
func (r *DocumentRepository) IncrementDownloads(ctx context.Context, id string) error {
	query := `UPDATE documents SET download_count = download_count + 1 WHERE id = $1 AND ` + publicApprovedClause
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment document downloads: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document download rows: %w", err)
	}
	if affected == 0 {
		return models.ErrStaleDocument
	}
	return nil
}

// Delete removes the document permanently.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return expectAffected(res, "delete document")
}

func buildDocumentWhere(q models.DocumentQuery) (string, []interface{}) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 6)

	switch q.Scope {
	case models.ScopeNone:
		conditions = append(conditions, "1 = 0")
	case models.ScopePublic:
		conditions = append(conditions, publicApprovedClause)
	case models.ScopeUnitOrPublic:
		args = append(args, q.ScopeUnitID)
		conditions = append(conditions, fmt.Sprintf("(unit_id = $%d OR %s)", len(args), publicApprovedClause))
	case models.ScopeUnit:
		args = append(args, q.ScopeUnitID)
		conditions = append(conditions, fmt.Sprintf("unit_id = $%d", len(args)))
	}

	if q.UploadedBy != "" {
		args = append(args, q.UploadedBy)
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if q.UnitID != "" {
		args = append(args, q.UnitID)
		conditions = append(conditions, fmt.Sprintf("unit_id = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		conditions = append(conditions, fmt.Sprintf("approval_status = $%d", len(args)))
	}
	if q.MimeType != "" {
		args = append(args, "%"+escapeLike(q.MimeType)+"%")
		conditions = append(conditions, fmt.Sprintf("mime_type ILIKE $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func escapeLike(raw string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(raw)
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
