package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unibody-docs-api/internal/models"
)

var documentRowColumns = []string{"id", "title", "description", "file_name", "mime_type", "file_size", "uploaded_by", "unit_id", "is_public",
	"approval_status", "approved_by", "approved_at", "requested_at", "rejection_reason", "download_count", "created_at", "updated_at"}

func documentRow(rows *sqlmock.Rows, id, unitID string, status models.ApprovalStatus, public bool) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Minutes", nil, "minutes.pdf", "application/pdf", 1024, "user-1", unitID, public,
		string(status), nil, nil, nil, nil, 0, now, now)
}

func TestBuildDocumentWhereScopes(t *testing.T) {
	where, args := buildDocumentWhere(models.DocumentQuery{Scope: models.ScopePublic})
	assert.Equal(t, " WHERE (is_public = TRUE AND approval_status = 'approved')", where)
	assert.Empty(t, args)

	where, args = buildDocumentWhere(models.DocumentQuery{Scope: models.ScopeUnitOrPublic, ScopeUnitID: "unit-a", Search: "50%"})
	assert.Equal(t, " WHERE (unit_id = $1 OR (is_public = TRUE AND approval_status = 'approved')) AND (title ILIKE $2 OR description ILIKE $2)", where)
	assert.Equal(t, []interface{}{"unit-a", `%50\%%`}, args)

	where, args = buildDocumentWhere(models.DocumentQuery{Scope: models.ScopeAll, UploadedBy: "u-1", Status: models.ApprovalPending, MimeType: "pdf"})
	assert.Equal(t, " WHERE uploaded_by = $1 AND approval_status = $2 AND mime_type ILIKE $3", where)
	assert.Equal(t, []interface{}{"u-1", models.ApprovalPending, "%pdf%"}, args)

	where, _ = buildDocumentWhere(models.DocumentQuery{Scope: models.ScopeNone})
	assert.Equal(t, " WHERE 1 = 0", where)

	where, args = buildDocumentWhere(models.DocumentQuery{Scope: models.ScopeAll})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestDocumentRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.Document{
		Title:          "Minutes",
		FileData:       []byte("%PDF-1.4"),
		FileName:       "minutes.pdf",
		MimeType:       "application/pdf",
		FileSize:       8,
		UploadedBy:     "user-1",
		ApprovalStatus: models.ApprovalPending,
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	require.NotEmpty(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())

	rows := documentRow(sqlmock.NewRows(documentRowColumns), doc.ID, "unit-1", models.ApprovalPending, false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, file_name")).
		WithArgs(doc.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)
	assert.Nil(t, found.FileData)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListPagination(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	rows := documentRow(sqlmock.NewRows(documentRowColumns), "doc-1", "unit-a", models.ApprovalApproved, true)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY title ASC, id ASC LIMIT 10 OFFSET 20")).
		WithArgs("unit-a").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM documents WHERE (unit_id = $1 OR")).
		WithArgs("unit-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	docs, total, err := repo.List(context.Background(), models.DocumentQuery{
		Scope:       models.ScopeUnitOrPublic,
		ScopeUnitID: "unit-a",
		SortBy:      "title",
		SortOrder:   "asc",
		Page:        3,
		PageSize:    10,
	})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 25, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(documentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM documents")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	docs, total, err := repo.List(context.Background(), models.DocumentQuery{Scope: models.ScopeAll, SortBy: "file_data; DROP TABLE documents"})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateReviewConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	doc := &models.Document{ID: "doc-1"}
	doc.Approve("admin-1", time.Now())
	expected := models.ApprovalPending

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET approval_status = $2")).
		WithArgs("doc-1", models.ApprovalApproved, sqlmock.AnyArg(), sqlmock.AnyArg(), nil, true, sqlmock.AnyArg(), models.ApprovalPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateReview(context.Background(), doc, &expected)
	assert.ErrorIs(t, err, models.ErrStaleDocument)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryIncrementDownloads(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET download_count = download_count + 1 WHERE id = $1 AND (is_public = TRUE AND approval_status = 'approved')")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.IncrementDownloads(context.Background(), "doc-1"))

	mock.ExpectExec(regexp.QuoteMeta("SET download_count = download_count + 1")).
		WithArgs("doc-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.IncrementDownloads(context.Background(), "doc-2"), models.ErrStaleDocument)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs("doc-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "doc-x"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateMetadataOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	loadedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	unitID := "unit-a"
	doc := &models.Document{ID: "doc-1", Title: "Agenda", UnitID: &unitID, IsPublic: true,
		ApprovalStatus: models.ApprovalApproved, DownloadCount: 7, FileData: []byte("ignored"), UpdatedAt: loadedAt.Add(time.Minute)}
	prev := models.DocumentVersion{ApprovalStatus: models.ApprovalApproved, UpdatedAt: loadedAt}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET title = $1, description = $2, unit_id = $3, is_public = $4, updated_at = $5 WHERE id = $6 AND approval_status = $7 AND updated_at = $8")).
		WithArgs("Agenda", sqlmock.AnyArg(), sqlmock.AnyArg(), true, doc.UpdatedAt, "doc-1", models.ApprovalApproved, loadedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), doc, prev, false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateReplacesFile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	loadedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	doc := &models.Document{ID: "doc-1", Title: "Agenda", FileData: []byte("v2"), FileName: "v2.txt", MimeType: "text/plain",
		FileSize: 2, ApprovalStatus: models.ApprovalPending, UpdatedAt: loadedAt.Add(time.Minute)}
	prev := models.DocumentVersion{ApprovalStatus: models.ApprovalPending, UpdatedAt: loadedAt}

	mock.ExpectExec(regexp.QuoteMeta("updated_at = $5, file_data = $6, file_name = $7, mime_type = $8, file_size = $9 WHERE id = $10 AND approval_status = $11 AND updated_at = $12")).
		WithArgs("Agenda", sqlmock.AnyArg(), sqlmock.AnyArg(), false, doc.UpdatedAt, []byte("v2"), "v2.txt", "text/plain", int64(2), "doc-1", models.ApprovalPending, loadedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), doc, prev, true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateStaleOrMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	prev := models.DocumentVersion{ApprovalStatus: models.ApprovalPending, UpdatedAt: time.Now().UTC()}
	doc := &models.Document{ID: "doc-1", Title: "Agenda", UpdatedAt: time.Now().UTC()}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET title = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	assert.ErrorIs(t, repo.Update(context.Background(), doc, prev, false), models.ErrStaleDocument)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET title = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	assert.ErrorIs(t, repo.Update(context.Background(), doc, prev, false), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
