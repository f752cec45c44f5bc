package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unibody-docs-api/internal/dto"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
)

const (
	publicDocumentsCachePrefix  = "documents:public:"
	publicDocumentsCachePattern = "documents:public:*"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetWithContent(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, q models.DocumentQuery) ([]models.Document, int, error)
	Stats(ctx context.Context, q models.DocumentQuery) (*models.DocumentStats, error)
	Update(ctx context.Context, doc *models.Document, prev models.DocumentVersion, replaceFile bool) error
	UpdateReview(ctx context.Context, doc *models.Document, expected *models.ApprovalStatus) error
	IncrementDownloads(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type unitLookup interface {
	FindByID(ctx context.Context, id string) (*models.OrganizationalUnit, error)
}

// DocumentConfig tunes upload validation and the mutation window.
type DocumentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	MutationWindow   time.Duration
	CacheTTL         time.Duration
}

// DocumentService applies the document workflow rules for any caller. Every
// operation takes the principal as data; nil means an anonymous caller.
type DocumentService struct {
	repo      documentRepository
	units     unitLookup
	cache     *CacheService
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentConfig
	allowed   map[string]struct{}
	renderers map[string]DatasetRenderer
	now       func() time.Time
}

// NewDocumentService constructs the document service.
func NewDocumentService(repo documentRepository, units unitLookup, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DocumentConfig) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MutationWindow <= 0 {
		cfg.MutationWindow = 24 * time.Hour
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 20 * 1024 * 1024
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mime := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(mime))] = struct{}{}
	}
	return &DocumentService{
		repo:      repo,
		units:     units,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		allowed:   allowed,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns the page of documents visible to p.
func (s *DocumentService) List(ctx context.Context, p *models.Principal, params dto.DocumentListQuery) (*dto.DocumentListResult, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, validationError(err, "invalid document query")
	}
	q := ResolveDocumentQuery(p, params)
	if q.Scope == models.ScopeNone {
		return &dto.DocumentListResult{Items: []models.Document{}, Query: q}, nil
	}

	cacheable := q.Scope == models.ScopePublic && q.UploadedBy == ""
	key := publicDocumentsCachePrefix + queryFingerprint(q)
	if cacheable {
		var cached cachedDocumentPage
		if s.cache.Get(ctx, key, &cached) {
			return &dto.DocumentListResult{Items: cached.Items, Total: cached.Total, Query: q, Cached: true}, nil
		}
	}

	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list documents")
	}
	if cacheable {
		s.cache.Set(ctx, key, cachedDocumentPage{Items: items, Total: total}, s.cfg.CacheTTL)
	}
	return &dto.DocumentListResult{Items: items, Total: total, Query: q}, nil
}

// PendingQueue lists documents awaiting review by p, oldest request first.
func (s *DocumentService) PendingQueue(ctx context.Context, p *models.Principal, page, pageSize int) (*dto.DocumentListResult, error) {
	p, err := s.requireRole(p, models.RoleAdmin, "only admins can review documents")
	if err != nil {
		return nil, err
	}
	q := pendingQueueQuery(p, page, pageSize)
	if q.Scope == models.ScopeNone {
		return &dto.DocumentListResult{Items: []models.Document{}, Query: q}, nil
	}
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending documents")
	}
	return &dto.DocumentListResult{Items: items, Total: total, Query: q}, nil
}

// Stats counts visible documents by approval status.
func (s *DocumentService) Stats(ctx context.Context, p *models.Principal, params dto.DocumentListQuery) (*models.DocumentStats, error) {
	if _, err := s.requireRole(p, models.RoleSubAdmin, "authentication is required"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(params); err != nil {
		return nil, validationError(err, "invalid document query")
	}
	q := ResolveDocumentQuery(p, params)
	if q.Scope == models.ScopeNone {
		return &models.DocumentStats{}, nil
	}
	stats, err := s.repo.Stats(ctx, q)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute document stats")
	}
	return stats, nil
}

// Get returns the metadata of one document visible to p.
func (s *DocumentService) Get(ctx context.Context, p *models.Principal, id string) (*models.Document, error) {
	doc, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !canSee(p, doc) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return doc, nil
}

// Upload creates a document from a buffered file.
func (s *DocumentService) Upload(ctx context.Context, p *models.Principal, req dto.CreateDocumentRequest, file *dto.FileUpload, meta models.RequestMeta) (*models.Document, error) {
	p, err := s.requireRole(p, models.RoleSubAdmin, "insufficient role to upload documents")
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid document payload")
	}
	if err := s.checkFile(file); err != nil {
		return nil, err
	}
	if p.Role.UnitScoped() && !p.HasUnit() {
		return nil, fieldValidation("unit_id", "organizational unit membership is required to upload documents")
	}

	unitID := p.UnitID
	if req.UnitID != nil && strings.TrimSpace(*req.UnitID) != "" && p.Role.AtLeast(models.RoleAdmin) {
		explicit := strings.TrimSpace(*req.UnitID)
		if err := s.ensureUnit(ctx, explicit); err != nil {
			return nil, err
		}
		unitID = &explicit
	}

	doc := models.NewUploadedDocument(p, unitID, req.IsPublic, s.now())
	doc.Title = strings.TrimSpace(req.Title)
	doc.Description = trimmedOrNil(req.Description)
	doc.FileData = file.Data
	doc.FileName = file.Filename
	doc.MimeType = normalizeMIME(file.MimeType)
	doc.FileSize = int64(len(file.Data))
	if doc.Title == "" {
		return nil, fieldValidation("title", "title must not be blank")
	}
	if err := doc.CheckPublicInvariant(); err != nil {
		return nil, fieldValidation("is_public", err.Error())
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.metrics.ObserveDocumentAction("upload", OutcomeError)
		return nil, appErrors.Internal(err, "failed to store document")
	}
	doc.FileData = nil

	if doc.PubliclyAvailable() {
		s.cache.Invalidate(ctx, publicDocumentsCachePattern)
	}
	s.metrics.ObserveDocumentAction("upload", OutcomeSuccess)
	s.metrics.ObserveDocumentBytes("upload", doc.FileSize)
	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionDocUpload,
		Resource:   "document",
		ResourceID: doc.ID,
		After:      doc,
		Meta:       meta,
	})
	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("uploaded_by", p.UserID),
		zap.String("approval_status", string(doc.ApprovalStatus)))
	return doc, nil
}

// Approve approves a document. Admins may only approve pending documents of
// their own unit; super admins may re-review any document.
func (s *DocumentService) Approve(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) (*models.Document, error) {
	return s.review(ctx, p, id, "approve", models.AuditActionDocApprove, meta, func(doc *models.Document, reviewer string, now time.Time) {
		doc.Approve(reviewer, now)
	})
}

// Reject rejects a document with an optional reason.
func (s *DocumentService) Reject(ctx context.Context, p *models.Principal, id string, req dto.RejectDocumentRequest, meta models.RequestMeta) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid rejection payload")
	}
	reason := strings.TrimSpace(req.Reason)
	return s.review(ctx, p, id, "reject", models.AuditActionDocReject, meta, func(doc *models.Document, reviewer string, now time.Time) {
		doc.Reject(reviewer, reason, now)
	})
}

func (s *DocumentService) review(ctx context.Context, p *models.Principal, id, action, auditAction string, meta models.RequestMeta, apply func(*models.Document, string, time.Time)) (*models.Document, error) {
	p, err := s.requireRole(p, models.RoleAdmin, "only admins can review documents")
	if err != nil {
		s.metrics.ObserveDocumentAction(action, OutcomeDenied)
		return nil, err
	}
	doc, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	before := doc.ApprovalStatus

	var expected *models.ApprovalStatus
	if !p.IsSuperAdmin() {
		if !p.InUnit(doc.UnitID) {
			s.metrics.ObserveDocumentAction(action, OutcomeDenied)
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot review documents of another organizational unit")
		}
		if doc.ApprovalStatus != models.ApprovalPending {
			s.metrics.ObserveDocumentAction(action, OutcomeDenied)
			return nil, appErrors.Clone(appErrors.ErrConflict, "document is not pending approval")
		}
		pending := models.ApprovalPending
		expected = &pending
	}

	apply(doc, p.UserID, s.now())
	if err := doc.CheckPublicInvariant(); err != nil {
		return nil, appErrors.Internal(err, "document review produced an invalid state")
	}
	if err := s.repo.UpdateReview(ctx, doc, expected); err != nil {
		switch {
		case errors.Is(err, models.ErrStaleDocument):
			s.metrics.ObserveDocumentAction(action, OutcomeDenied)
			return nil, appErrors.Clone(appErrors.ErrConflict, "document is not pending approval")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		s.metrics.ObserveDocumentAction(action, OutcomeError)
		return nil, appErrors.Internal(err, "failed to save review decision")
	}

	s.cache.Invalidate(ctx, publicDocumentsCachePattern)
	s.metrics.ObserveDocumentAction(action, OutcomeSuccess)
	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     auditAction,
		Resource:   "document",
		ResourceID: doc.ID,
		Before:     map[string]interface{}{"approval_status": before},
		After:      map[string]interface{}{"approval_status": doc.ApprovalStatus, "rejection_reason": doc.RejectionReason},
		Meta:       meta,
	})
	return doc, nil
}

// Update applies a partial update. Only the uploader or a super admin may
// update; approved documents are frozen for non super admins once the
// mutation window has passed.
func (s *DocumentService) Update(ctx context.Context, p *models.Principal, id string, req dto.UpdateDocumentRequest, file *dto.FileUpload, meta models.RequestMeta) (*models.Document, error) {
	p, err := s.requireRole(p, models.RoleSubAdmin, "insufficient role to update documents")
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid document payload")
	}
	if file != nil {
		if err := s.checkFile(file); err != nil {
			return nil, err
		}
	}

	doc, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.checkMutation(p, doc, "update"); err != nil {
		return nil, err
	}
	wasPublic := doc.PubliclyAvailable()
	before := *doc
	prev := doc.Version()

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fieldValidation("title", "title must not be blank")
		}
		doc.Title = title
	}
	if req.Description != nil {
		doc.Description = trimmedOrNil(req.Description)
	}
	if req.UnitID != nil {
		if err := s.applyUnitChange(ctx, p, doc, strings.TrimSpace(*req.UnitID)); err != nil {
			return nil, err
		}
	}
	if req.IsPublic != nil && *req.IsPublic != doc.IsPublic {
		if !p.Role.AtLeast(models.RoleAdmin) {
			s.metrics.ObserveDocumentAction("update", OutcomeDenied)
			return nil, appErrors.Clone(appErrors.ErrForbidden, "sub admins cannot change document visibility")
		}
		doc.IsPublic = *req.IsPublic
	}
	if err := doc.CheckPublicInvariant(); err != nil {
		return nil, fieldValidation("is_public", err.Error())
	}
	if file != nil {
		doc.FileData = file.Data
		doc.FileName = file.Filename
		doc.MimeType = normalizeMIME(file.MimeType)
		doc.FileSize = int64(len(file.Data))
	}
	doc.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, doc, prev, file != nil); err != nil {
		switch {
		case errors.Is(err, models.ErrStaleDocument):
			s.metrics.ObserveDocumentAction("update", OutcomeDenied)
			return nil, appErrors.Clone(appErrors.ErrConflict, "document was modified concurrently, reload and retry")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		s.metrics.ObserveDocumentAction("update", OutcomeError)
		return nil, appErrors.Internal(err, "failed to update document")
	}
	doc.FileData = nil

	if wasPublic || doc.PubliclyAvailable() {
		s.cache.Invalidate(ctx, publicDocumentsCachePattern)
	}
	s.metrics.ObserveDocumentAction("update", OutcomeSuccess)
	if file != nil {
		s.metrics.ObserveDocumentBytes("upload", doc.FileSize)
	}
	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionDocUpdate,
		Resource:   "document",
		ResourceID: doc.ID,
		Before:     before,
		After:      doc,
		Meta:       meta,
	})
	return doc, nil
}

// Delete removes a document permanently.
func (s *DocumentService) Delete(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) error {
	p, err := s.requireRole(p, models.RoleSubAdmin, "insufficient role to delete documents")
	if err != nil {
		return err
	}
	doc, err := s.load(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.checkMutation(p, doc, "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		s.metrics.ObserveDocumentAction("delete", OutcomeError)
		return appErrors.Internal(err, "failed to delete document")
	}

	if doc.PubliclyAvailable() {
		s.cache.Invalidate(ctx, publicDocumentsCachePattern)
	}
	s.metrics.ObserveDocumentAction("delete", OutcomeSuccess)
	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionDocDelete,
		Resource:   "document",
		ResourceID: doc.ID,
		Before:     doc,
		Meta:       meta,
	})
	return nil
}

// Download returns the payload of a public document and counts the download.
// The public listing cache is left alone, so cached anonymous pages report the
// previous download_count until CacheTTL expires; Get always reads the store.
func (s *DocumentService) Download(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) (*dto.FileContent, error) {
	doc, err := s.loadPublic(ctx, id, "download")
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementDownloads(ctx, doc.ID); err != nil {
		if errors.Is(err, models.ErrStaleDocument) {
			s.metrics.ObserveDocumentAction("download", OutcomeDenied)
			return nil, appErrors.Clone(appErrors.ErrForbidden, "document is not publicly available")
		}
		return nil, appErrors.Internal(err, "failed to record download")
	}

	s.metrics.ObserveDocumentAction("download", OutcomeSuccess)
	s.metrics.ObserveDocumentBytes("download", doc.FileSize)
	entry := AuditEntry{
		Action:     models.AuditActionDocDownload,
		Resource:   "document",
		ResourceID: doc.ID,
		Meta:       meta,
	}
	if p := activePrincipal(p); p != nil {
		entry.ActorID = p.UserID
	}
	s.audit.Record(ctx, entry)
	return fileContent(doc), nil
}

// Preview returns the payload of a public document without counting it.
func (s *DocumentService) Preview(ctx context.Context, id string) (*dto.FileContent, error) {
	doc, err := s.loadPublic(ctx, id, "preview")
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDocumentAction("preview", OutcomeSuccess)
	return fileContent(doc), nil
}

func (s *DocumentService) loadPublic(ctx context.Context, id, action string) (*models.Document, error) {
	doc, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !doc.PubliclyAvailable() {
		s.metrics.ObserveDocumentAction(action, OutcomeDenied)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document is not publicly available")
	}
	return doc, nil
}

func (s *DocumentService) load(ctx context.Context, id string, withContent bool) (*models.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	var (
		doc *models.Document
		err error
	)
	if withContent {
		doc, err = s.repo.GetWithContent(ctx, id)
	} else {
		doc, err = s.repo.GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Internal(err, "failed to load document")
	}
	return doc, nil
}

// checkMutation enforces authorship and the mutation window for update/delete.
func (s *DocumentService) checkMutation(p *models.Principal, doc *models.Document, action string) error {
	if p.IsSuperAdmin() {
		return nil
	}
	if !doc.IsUploader(p) {
		s.metrics.ObserveDocumentAction(action, OutcomeDenied)
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("only the uploader can %s this document", action))
	}
	if doc.ApprovalStatus == models.ApprovalApproved && !doc.WithinWindow(s.now(), s.cfg.MutationWindow) {
		s.metrics.ObserveDocumentAction(action, OutcomeDenied)
		return appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("approved documents can only be %sd within %s of upload", action, formatWindow(s.cfg.MutationWindow)))
	}
	return nil
}

func (s *DocumentService) applyUnitChange(ctx context.Context, p *models.Principal, doc *models.Document, unitID string) error {
	current := ""
	if doc.UnitID != nil {
		current = *doc.UnitID
	}
	if unitID == current {
		return nil
	}
	if !p.IsSuperAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only super admins can move documents between units")
	}
	if unitID == "" {
		doc.UnitID = nil
		return nil
	}
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return err
	}
	doc.UnitID = &unitID
	return nil
}

func (s *DocumentService) ensureUnit(ctx context.Context, unitID string) error {
	if s.units == nil {
		return nil
	}
	if _, err := s.units.FindByID(ctx, unitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fieldValidation("unit_id", "organizational unit does not exist")
		}
		return appErrors.Internal(err, "failed to load organizational unit")
	}
	return nil
}

func (s *DocumentService) checkFile(file *dto.FileUpload) error {
	if file == nil || len(file.Data) == 0 {
		return fieldValidation("file", "a non-empty file is required")
	}
	if int64(len(file.Data)) > s.cfg.MaxFileSizeBytes {
		return fieldValidation("file", fmt.Sprintf("file exceeds the maximum size of %d bytes", s.cfg.MaxFileSizeBytes))
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[normalizeMIME(file.MimeType)]; !ok {
			return fieldValidation("file", fmt.Sprintf("file type %q is not allowed", file.MimeType))
		}
	}
	return nil
}

func (s *DocumentService) requireRole(p *models.Principal, min models.UserRole, message string) (*models.Principal, error) {
	p = activePrincipal(p)
	if p == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	if !p.Role.AtLeast(min) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, message)
	}
	return p, nil
}

type cachedDocumentPage struct {
	Items []models.Document `json:"items"`
	Total int               `json:"total"`
}

func queryFingerprint(q models.DocumentQuery) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s|%s|%s|%d|%d",
		q.Scope, q.ScopeUnitID, q.UploadedBy, q.Search, q.UnitID, q.Status, q.MimeType, q.SortBy, q.SortOrder, q.Page, q.PageSize)))
	return hex.EncodeToString(sum[:16])
}

func fileContent(doc *models.Document) *dto.FileContent {
	return &dto.FileContent{
		Data:     doc.FileData,
		Filename: doc.FileName,
		MimeType: doc.MimeType,
		Size:     int64(len(doc.FileData)),
	}
}

// normalizeMIME drops parameters such as charset and lowercases the type.
func normalizeMIME(raw string) string {
	if idx := strings.Index(raw, ";"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}
