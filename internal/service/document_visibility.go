package service

import (
	"strings"

	"github.com/noah-isme/unibody-docs-api/internal/dto"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	"github.com/noah-isme/unibody-docs-api/pkg/pagination"
)

// ResolveDocumentQuery builds the document filter for a caller. The role decides
// the base scope; explicit filters from params are conjoined on top of it.
//
//	anonymous                     is_public AND approved
//	admin/sub_admin, view=all     unit = caller unit OR (is_public AND approved)
//	admin/sub_admin, view=unit    unit = caller unit
//	super_admin                   everything
//	any role, view=mine           AND uploaded_by = caller
func ResolveDocumentQuery(p *models.Principal, params dto.DocumentListQuery) models.DocumentQuery {
	p = activePrincipal(p)
	view := models.DocumentView(strings.ToLower(params.View))
	if params.Mine {
		view = models.ViewMine
	}

	q := models.DocumentQuery{
		Search:    strings.TrimSpace(params.Search),
		UnitID:    strings.TrimSpace(params.UnitID),
		Status:    models.ApprovalStatus(params.Status),
		MimeType:  strings.TrimSpace(params.Type),
		SortBy:    params.SortBy,
		SortOrder: strings.ToLower(params.SortOrder),
	}
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
	q.Page, q.PageSize = pagination.Normalize(params.Page, params.PageSize)
	if q.PageSize > pagination.MaxPageSize {
		q.PageSize = pagination.MaxPageSize
	}

	switch {
	case p == nil:
		q.Scope = models.ScopePublic
		if view == models.ViewUnit || view == models.ViewMine {
			q.Scope = models.ScopeNone
		}
		return q
	case p.IsSuperAdmin():
		q.Scope = models.ScopeAll
		if view == models.ViewUnit && p.HasUnit() {
			q.Scope = models.ScopeUnit
			q.ScopeUnitID = *p.UnitID
		}
	case view == models.ViewUnit:
		q.Scope = models.ScopeNone
		if p.HasUnit() {
			q.Scope = models.ScopeUnit
			q.ScopeUnitID = *p.UnitID
		}
	default:
		q.Scope = models.ScopePublic
		if p.HasUnit() {
			q.Scope = models.ScopeUnitOrPublic
			q.ScopeUnitID = *p.UnitID
		}
	}

	if view == models.ViewMine {
		q.UploadedBy = p.UserID
	}
	return q
}

// pendingQueueQuery lists documents awaiting review for a reviewer, oldest request first.
func pendingQueueQuery(p *models.Principal, page, pageSize int) models.DocumentQuery {
	q := models.DocumentQuery{
		Scope:     models.ScopeAll,
		Status:    models.ApprovalPending,
		SortBy:    "requested_at",
		SortOrder: "asc",
	}
	q.Page, q.PageSize = pagination.Normalize(page, pageSize)
	if q.PageSize > pagination.MaxPageSize {
		q.PageSize = pagination.MaxPageSize
	}
	if !p.IsSuperAdmin() {
		q.Scope = models.ScopeNone
		if p.HasUnit() {
			q.Scope = models.ScopeUnit
			q.ScopeUnitID = *p.UnitID
		}
	}
	return q
}

// canSee reports whether p may read the metadata of doc.
func canSee(p *models.Principal, doc *models.Document) bool {
	p = activePrincipal(p)
	if doc.IsUploader(p) {
		return true
	}
	return ResolveDocumentQuery(p, dto.DocumentListQuery{}).Matches(doc)
}

// activePrincipal treats deactivated accounts as anonymous callers.
func activePrincipal(p *models.Principal) *models.Principal {
	if p == nil || !p.Active || !p.Role.Valid() {
		return nil
	}
	return p
}
