package models

import "strings"

// DocumentScope is the role-derived base predicate of a document query.
type DocumentScope int

const (
	// ScopePublic matches is_public AND approved.
	ScopePublic DocumentScope = iota
	// ScopeUnitOrPublic matches unit_id = ScopeUnitID OR (is_public AND approved).
	ScopeUnitOrPublic
	// ScopeUnit matches unit_id = ScopeUnitID regardless of status.
	ScopeUnit
	// ScopeAll matches every document.
	ScopeAll
	// ScopeNone matches nothing.
	ScopeNone
)

// DocumentView is the caller-selected listing perspective.
type DocumentView string

const (
	ViewAll  DocumentView = "all"
	ViewUnit DocumentView = "unit"
	ViewMine DocumentView = "mine"
)

// DocumentQuery is a resolved, store-agnostic document filter. Every non-empty
// narrowing field is conjoined with the scope predicate.
type DocumentQuery struct {
	Scope       DocumentScope
	ScopeUnitID string

	UploadedBy string
	Search     string
	UnitID     string
	Status     ApprovalStatus
	MimeType   string

	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Matches evaluates the query predicate against a single document.
func (q DocumentQuery) Matches(d *Document) bool {
	if d == nil {
		return false
	}
	switch q.Scope {
	case ScopeNone:
		return false
	case ScopePublic:
		if !d.PubliclyAvailable() {
			return false
		}
	case ScopeUnitOrPublic:
		inUnit := d.UnitID != nil && *d.UnitID == q.ScopeUnitID
		if !inUnit && !d.PubliclyAvailable() {
			return false
		}
	case ScopeUnit:
		if d.UnitID == nil || *d.UnitID != q.ScopeUnitID {
			return false
		}
	}
	if q.UploadedBy != "" && d.UploadedBy != q.UploadedBy {
		return false
	}
	if q.UnitID != "" && (d.UnitID == nil || *d.UnitID != q.UnitID) {
		return false
	}
	if q.Status != "" && d.ApprovalStatus != q.Status {
		return false
	}
	if q.MimeType != "" && !containsFold(d.MimeType, q.MimeType) {
		return false
	}
	if q.Search != "" {
		description := ""
		if d.Description != nil {
			description = *d.Description
		}
		if !containsFold(d.Title, q.Search) && !containsFold(description, q.Search) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
