package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unibody-docs-api/internal/dto"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
	"github.com/noah-isme/unibody-docs-api/pkg/pagination"
)

type unitRepository interface {
	List(ctx context.Context, filter models.UnitFilter) ([]models.OrganizationalUnit, int, error)
	FindByID(ctx context.Context, id string) (*models.OrganizationalUnit, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, unit *models.OrganizationalUnit) error
	Update(ctx context.Context, unit *models.OrganizationalUnit) error
	Delete(ctx context.Context, id string) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UnitService manages university bodies.
type UnitService struct {
	repo      unitRepository
	users     userLookup
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUnitService constructs the service.
func NewUnitService(repo unitRepository, users userLookup, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *UnitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UnitService{repo: repo, users: users, audit: audit, validator: validate, logger: logger}
}

// List returns units for any authenticated caller.
func (s *UnitService) List(ctx context.Context, p *models.Principal, params dto.UnitListQuery) ([]models.OrganizationalUnit, pagination.Meta, error) {
	if activePrincipal(p) == nil {
		return nil, pagination.Meta{}, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	if err := s.validator.Struct(params); err != nil {
		return nil, pagination.Meta{}, validationError(err, "invalid unit query")
	}
	filter := models.UnitFilter{
		Type:   models.UnitType(params.Type),
		Active: params.Active,
		Search: strings.TrimSpace(params.Search),
	}
	filter.Page, filter.PageSize = pagination.Normalize(params.Page, params.PageSize)

	units, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list units failed", zap.Error(err))
		return nil, pagination.Meta{}, appErrors.Internal(err, "failed to list organizational units")
	}
	return units, pagination.Compute(total, filter.Page, filter.PageSize), nil
}

// Get returns a unit by ID.
func (s *UnitService) Get(ctx context.Context, p *models.Principal, id string) (*models.OrganizationalUnit, error) {
	if activePrincipal(p) == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	return s.load(ctx, id)
}

// Create registers a unit. Super admin only.
func (s *UnitService) Create(ctx context.Context, p *models.Principal, req dto.CreateUnitRequest, meta models.RequestMeta) (*models.OrganizationalUnit, error) {
	p, err := s.requireSuperAdmin(p)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid unit payload")
	}

	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	adminID := trimmedOrNil(req.AdminID)
	if err := s.ensureAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	unit := &models.OrganizationalUnit{
		Name:        name,
		Type:        models.UnitType(req.Type),
		Description: trimmedOrNil(req.Description),
		AdminID:     adminID,
		Active:      active,
	}
	if err := s.repo.Create(ctx, unit); err != nil {
		return nil, appErrors.Internal(err, "failed to create organizational unit")
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionUnitCreate,
		Resource:   "units",
		ResourceID: unit.ID,
		After:      unit,
		Meta:       meta,
	})
	return unit, nil
}

// Update partially updates a unit. Super admin only.
func (s *UnitService) Update(ctx context.Context, p *models.Principal, id string, req dto.UpdateUnitRequest, meta models.RequestMeta) (*models.OrganizationalUnit, error) {
	p, err := s.requireSuperAdmin(p)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid unit payload")
	}

	unit, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *unit

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.ensureUniqueName(ctx, name, unit.ID); err != nil {
			return nil, err
		}
		unit.Name = name
	}
	if req.Type != nil {
		unit.Type = models.UnitType(*req.Type)
	}
	if req.Description != nil {
		unit.Description = trimmedOrNil(req.Description)
	}
	if req.AdminID != nil {
		adminID := trimmedOrNil(req.AdminID)
		if err := s.ensureAdmin(ctx, adminID); err != nil {
			return nil, err
		}
		unit.AdminID = adminID
	}
	if req.Active != nil {
		unit.Active = *req.Active
	}

	if err := s.repo.Update(ctx, unit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organizational unit not found")
		}
		return nil, appErrors.Internal(err, "failed to update organizational unit")
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionUnitUpdate,
		Resource:   "units",
		ResourceID: unit.ID,
		Before:     before,
		After:      unit,
		Meta:       meta,
	})
	return unit, nil
}

// Delete removes a unit. Super admin only.
func (s *UnitService) Delete(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) error {
	p, err := s.requireSuperAdmin(p)
	if err != nil {
		return err
	}
	unit, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "organizational unit not found")
		}
		return appErrors.Internal(err, "failed to delete organizational unit")
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionUnitDelete,
		Resource:   "units",
		ResourceID: unit.ID,
		Before:     unit,
		Meta:       meta,
	})
	return nil
}

func (s *UnitService) requireSuperAdmin(p *models.Principal) (*models.Principal, error) {
	p = activePrincipal(p)
	if p == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	if !p.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can manage organizational units")
	}
	return p, nil
}

func (s *UnitService) load(ctx context.Context, id string) (*models.OrganizationalUnit, error) {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organizational unit not found")
		}
		return nil, appErrors.Internal(err, "failed to load organizational unit")
	}
	return unit, nil
}

func (s *UnitService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check unit name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "an organizational unit with this name already exists")
	}
	return nil
}

// ensureAdmin checks that the designated admin exists and holds an admin role.
func (s *UnitService) ensureAdmin(ctx context.Context, adminID *string) error {
	if adminID == nil {
		return nil
	}
	user, err := s.users.FindByID(ctx, *adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fieldValidation("admin_id", "designated admin does not exist")
		}
		return appErrors.Internal(err, "failed to load designated admin")
	}
	if !user.Role.AtLeast(models.RoleAdmin) {
		return fieldValidation("admin_id", "designated admin must have the admin or super_admin role")
	}
	return nil
}
