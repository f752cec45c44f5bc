package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/unibody-docs-api/internal/dto"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
	"github.com/noah-isme/unibody-docs-api/pkg/pagination"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

// UserService handles user management workflows. Admins manage sub_admins of
// their own unit; super admins manage everyone.
type UserService struct {
	repo      userRepository
	units     unitLookup
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, units unitLookup, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, units: units, audit: audit, validator: validate, logger: logger}
}

// List returns users visible to p and the pagination window used.
func (s *UserService) List(ctx context.Context, p *models.Principal, params dto.UserListQuery) ([]models.User, pagination.Meta, error) {
	p = activePrincipal(p)
	if p == nil {
		return nil, pagination.Meta{}, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	if err := s.validator.Struct(params); err != nil {
		return nil, pagination.Meta{}, validationError(err, "invalid user query")
	}

	filter := models.UserFilter{
		Active:    params.Active,
		Search:    strings.TrimSpace(params.Search),
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	}
	filter.Page, filter.PageSize = pagination.Normalize(params.Page, params.PageSize)
	if params.Role != "" {
		role := models.UserRole(params.Role)
		filter.Role = &role
	}
	if unit := strings.TrimSpace(params.UnitID); unit != "" {
		filter.UnitID = &unit
	}

	if !p.IsSuperAdmin() {
		if !p.HasUnit() {
			return []models.User{}, pagination.Compute(0, filter.Page, filter.PageSize), nil
		}
		if filter.UnitID != nil && *filter.UnitID != *p.UnitID {
			return []models.User{}, pagination.Compute(0, filter.Page, filter.PageSize), nil
		}
		filter.UnitID = p.UnitID
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, pagination.Meta{}, appErrors.Internal(err, "failed to list users")
	}
	return users, pagination.Compute(total, filter.Page, filter.PageSize), nil
}

// Get returns a user by ID. Users outside the caller's unit are reported as missing.
func (s *UserService) Get(ctx context.Context, p *models.Principal, id string) (*models.User, error) {
	p = activePrincipal(p)
	if p == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsSuperAdmin() && user.ID != p.UserID && !p.InUnit(user.UnitID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, p *models.Principal, req dto.CreateUserRequest, meta models.RequestMeta) (*models.User, error) {
	p = activePrincipal(p)
	if p == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}

	role := models.UserRole(req.Role)
	unitID := trimmedOrNil(req.UnitID)
	if !p.IsSuperAdmin() {
		if p.Role != models.RoleAdmin || role != models.RoleSubAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "admins can only create sub_admin users")
		}
		if !p.HasUnit() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "organizational unit membership is required to manage users")
		}
		if unitID != nil && *unitID != *p.UnitID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot create users in another organizational unit")
		}
		unitID = p.UnitID
	}
	if unitID != nil {
		if err := s.ensureUnit(ctx, *unitID); err != nil {
			return nil, err
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		Active:       active,
		UnitID:       unitID,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create user")
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: user.ID,
		After:      map[string]interface{}{"email": user.Email, "role": user.Role, "unit_id": user.UnitID},
		Meta:       meta,
	})
	return user, nil
}

// Update modifies user attributes. Nil fields are left unchanged; an empty
// unit_id removes the unit membership.
func (s *UserService) Update(ctx context.Context, p *models.Principal, id string, req dto.UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	p = activePrincipal(p)
	if p == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update user payload")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkManage(p, user); err != nil {
		return nil, err
	}
	before := map[string]interface{}{"role": user.Role, "active": user.Active, "unit_id": user.UnitID}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		if !p.IsSuperAdmin() && role != models.RoleSubAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "admins can only assign the sub_admin role")
		}
		user.Role = role
	}
	if req.UnitID != nil {
		if !p.IsSuperAdmin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can move users between units")
		}
		user.UnitID = trimmedOrNil(req.UnitID)
		if user.UnitID != nil {
			if err := s.ensureUnit(ctx, *user.UnitID); err != nil {
				return nil, err
			}
		}
	}
	if req.Active != nil {
		if !*req.Active && user.ID == p.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
		}
		user.Active = *req.Active
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to update user")
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: user.ID,
		Before:     before,
		After:      map[string]interface{}{"role": user.Role, "active": user.Active, "unit_id": user.UnitID},
		Meta:       meta,
	})
	return user, nil
}

// Deactivate performs a soft delete (inactive) on a user.
func (s *UserService) Deactivate(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) error {
	p = activePrincipal(p)
	if p == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication is required")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkManage(p, user); err != nil {
		return err
	}
	if user.ID == p.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to deactivate user")
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    p.UserID,
		Action:     models.AuditActionUserDeactivate,
		Resource:   "users",
		ResourceID: user.ID,
		Before:     map[string]bool{"active": user.Active},
		After:      map[string]bool{"active": false},
		Meta:       meta,
	})
	return nil
}

// checkManage allows super admins everything and admins only the sub_admins of their unit.
func (s *UserService) checkManage(p *models.Principal, target *models.User) error {
	if p.IsSuperAdmin() {
		return nil
	}
	if !p.InUnit(target.UnitID) {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if p.Role != models.RoleAdmin || target.Role != models.RoleSubAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admins can only manage sub_admin users of their unit")
	}
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) ensureUnit(ctx context.Context, unitID string) error {
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
