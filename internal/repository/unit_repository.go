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

const unitColumns = "id, name, type, description, admin_id, active, created_at, updated_at"

// UnitRepository handles persistence of organizational units.
type UnitRepository struct {
	db *sqlx.DB
}

// NewUnitRepository constructs the repository.
func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// List returns units matching the filter with the total count.
func (r *UnitRepository) List(ctx context.Context, filter models.UnitFilter) ([]models.OrganizationalUnit, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := pagination.Normalize(filter.Page, filter.PageSize)
	if pageSize > pagination.MaxPageSize {
		pageSize = pagination.MaxPageSize
	}
	listQuery := fmt.Sprintf("SELECT %s FROM organizational_units%s ORDER BY name ASC LIMIT %d OFFSET %d",
		unitColumns, where, pageSize, pagination.Offset(page, pageSize))

	units := make([]models.OrganizationalUnit, 0)
	if err := r.db.SelectContext(ctx, &units, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM organizational_units"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count units: %w", err)
	}
	return units, total, nil
}

// FindByID returns a unit by identifier.
func (r *UnitRepository) FindByID(ctx context.Context, id string) (*models.OrganizationalUnit, error) {
	query := "SELECT " + unitColumns + " FROM organizational_units WHERE id = $1"
	var unit models.OrganizationalUnit
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find unit: %w", err)
	}
	return &unit, nil
}

// ExistsByName checks for a case-insensitive name collision, ignoring excludeID.
func (r *UnitRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM organizational_units WHERE LOWER(name) = LOWER($1)`
	args := []interface{}{name}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check unit name: %w", err)
	}
	return exists, nil
}

// Create inserts a unit.
func (r *UnitRepository) Create(ctx context.Context, unit *models.OrganizationalUnit) error {
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = unit.CreatedAt
	const query = `INSERT INTO organizational_units (id, name, type, description, admin_id, active, created_at, updated_at)
	VALUES (:id, :name, :type, :description, :admin_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, unit); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a unit.
func (r *UnitRepository) Update(ctx context.Context, unit *models.OrganizationalUnit) error {
	unit.UpdatedAt = time.Now().UTC()
	const query = `UPDATE organizational_units SET name = :name, type = :type, description = :description,
	admin_id = :admin_id, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, unit)
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	return expectAffected(res, "update unit")
}

// Delete removes a unit. Member users and documents keep a NULL unit via ON DELETE SET NULL.
func (r *UnitRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM organizational_units WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return expectAffected(res, "delete unit")
}
