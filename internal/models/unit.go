package models

import "time"

// UnitType categorises a university body.
type UnitType string

const (
	UnitTypeBoard      UnitType = "board"
	UnitTypeCommittee  UnitType = "committee"
	UnitTypeCouncil    UnitType = "council"
	UnitTypeFaculty    UnitType = "faculty"
	UnitTypeDepartment UnitType = "department"
	UnitTypeOther      UnitType = "other"
)

// OrganizationalUnit is a university body that owns documents and groups admins.
type OrganizationalUnit struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Type        UnitType  `db:"type" json:"type"`
	Description *string   `db:"description" json:"description,omitempty"`
	AdminID     *string   `db:"admin_id" json:"admin_id,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UnitFilter narrows unit listings.
type UnitFilter struct {
	Type     UnitType
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
