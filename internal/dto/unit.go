package dto

// CreateUnitRequest registers a new university body.
type CreateUnitRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=150"`
	Type        string  `json:"type" validate:"required,oneof=board committee council faculty department other"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	AdminID     *string `json:"admin_id" validate:"omitempty,max=64"`
	Active      *bool   `json:"active"`
}

// UpdateUnitRequest partially updates a university body.
type UpdateUnitRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=150"`
	Type        *string `json:"type" validate:"omitempty,oneof=board committee council faculty department other"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	AdminID     *string `json:"admin_id" validate:"omitempty,max=64"`
	Active      *bool   `json:"active"`
}

// UnitListQuery captures list query parameters for the units endpoint.
type UnitListQuery struct {
	Type     string `form:"type" validate:"omitempty,oneof=board committee council faculty department other"`
	Active   *bool  `form:"active"`
	Search   string `form:"search" validate:"omitempty,max=200"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=1000"`
}
