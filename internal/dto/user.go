package dto

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required,max=150"`
	Role     string  `json:"role" validate:"required,oneof=super_admin admin sub_admin"`
	UnitID   *string `json:"unit_id" validate:"omitempty,max=64"`
	Active   *bool   `json:"active"`
	Password string  `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest partially updates a user.
type UpdateUserRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=150"`
	Role     *string `json:"role" validate:"omitempty,oneof=super_admin admin sub_admin"`
	UnitID   *string `json:"unit_id" validate:"omitempty,max=64"`
	Active   *bool   `json:"active"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

// UserListQuery captures list query parameters for the users endpoint.
type UserListQuery struct {
	Role      string `form:"role" validate:"omitempty,oneof=super_admin admin sub_admin"`
	UnitID    string `form:"unit_id" validate:"omitempty,max=64"`
	Active    *bool  `form:"active"`
	Search    string `form:"search" validate:"omitempty,max=200"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=email full_name role created_at updated_at"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=1000"`
}
