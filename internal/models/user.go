package models

import "gorm.io/gorm"

// Roles recognised by the auth collaborator. The pricing core itself only
// sees an already-verified shopper/vendor ID; the role gates which routes a
// token may reach.
const (
	RoleShopper = "shopper"
	RoleVendor  = "vendor"
)

// User represents an account on the platform, shopper or vendor.
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username   string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email      string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password   string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Role       string `json:"role" gorm:"type:varchar(20)" validate:"omitempty,oneof=shopper vendor"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
