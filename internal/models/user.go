package models

import (
	"time"
)

// StaffUser represents a staff member (nurse, kitchen, admin) who operates
// the dashboard. Kiosks are anonymous and identified by device instead.
// Convention: Go PascalCase -> DB snake_case (GORM auto) -> JSON snake_case
type StaffUser struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	FullName  string     `json:"full_name"`
	Role      string     `gorm:"default:'staff'" json:"role"` // staff | admin
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for StaffUser
func (StaffUser) TableName() string {
	return "staff_users"
}

// IsAdmin returns true if the user has the admin role
func (u *StaffUser) IsAdmin() bool {
	return u.Role == "admin"
}
