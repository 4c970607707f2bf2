package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleEmployee = "employee"
	RoleHR       = "hr"
)

// User is an employee or HR staff member who can sign in to the helpdesk
type User struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Mobile       string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"mobile"`
	EmployeeCode string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"employee_code"`
	Password     string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"type:varchar(20);not null;default:'employee'" json:"role"`
	RefreshToken *string   `gorm:"type:varchar(64)" json:"-"` // SHA-256 of the live refresh token, nil after logout
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the primary key in Go so the schema works on both postgres and mysql
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleEmployee
	}
	return nil
}

// IsHR reports whether the user belongs to HR staff
func (u *User) IsHR() bool {
	return u.Role == RoleHR
}

// ValidRole checks a role value coming from outside
func ValidRole(role string) bool {
	return role == RoleEmployee || role == RoleHR
}
