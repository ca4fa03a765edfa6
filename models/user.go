package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `gorm:"size:20" json:"phone"`
	Address   string         `json:"address"`
	City      string         `json:"city"`
	Role      string         `gorm:"default:customer" json:"role"` // customer, staff, admin
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
}

// FullAddress is the street address followed by the city when both are known.
func (u *User) FullAddress() string {
	switch {
	case u.Address != "" && u.City != "":
		return u.Address + ", " + u.City
	case u.Address != "":
		return u.Address
	default:
		return u.City
	}
}

func (u *User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}
