package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const RoleAdmin = "admin"

// Admin is the principal allowed to manage projects.
type Admin struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string     `json:"email" gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"type:text;not null"`
	Name         string     `json:"name" gorm:"type:text;not null"`
	Role         string     `json:"role" gorm:"type:text;not null;default:admin"`
	LastLogin    *time.Time `json:"lastLogin"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AdminProfile is an Admin without its password hash.
type AdminProfile struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (a Admin) Profile() AdminProfile {
	return AdminProfile{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		LastLogin: a.LastLogin,
		CreatedAt: a.CreatedAt,
	}
}
