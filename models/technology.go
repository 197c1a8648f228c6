package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Technology is reference data projects are tagged with.
type Technology struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Slug      string    `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Icon      *string   `json:"icon,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *Technology) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TechnologyCount is a technology with the number of projects using it.
type TechnologyCount struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ProjectCount int64     `json:"projectCount"`
}

type Contributor struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Email     *string   `json:"email,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Contributor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
