package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectImage struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID    uuid.UUID `json:"projectId" gorm:"type:uuid;not null;index"`
	ImageURL     string    `json:"imageUrl" gorm:"column:image_url;type:text;not null"`
	PublicID     string    `json:"publicId" gorm:"type:text;not null"`
	DisplayOrder int       `json:"displayOrder" gorm:"not null;default:0"`
	IsPrimary    bool      `json:"isPrimary" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (i *ProjectImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// SortImages orders images by display order, oldest first on ties.
func SortImages(images []ProjectImage) {
	sort.SliceStable(images, func(a, b int) bool {
		if images[a].DisplayOrder != images[b].DisplayOrder {
			return images[a].DisplayOrder < images[b].DisplayOrder
		}
		return images[a].CreatedAt.Before(images[b].CreatedAt)
	})
}

// ImageOrder assigns a display order to one image.
type ImageOrder struct {
	ID           uuid.UUID `json:"id"`
	DisplayOrder int       `json:"displayOrder"`
}
