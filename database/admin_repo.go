package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/demohub/demohub-backend/models"
)

type AdminRepo struct {
	db *gorm.DB
}

func NewAdminRepo(db *gorm.DB) *AdminRepo {
	return &AdminRepo{db}
}

// FindByEmail returns nil when no admin has the email.
func (r *AdminRepo) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

// FindByID returns nil when no admin has the id.
func (r *AdminRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *AdminRepo) first(q *gorm.DB) (*models.Admin, error) {
	var admin models.Admin
	err := q.First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}

// Ensure inserts the admin unless the email is already taken.
func (r *AdminRepo) Ensure(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(admin).Error
}
