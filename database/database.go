package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/demohub/demohub-backend/models"
)

type Database struct {
	db              *gorm.DB
	adminRepo       *AdminRepo
	projectRepo     *ProjectRepo
	imageRepo       *ProjectImageRepo
	technologyRepo  *TechnologyRepo
	contributorRepo *ContributorRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:              db,
		adminRepo:       NewAdminRepo(db),
		projectRepo:     NewProjectRepo(db),
		imageRepo:       NewProjectImageRepo(db),
		technologyRepo:  NewTechnologyRepo(db),
		contributorRepo: NewContributorRepo(db),
	}
}

func (d Database) AdminRepo() *AdminRepo {
	return d.adminRepo
}

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) ProjectImageRepo() *ProjectImageRepo {
	return d.imageRepo
}

func (d Database) TechnologyRepo() *TechnologyRepo {
	return d.technologyRepo
}

func (d Database) ContributorRepo() *ContributorRepo {
	return d.contributorRepo
}

// Migrate brings the schema up to date with the models.
func (d Database) Migrate() error {
	return models.Migrate(d.db)
}

// Ping runs a no-op query against the pool.
func (d Database) Ping(ctx context.Context) error {
	var result int
	if err := d.db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (d Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
