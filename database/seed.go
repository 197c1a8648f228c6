package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/demohub/demohub-backend/models"
)

// SeedBcryptCost matches the cost the admin password has always been hashed with.
const SeedBcryptCost = 10

// SeedOptions describes the bootstrap admin.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// DefaultTechnologies is the reference list every fresh install starts with.
var DefaultTechnologies = []models.Technology{
	{Name: "React", Slug: "react"},
	{Name: "Node.js", Slug: "nodejs"},
	{Name: "Python", Slug: "python"},
	{Name: "Vue.js", Slug: "vuejs"},
	{Name: "TypeScript", Slug: "typescript"},
	{Name: "Express.js", Slug: "expressjs"},
	{Name: "Next.js", Slug: "nextjs"},
	{Name: "PostgreSQL", Slug: "postgresql"},
	{Name: "MongoDB", Slug: "mongodb"},
	{Name: "Tailwind CSS", Slug: "tailwindcss"},
	{Name: "Prisma", Slug: "prisma"},
	{Name: "Docker", Slug: "docker"},
	{Name: "AWS", Slug: "aws"},
	{Name: "Firebase", Slug: "firebase"},
	{Name: "GraphQL", Slug: "graphql"},
}

// Seed provisions the admin, the reference technologies and a default
// contributor. Existing rows are left untouched, so it is safe to rerun.
func (d Database) Seed(ctx context.Context, opts SeedOptions) error {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		return fmt.Errorf("seed: admin email and password are required")
	}
	if opts.AdminName == "" {
		opts.AdminName = "DemoHub Admin"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), SeedBcryptCost)
	if err != nil {
		return fmt.Errorf("seed: hash admin password: %w", err)
	}

	admin := models.Admin{
		Email:        opts.AdminEmail,
		PasswordHash: string(hash),
		Name:         opts.AdminName,
		Role:         models.RoleAdmin,
	}
	if err := d.adminRepo.Ensure(ctx, &admin); err != nil {
		return fmt.Errorf("seed: admin: %w", err)
	}
	log.Info().Str("email", admin.Email).Msg("admin user ready")

	for _, tech := range DefaultTechnologies {
		tech := tech
		if err := d.technologyRepo.Ensure(ctx, &tech); err != nil {
			return fmt.Errorf("seed: technology %s: %w", tech.Slug, err)
		}
	}
	log.Info().Int("count", len(DefaultTechnologies)).Msg("technologies ready")

	email := opts.AdminEmail
	contributor := models.Contributor{Name: opts.AdminName, Email: &email}
	if err := d.contributorRepo.EnsureByName(ctx, &contributor); err != nil {
		return fmt.Errorf("seed: contributor: %w", err)
	}
	log.Info().Str("name", contributor.Name).Msg("default contributor ready")

	return nil
}
