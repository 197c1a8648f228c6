package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a portfolio entry. It is public only while published and not
// marked deleted.
type Project struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string     `json:"name" gorm:"type:text;not null"`
	Description string     `json:"description" gorm:"type:text;not null"`
	StartDate   time.Time  `json:"startDate" gorm:"not null"`
	EndDate     *time.Time `json:"endDate"`
	DemoURL     *string    `json:"demoUrl" gorm:"column:demo_url;type:text"`
	GithubURL   *string    `json:"githubUrl" gorm:"column:github_url;type:text"`
	IsPublished bool       `json:"isPublished" gorm:"not null;default:false;index"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Technologies []ProjectTechnology  `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	Contributors []ProjectContributor `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	Images       []ProjectImage       `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p Project) IsPublic() bool {
	return p.IsPublished && p.DeletedAt == nil
}

// ProjectTechnology is the join row between a project and a technology.
type ProjectTechnology struct {
	ProjectID    uuid.UUID  `json:"projectId" gorm:"type:uuid;primaryKey"`
	TechnologyID uuid.UUID  `json:"technologyId" gorm:"type:uuid;primaryKey;index"`
	Technology   Technology `json:"technology" gorm:"foreignKey:TechnologyID;references:ID;constraint:OnDelete:CASCADE"`
}

// ProjectContributor is the join row between a project and a contributor.
type ProjectContributor struct {
	ProjectID     uuid.UUID   `json:"projectId" gorm:"type:uuid;primaryKey"`
	ContributorID uuid.UUID   `json:"contributorId" gorm:"type:uuid;primaryKey;index"`
	Contributor   Contributor `json:"contributor" gorm:"foreignKey:ContributorID;references:ID;constraint:OnDelete:CASCADE"`
}

// ProjectView is the shape projects are served in: join rows flattened into
// plain arrays, images sorted by display order.
type ProjectView struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      *time.Time     `json:"endDate"`
	DemoURL      *string        `json:"demoUrl"`
	GithubURL    *string        `json:"githubUrl"`
	IsPublished  bool           `json:"isPublished"`
	DeletedAt    *time.Time     `json:"deletedAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Technologies []Technology   `json:"technologies"`
	Contributors []Contributor  `json:"contributors"`
	Images       []ProjectImage `json:"images"`
}

func (p Project) View() ProjectView {
	view := ProjectView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		DemoURL:      p.DemoURL,
		GithubURL:    p.GithubURL,
		IsPublished:  p.IsPublished,
		DeletedAt:    p.DeletedAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Technologies: make([]Technology, 0, len(p.Technologies)),
		Contributors: make([]Contributor, 0, len(p.Contributors)),
		Images:       make([]ProjectImage, 0, len(p.Images)),
	}

	for _, pt := range p.Technologies {
		view.Technologies = append(view.Technologies, pt.Technology)
	}
	sort.SliceStable(view.Technologies, func(i, j int) bool {
		return view.Technologies[i].Name < view.Technologies[j].Name
	})

	for _, pc := range p.Contributors {
		view.Contributors = append(view.Contributors, pc.Contributor)
	}

	view.Images = append(view.Images, p.Images...)
	SortImages(view.Images)

	return view
}

func Views(projects []Project) []ProjectView {
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, p.View())
	}
	return views
}
