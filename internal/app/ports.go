package app

import (
	"context"

	"github.com/evanschultz/aplan/internal/domain"
)

// Repository persists whole projects. Every update replaces the full task
// store and member registry of one project and appends the change event that
// describes it.
type Repository interface {
	CreateProject(context.Context, domain.Project) error
	UpdateProject(context.Context, domain.Project, domain.ChangeEvent) error
	GetProject(context.Context, string) (domain.Project, error)
	ListProjects(context.Context) ([]domain.Project, error)
	DeleteProject(context.Context, string) error
	ListProjectChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error)
}
