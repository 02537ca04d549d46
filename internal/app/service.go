package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/aplan/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service applies hierarchy operations to stored projects. Each call loads
// one project, runs exactly one engine operation and saves the full result
// while holding the service lock.
type Service struct {
	mu    sync.Mutex
	repo  Repository
	idGen IDGenerator
	clock Clock
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:  repo,
		idGen: idGen,
		clock: clock,
	}
}

// CreateProject creates a project whose root task carries name.
func (s *Service) CreateProject(ctx context.Context, name string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := domain.NewProject(s.idGen(), name, s.clock())
	if err != nil {
		return domain.Project{}, err
	}
	existing, err := s.repo.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for _, other := range existing {
		if other.Slug() == project.Slug() {
			return domain.Project{}, fmt.Errorf("%w: %q", ErrProjectExists, other.Name())
		}
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	log.Debug("project created", "project_id", project.ID, "name", project.Name())
	return project, nil
}

// ListProjects lists every stored project.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.ListProjects(ctx)
}

// GetProject resolves ref to a stored project.
func (s *Service) GetProject(ctx context.Context, ref string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(ctx, ref)
}

// DeleteProject removes the project that ref resolves to.
func (s *Service) DeleteProject(ctx context.Context, ref string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.DeleteProject(ctx, project.ID); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// AddTask appends a new leaf under parent.
func (s *Service) AddTask(ctx context.Context, ref string, parent domain.TaskID, name string) (domain.Task, error) {
	var added domain.Task
	_, err := s.mutate(ctx, ref, domain.ChangeOperationAdd, func(p *domain.Project, ev *domain.ChangeEvent) error {
		task, err := p.Tasks.Add(parent, name)
		if err != nil {
			return err
		}
		added = task
		ev.TaskID = task.ID.String()
		ev.Metadata["name"] = task.Name
		return nil
	})
	return added, err
}

// RemoveTask removes the leaf id and renumbers its later siblings.
func (s *Service) RemoveTask(ctx context.Context, ref string, id domain.TaskID) (domain.Task, error) {
	var removed domain.Task
	_, err := s.mutate(ctx, ref, domain.ChangeOperationRemove, func(p *domain.Project, ev *domain.ChangeEvent) error {
		task, err := p.Tasks.Remove(id)
		if err != nil {
			return err
		}
		removed = task
		ev.TaskID = id.String()
		ev.Metadata["name"] = task.Name
		return nil
	})
	return removed, err
}

// SetActualCost sets the actual cost of the leaf id.
func (s *Service) SetActualCost(ctx context.Context, ref string, id domain.TaskID, cost float64) (domain.Task, error) {
	return s.mutateTask(ctx, ref, domain.ChangeOperationSetActualCost, id, func(p *domain.Project, ev *domain.ChangeEvent) error {
		ev.Metadata["amount"] = strconv.FormatFloat(cost, 'f', -1, 64)
		return p.Tasks.SetActualCost(id, cost)
	})
}

// SetPlannedValue sets the planned value of the leaf id.
func (s *Service) SetPlannedValue(ctx context.Context, ref string, id domain.TaskID, value float64) (domain.Task, error) {
	return s.mutateTask(ctx, ref, domain.ChangeOperationSetPlannedValue, id, func(p *domain.Project, ev *domain.ChangeEvent) error {
		ev.Metadata["amount"] = strconv.FormatFloat(value, 'f', -1, 64)
		return p.Tasks.SetPlannedValue(id, value)
	})
}

// Expand adds every item or none of them.
func (s *Service) Expand(ctx context.Context, ref string, items []domain.ExpandItem) ([]domain.Task, error) {
	var added []domain.Task
	_, err := s.mutate(ctx, ref, domain.ChangeOperationExpand, func(p *domain.Project, ev *domain.ChangeEvent) error {
		tasks, err := p.Tasks.Expand(items)
		if err != nil {
			return err
		}
		added = tasks
		ev.Metadata["count"] = strconv.Itoa(len(tasks))
		return nil
	})
	return added, err
}

// AddMember registers a member on the project.
func (s *Service) AddMember(ctx context.Context, ref, name string) (domain.Member, error) {
	var member domain.Member
	_, err := s.mutate(ctx, ref, domain.ChangeOperationAddMember, func(p *domain.Project, ev *domain.ChangeEvent) error {
		m, err := p.AddMember(name, s.clock())
		if err != nil {
			return err
		}
		member = m
		ev.Metadata["member"] = m.Name
		return nil
	})
	return member, err
}

// RemoveMember deletes a member and drops all of its assignments.
func (s *Service) RemoveMember(ctx context.Context, ref, name string) (domain.Member, error) {
	var member domain.Member
	_, err := s.mutate(ctx, ref, domain.ChangeOperationRemoveMember, func(p *domain.Project, ev *domain.ChangeEvent) error {
		m, err := p.RemoveMember(name)
		if err != nil {
			return err
		}
		member = m
		ev.Metadata["member"] = m.Name
		return nil
	})
	return member, err
}

// Assign attaches a member to the leaf id.
func (s *Service) Assign(ctx context.Context, ref string, id domain.TaskID, name string) (domain.Task, error) {
	return s.mutateTask(ctx, ref, domain.ChangeOperationAssign, id, func(p *domain.Project, ev *domain.ChangeEvent) error {
		ev.Metadata["member"] = strings.TrimSpace(name)
		return p.Assign(id, name)
	})
}

// Unassign detaches a member from the leaf id.
func (s *Service) Unassign(ctx context.Context, ref string, id domain.TaskID, name string) (domain.Task, error) {
	return s.mutateTask(ctx, ref, domain.ChangeOperationUnassign, id, func(p *domain.Project, ev *domain.ChangeEvent) error {
		ev.Metadata["member"] = strings.TrimSpace(name)
		return p.Unassign(id, name)
	})
}

// History lists the latest change events of the project, newest first.
func (s *Service) History(ctx context.Context, ref string, limit int) ([]domain.ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProjectChangeEvents(ctx, project.ID, limit)
}

// mutationFunc applies one engine operation and describes it on ev.
type mutationFunc func(p *domain.Project, ev *domain.ChangeEvent) error

// mutateTask runs fn against id and returns the post-mutation state of id.
func (s *Service) mutateTask(ctx context.Context, ref string, op domain.ChangeOperation, id domain.TaskID, fn mutationFunc) (domain.Task, error) {
	project, err := s.mutate(ctx, ref, op, func(p *domain.Project, ev *domain.ChangeEvent) error {
		ev.TaskID = id.String()
		return fn(p, ev)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return project.Tasks.Get(id)
}

// mutate loads the project, applies fn and saves the result together with
// its change event. Nothing is saved when fn fails.
func (s *Service) mutate(ctx context.Context, ref string, op domain.ChangeOperation, fn mutationFunc) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return domain.Project{}, err
	}
	now := s.clock()
	event := domain.NewChangeEvent(project.ID, op, now)
	if err := fn(&project, &event); err != nil {
		log.Warn("mutation rejected", "project_id", project.ID, "op", op, "err", err)
		return domain.Project{}, err
	}
	project.Touch(now)
	if err := s.repo.UpdateProject(ctx, project, event); err != nil {
		return domain.Project{}, err
	}
	log.Debug("mutation applied", "project_id", project.ID, "op", op, "task_id", event.TaskID, "tasks", project.Tasks.Len())
	return project, nil
}

// resolve finds a project by id, name or slug. An empty ref selects the only
// stored project.
func (s *Service) resolve(ctx context.Context, ref string) (domain.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		project, err := s.repo.GetProject(ctx, ref)
		if err == nil {
			return project, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return domain.Project{}, err
		}
	}

	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	if ref == "" {
		switch len(projects) {
		case 0:
			return domain.Project{}, ErrNoProject
		case 1:
			return projects[0], nil
		default:
			return domain.Project{}, fmt.Errorf("%w: %d projects stored, pass one explicitly", ErrNoProject, len(projects))
		}
	}

	slug := domain.NormalizeSlug(ref)
	var matches []domain.Project
	for _, project := range projects {
		if strings.EqualFold(project.Name(), ref) || (slug != "" && project.Slug() == slug) {
			matches = append(matches, project)
		}
	}
	switch len(matches) {
	case 0:
		return domain.Project{}, fmt.Errorf("project %q: %w", ref, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return domain.Project{}, fmt.Errorf("%w: %q", ErrAmbiguousProject, ref)
	}
}
