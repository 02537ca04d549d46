package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/aplan/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "aplan.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Projects   []SnapshotProject `json:"projects"`
}

// SnapshotProject is one project with its full task store keyed by textual task id.
type SnapshotProject struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Tasks     map[string]SnapshotTask `json:"tasks"`
	Members   []SnapshotMember        `json:"members"`
}

// SnapshotTask represents snapshot task data used by this package.
type SnapshotTask struct {
	Name         string        `json:"name"`
	PlannedValue float64       `json:"planned_value"`
	ActualCost   float64       `json:"actual_cost"`
	NumChildren  uint32        `json:"num_children"`
	Status       domain.Status `json:"status"`
	Members      []string      `json:"members,omitempty"`
}

// SnapshotMember represents snapshot member data used by this package.
type SnapshotMember struct {
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// ExportSnapshot exports the project ref resolves to, or every project when ref is empty.
func (s *Service) ExportSnapshot(ctx context.Context, ref string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var projects []domain.Project
	if strings.TrimSpace(ref) == "" {
		all, err := s.repo.ListProjects(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		projects = all
	} else {
		project, err := s.resolve(ctx, ref)
		if err != nil {
			return Snapshot{}, err
		}
		projects = []domain.Project{project}
	}

	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Projects:   make([]SnapshotProject, 0, len(projects)),
	}
	for _, project := range projects {
		snap.Projects = append(snap.Projects, SnapshotProjectFromDomain(project))
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot validates every project in snap before writing any of them,
// then creates or replaces each one.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	projects := make([]domain.Project, 0, len(snap.Projects))
	for i, sp := range snap.Projects {
		project, err := sp.ToDomain()
		if err != nil {
			return fmt.Errorf("projects[%d]: %w", i, err)
		}
		projects = append(projects, project)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, project := range projects {
		if err := s.upsertProject(ctx, project); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the envelope; per-project invariants are checked by ToDomain.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	projectIDs := map[string]struct{}{}
	for i, p := range s.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("projects[%d].id is required", i)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("projects[%d].name is required", i)
		}
		if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
			return fmt.Errorf("projects[%d] timestamps are required", i)
		}
		if _, exists := projectIDs[p.ID]; exists {
			return fmt.Errorf("duplicate project id: %q", p.ID)
		}
		projectIDs[p.ID] = struct{}{}

		root, ok := p.Tasks[""]
		if !ok {
			return fmt.Errorf("projects[%d] is missing its root task", i)
		}
		if root.Name != p.Name {
			return fmt.Errorf("projects[%d].name %q does not match root task %q", i, p.Name, root.Name)
		}
		for key := range p.Tasks {
			if _, err := domain.ParseTaskID(key); err != nil {
				return fmt.Errorf("projects[%d].tasks: %w", i, err)
			}
		}
	}
	return nil
}

// SnapshotProjectFromDomain converts a project into its snapshot form.
func SnapshotProjectFromDomain(p domain.Project) SnapshotProject {
	all := p.Tasks.All()
	out := SnapshotProject{
		ID:        p.ID,
		Name:      p.Name(),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
		Tasks:     make(map[string]SnapshotTask, len(all)),
		Members:   make([]SnapshotMember, 0, p.Members.Len()),
	}
	for _, task := range all {
		out.Tasks[task.ID.String()] = SnapshotTask{
			Name:         task.Name,
			PlannedValue: task.PlannedValue,
			ActualCost:   task.ActualCost,
			NumChildren:  task.NumChildren,
			Status:       task.Status,
			Members:      append([]string(nil), task.Members...),
		}
	}
	for _, member := range p.Members.List() {
		out.Members = append(out.Members, SnapshotMember{Name: member.Name, AddedAt: member.AddedAt.UTC()})
	}
	return out
}

// ToDomain rebuilds the project and checks every store invariant.
func (p SnapshotProject) ToDomain() (domain.Project, error) {
	tasks := make([]domain.Task, 0, len(p.Tasks))
	for key, st := range p.Tasks {
		id, err := domain.ParseTaskID(key)
		if err != nil {
			return domain.Project{}, err
		}
		tasks = append(tasks, domain.Task{
			ID:           id,
			Name:         st.Name,
			PlannedValue: st.PlannedValue,
			ActualCost:   st.ActualCost,
			NumChildren:  st.NumChildren,
			Status:       st.Status,
			Members:      append([]string(nil), st.Members...),
		})
	}
	store, err := domain.RestoreTasks(tasks)
	if err != nil {
		return domain.Project{}, err
	}

	members := make([]domain.Member, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, domain.Member{Name: strings.TrimSpace(m.Name), AddedAt: m.AddedAt.UTC()})
	}
	registry, err := domain.RestoreMembers(members)
	if err != nil {
		return domain.Project{}, err
	}

	project := domain.Project{
		ID:        strings.TrimSpace(p.ID),
		Tasks:     store,
		Members:   registry,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	if err := project.Validate(); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// upsertProject handles upsert project.
func (s *Service) upsertProject(ctx context.Context, p domain.Project) error {
	if _, err := s.repo.GetProject(ctx, p.ID); err == nil {
		event := domain.NewChangeEvent(p.ID, domain.ChangeOperationImport, s.clock())
		event.Metadata["tasks"] = strconv.Itoa(p.Tasks.Len())
		return s.repo.UpdateProject(ctx, p, event)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateProject(ctx, p)
}

// sort orders projects by id and members by name for deterministic output.
func (s *Snapshot) sort() {
	slices.SortFunc(s.Projects, func(a, b SnapshotProject) int {
		return strings.Compare(a.ID, b.ID)
	})
	for i := range s.Projects {
		members := s.Projects[i].Members
		slices.SortFunc(members, func(a, b SnapshotMember) int {
			return strings.Compare(a.Name, b.Name)
		})
	}
}
