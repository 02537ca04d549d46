package domain

import (
	"fmt"
	"strings"
	"time"
)

// Project aggregates one WBS with its member registry.
type Project struct {
	ID        string
	Tasks     *Tasks
	Members   *Members
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProject constructs a new value for this package.
func NewProject(id, name string, now time.Time) (Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Project{}, ErrInvalidID
	}
	tasks, err := NewTasks(name)
	if err != nil {
		return Project{}, err
	}
	return Project{
		ID:        id,
		Tasks:     tasks,
		Members:   NewMembers(),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Name returns the project name, which is the root task's name.
func (p Project) Name() string {
	return p.Tasks.Name()
}

// Slug returns a file-system friendly form of the project name.
func (p Project) Slug() string {
	return NormalizeSlug(p.Name())
}

// Clone returns a copy sharing no state with p.
func (p Project) Clone() Project {
	p.Tasks = p.Tasks.Clone()
	p.Members = p.Members.Clone()
	return p
}

// Touch records a mutation time.
func (p *Project) Touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}

// AddMember registers a new member.
func (p *Project) AddMember(name string, now time.Time) (Member, error) {
	member, err := NewMember(name, now)
	if err != nil {
		return Member{}, err
	}
	if err := p.Members.add(member); err != nil {
		return Member{}, err
	}
	return member, nil
}

// RemoveMember deletes a member and unassigns it from every task.
func (p *Project) RemoveMember(name string) (Member, error) {
	member, err := p.Members.Get(name)
	if err != nil {
		return Member{}, err
	}
	delete(p.Members.byName, member.Name)
	p.Tasks.unassignEverywhere(member.Name)
	return member, nil
}

// Assign attaches an existing member to the leaf id.
func (p *Project) Assign(id TaskID, name string) error {
	member, err := p.Members.Get(name)
	if err != nil {
		return err
	}
	return p.Tasks.Assign(id, member.Name)
}

// Unassign detaches a member from the leaf id.
func (p *Project) Unassign(id TaskID, name string) error {
	member, err := p.Members.Get(name)
	if err != nil {
		return err
	}
	return p.Tasks.Unassign(id, member.Name)
}

// Validate checks that every assignment references a registered member.
func (p Project) Validate() error {
	if err := p.Tasks.Validate(); err != nil {
		return err
	}
	for _, task := range p.Tasks.All() {
		for _, name := range task.Members {
			if _, ok := p.Members.byName[name]; !ok {
				return fmt.Errorf("%w: task %q references unknown member %q", ErrInvalidTaskStore, task.ID, name)
			}
		}
	}
	return nil
}

// NormalizeSlug lower-cases s and collapses every run of other characters to one dash.
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevDash = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	return out
}
