package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Member is a person who can be assigned to leaf tasks.
type Member struct {
	Name    string
	AddedAt time.Time
}

// NewMember validates and constructs a member.
func NewMember(name string, now time.Time) (Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, ErrInvalidName
	}
	return Member{Name: name, AddedAt: now.UTC()}, nil
}

// Members is the project's member registry keyed by name.
type Members struct {
	byName map[string]Member
}

// NewMembers returns an empty registry.
func NewMembers() *Members {
	return &Members{byName: map[string]Member{}}
}

// RestoreMembers rebuilds a registry from persisted rows.
func RestoreMembers(members []Member) (*Members, error) {
	out := NewMembers()
	for _, m := range members {
		if err := out.add(m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns the member called name.
func (m *Members) Get(name string) (Member, error) {
	member, ok := m.byName[strings.TrimSpace(name)]
	if !ok {
		return Member{}, fmt.Errorf("%w: %q", ErrMemberNotFound, name)
	}
	return member, nil
}

// List returns every member sorted by name.
func (m *Members) List() []Member {
	out := make([]Member, 0, len(m.byName))
	for _, member := range m.byName {
		out = append(out, member)
	}
	slices.SortFunc(out, func(a, b Member) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Len reports the number of members.
func (m *Members) Len() int {
	return len(m.byName)
}

// Clone returns an independent copy.
func (m *Members) Clone() *Members {
	out := NewMembers()
	for name, member := range m.byName {
		out.byName[name] = member
	}
	return out
}

// add inserts member, rejecting duplicates.
func (m *Members) add(member Member) error {
	if strings.TrimSpace(member.Name) == "" {
		return ErrInvalidName
	}
	if _, ok := m.byName[member.Name]; ok {
		return fmt.Errorf("%w: %q", ErrMemberExists, member.Name)
	}
	m.byName[member.Name] = member
	return nil
}

// Assign attaches member name to the leaf id.
func (t *Tasks) Assign(id TaskID, name string) error {
	task, ok := t.lookup(id)
	if !ok {
		return notFound(id)
	}
	if task.IsTrunk() {
		return fmt.Errorf("%w: %q", ErrTrunkCannotAddMember, id.String())
	}
	task.addMember(name)
	return nil
}

// Unassign detaches member name from the leaf id.
func (t *Tasks) Unassign(id TaskID, name string) error {
	task, ok := t.lookup(id)
	if !ok {
		return notFound(id)
	}
	if task.IsTrunk() {
		return fmt.Errorf("%w: %q", ErrTrunkCannotRemoveMember, id.String())
	}
	if !task.HasMember(name) {
		return fmt.Errorf("%w: %q on %q", ErrMemberNotAssigned, name, id.String())
	}
	task.removeMember(name)
	return nil
}

// AssignedTo returns every task that name is assigned to directly.
func (t *Tasks) AssignedTo(name string) []Task {
	return t.filter(func(task Task) bool {
		return task.HasMember(name)
	})
}

// unassignEverywhere drops name from every task, trunks included.
func (t *Tasks) unassignEverywhere(name string) int {
	count := 0
	for _, task := range t.store {
		if task.removeMember(name) {
			count++
		}
	}
	return count
}
