package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Status is the completion state of a task.
type Status string

// StatusInProgress and StatusDone are the only task states.
const (
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Icon returns the glyph used by the text renderers.
func (s Status) Icon() string {
	if s == StatusDone {
		return "✔"
	}
	return "✗"
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusInProgress || s == StatusDone
}

// Task is one WBS node. Relations to other nodes are derived from ID.
type Task struct {
	ID           TaskID
	Name         string
	PlannedValue float64
	ActualCost   float64
	NumChildren  uint32
	Status       Status
	Members      []string
}

// NewTask constructs a fresh leaf.
func NewTask(id TaskID, name string) (Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Task{}, ErrInvalidName
	}
	return Task{
		ID:     id,
		Name:   name,
		Status: StatusInProgress,
	}, nil
}

// IsLeaf reports whether the task has no children.
func (t Task) IsLeaf() bool {
	return t.NumChildren == 0
}

// isWorkLeaf reports whether the task is a leaf other than the root.
func (t Task) isWorkLeaf() bool {
	return t.IsLeaf() && !t.ID.IsRoot()
}

// IsTrunk reports whether the task has at least one child.
func (t Task) IsTrunk() bool {
	return t.NumChildren > 0
}

// ChildIDs returns the ids of the task's direct children.
func (t Task) ChildIDs() []TaskID {
	return t.ID.Children(t.NumChildren)
}

// HasMember reports whether name is assigned directly to the task.
func (t Task) HasMember(name string) bool {
	return slices.Contains(t.Members, name)
}

// Label is the "id - name" form used for DOT nodes; the root shows only its name.
func (t Task) Label() string {
	if t.ID.IsRoot() {
		return t.Name
	}
	return fmt.Sprintf("%s - %s", t.ID, t.Name)
}

// clone returns a copy that shares no slices with t.
func (t Task) clone() Task {
	t.Members = slices.Clone(t.Members)
	return t
}

// addMember inserts name keeping Members sorted and unique.
func (t *Task) addMember(name string) {
	idx, found := slices.BinarySearch(t.Members, name)
	if found {
		return
	}
	t.Members = slices.Insert(t.Members, idx, name)
}

// removeMember drops name from Members.
func (t *Task) removeMember(name string) bool {
	idx, found := slices.BinarySearch(t.Members, name)
	if !found {
		return false
	}
	t.Members = slices.Delete(t.Members, idx, idx+1)
	return true
}

// normalizeMembers trims, dedupes and sorts member names.
func normalizeMembers(names []string) []string {
	out := make([]string, 0, len(names))
	seen := map[string]struct{}{}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
