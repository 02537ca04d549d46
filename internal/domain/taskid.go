package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// taskIDSeparator joins path components in the textual form.
const taskIDSeparator = "."

// TaskID is a path from the WBS root: each component is the 1-based child index
// at that depth. The zero value is the root id.
type TaskID struct {
	path []uint32
}

// RootID returns the id of the implicit root task.
func RootID() TaskID {
	return TaskID{}
}

// NewTaskID builds an id from explicit path components.
func NewTaskID(path ...uint32) (TaskID, error) {
	for _, n := range path {
		if n == 0 {
			return TaskID{}, fmt.Errorf("%w: %w", ErrBadTaskIDString, ErrBadTaskIDNum)
		}
	}
	return TaskID{path: slices.Clone(path)}, nil
}

// MustTaskID is NewTaskID for literals known to be valid.
func MustTaskID(path ...uint32) TaskID {
	id, err := NewTaskID(path...)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseTaskID parses the dotted-decimal form. The empty string is the root.
func ParseTaskID(raw string) (TaskID, error) {
	if raw == "" {
		return RootID(), nil
	}
	parts := strings.Split(raw, taskIDSeparator)
	path := make([]uint32, 0, len(parts))
	for _, part := range parts {
		n, err := parseTaskIDComponent(part)
		if err != nil {
			return TaskID{}, fmt.Errorf("%w %q: %w", ErrBadTaskIDString, raw, err)
		}
		path = append(path, n)
	}
	return TaskID{path: path}, nil
}

// parseTaskIDComponent accepts only canonical positive decimal integers.
func parseTaskIDComponent(part string) (uint32, error) {
	if part == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", part)
		}
	}
	if part == "0" {
		return 0, ErrBadTaskIDNum
	}
	if part[0] == '0' {
		return 0, fmt.Errorf("leading zero in component %q", part)
	}
	n, err := strconv.ParseUint(part, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("component %q out of range", part)
	}
	return uint32(n), nil
}

// String formats the id in dotted-decimal form; the root formats as "".
func (id TaskID) String() string {
	if len(id.path) == 0 {
		return ""
	}
	parts := make([]string, len(id.path))
	for i, n := range id.path {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return strings.Join(parts, taskIDSeparator)
}

// MarshalText encodes the id for JSON map keys and string fields.
func (id TaskID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes the dotted-decimal form.
func (id *TaskID) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Components returns a copy of the raw path components.
func (id TaskID) Components() []uint32 {
	return slices.Clone(id.path)
}

// Len reports the depth of the id; the root has depth 0.
func (id TaskID) Len() int {
	return len(id.path)
}

// IsRoot reports whether id is the root id.
func (id TaskID) IsRoot() bool {
	return len(id.path) == 0
}

// Equal reports structural equality.
func (id TaskID) Equal(other TaskID) bool {
	return slices.Equal(id.path, other.path)
}

// Compare orders ids depth-first: a parent sorts before its children and
// siblings sort by index.
func (id TaskID) Compare(other TaskID) int {
	return slices.Compare(id.path, other.path)
}

// Parent drops the last component.
func (id TaskID) Parent() (TaskID, error) {
	if id.IsRoot() {
		return TaskID{}, fmt.Errorf("%w: root task", ErrNoParent)
	}
	return TaskID{path: slices.Clone(id.path[:len(id.path)-1])}, nil
}

// ChildIndex returns the last component.
func (id TaskID) ChildIndex() (uint32, error) {
	if id.IsRoot() {
		return 0, fmt.Errorf("%w: root task", ErrNoChildIndex)
	}
	return id.path[len(id.path)-1], nil
}

// Child appends n to id.
func (id TaskID) Child(n uint32) TaskID {
	path := make([]uint32, len(id.path), len(id.path)+1)
	copy(path, id.path)
	return TaskID{path: append(path, n)}
}

// Children returns the ids of the first count children, in index order.
func (id TaskID) Children(count uint32) []TaskID {
	out := make([]TaskID, 0, count)
	for n := uint32(1); n <= count; n++ {
		out = append(out, id.Child(n))
	}
	return out
}

// Path returns every id from the root down to id, inclusive. Walk it
// backwards for a bottom-up pass.
func (id TaskID) Path() []TaskID {
	out := make([]TaskID, 0, len(id.path)+1)
	for depth := 0; depth <= len(id.path); depth++ {
		out = append(out, TaskID{path: slices.Clone(id.path[:depth])})
	}
	return out
}

// NextSibling increments the last component. Existence is up to the store.
func (id TaskID) NextSibling() (TaskID, error) {
	idx, err := id.ChildIndex()
	if err != nil {
		return TaskID{}, fmt.Errorf("%w: root task", ErrNoNextSibling)
	}
	return id.withLast(idx + 1), nil
}

// PrevSibling decrements the last component.
func (id TaskID) PrevSibling() (TaskID, error) {
	idx, err := id.ChildIndex()
	if err != nil || idx <= 1 {
		return TaskID{}, fmt.Errorf("%w: %q", ErrNoPrevSibling, id.String())
	}
	return id.withLast(idx - 1), nil
}

// withLast replaces the last component.
func (id TaskID) withLast(n uint32) TaskID {
	path := slices.Clone(id.path)
	path[len(path)-1] = n
	return TaskID{path: path}
}

// shiftedAt decrements the component at depth layer; used by renumbering.
func (id TaskID) shiftedAt(layer int) TaskID {
	path := slices.Clone(id.path)
	path[layer]--
	return TaskID{path: path}
}
