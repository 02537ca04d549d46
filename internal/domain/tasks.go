package domain

import (
	"fmt"
	"math"
	"slices"
)

// sumTolerance bounds float drift accepted by Validate when comparing roll-ups.
const sumTolerance = 1e-6

// Tasks is the flat WBS store keyed by the textual task id. It always holds
// the root entry, whose name is the WBS name.
type Tasks struct {
	store map[string]*Task
}

// NewTasks creates a store holding only the root task.
func NewTasks(name string) (*Tasks, error) {
	root, err := NewTask(RootID(), name)
	if err != nil {
		return nil, err
	}
	t := &Tasks{store: map[string]*Task{}}
	t.insert(root)
	return t, nil
}

// RestoreTasks rebuilds a store from a full snapshot and checks every invariant.
func RestoreTasks(tasks []Task) (*Tasks, error) {
	t := &Tasks{store: make(map[string]*Task, len(tasks))}
	for _, task := range tasks {
		key := task.ID.String()
		if _, ok := t.store[key]; ok {
			return nil, fmt.Errorf("%w: duplicate task id %q", ErrInvalidTaskStore, key)
		}
		task.Members = normalizeMembers(task.Members)
		t.insert(task)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Clone returns a deep copy of the store.
func (t *Tasks) Clone() *Tasks {
	out := &Tasks{store: make(map[string]*Task, len(t.store))}
	for key, task := range t.store {
		cp := task.clone()
		out.store[key] = &cp
	}
	return out
}

// Name returns the WBS name carried by the root task.
func (t *Tasks) Name() string {
	return t.root().Name
}

// Root returns a copy of the root task.
func (t *Tasks) Root() Task {
	return t.root().clone()
}

// Get returns a copy of the task stored under id.
func (t *Tasks) Get(id TaskID) (Task, error) {
	task, ok := t.lookup(id)
	if !ok {
		return Task{}, notFound(id)
	}
	return task.clone(), nil
}

// Len reports the number of stored tasks, root included.
func (t *Tasks) Len() int {
	return len(t.store)
}

// All returns every task in depth-first id order.
func (t *Tasks) All() []Task {
	return t.filter(func(Task) bool { return true })
}

// Leaves returns every task without children. The root of an empty store
// is not work and is never listed.
func (t *Tasks) Leaves() []Task {
	return t.filter(Task.isWorkLeaf)
}

// Todo returns leaves that are not done.
func (t *Tasks) Todo() []Task {
	return t.filter(func(task Task) bool {
		return task.isWorkLeaf() && task.Status != StatusDone
	})
}

// InProgress returns leaves whose status is in progress.
func (t *Tasks) InProgress() []Task {
	return t.filter(func(task Task) bool {
		return task.isWorkLeaf() && task.Status == StatusInProgress
	})
}

// Done returns leaves whose status is done.
func (t *Tasks) Done() []Task {
	return t.filter(func(task Task) bool {
		return task.isWorkLeaf() && task.Status == StatusDone
	})
}

// Children returns the direct children of id in index order.
func (t *Tasks) Children(id TaskID) ([]Task, error) {
	parent, ok := t.lookup(id)
	if !ok {
		return nil, notFound(id)
	}
	out := make([]Task, 0, parent.NumChildren)
	for _, childID := range parent.ChildIDs() {
		child, ok := t.lookup(childID)
		if !ok {
			return nil, notFound(childID)
		}
		out = append(out, child.clone())
	}
	return out, nil
}

// NextSibling returns the stored sibling that follows id.
func (t *Tasks) NextSibling(id TaskID) (Task, error) {
	siblingID, err := id.NextSibling()
	if err != nil {
		return Task{}, err
	}
	sibling, ok := t.lookup(siblingID)
	if !ok {
		return Task{}, fmt.Errorf("%w: %q", ErrNoNextSibling, id.String())
	}
	return sibling.clone(), nil
}

// PrevSibling returns the stored sibling that precedes id.
func (t *Tasks) PrevSibling(id TaskID) (Task, error) {
	siblingID, err := id.PrevSibling()
	if err != nil {
		return Task{}, err
	}
	sibling, ok := t.lookup(siblingID)
	if !ok {
		return Task{}, fmt.Errorf("%w: %q", ErrNoPrevSibling, id.String())
	}
	return sibling.clone(), nil
}

// Assignees returns the members assigned anywhere in the subtree rooted at id.
func (t *Tasks) Assignees(id TaskID) ([]string, error) {
	task, ok := t.lookup(id)
	if !ok {
		return nil, notFound(id)
	}
	var names []string
	t.collectMembers(task, &names)
	return normalizeMembers(names), nil
}

// collectMembers appends the members of task and all of its descendants.
func (t *Tasks) collectMembers(task *Task, names *[]string) {
	*names = append(*names, task.Members...)
	for _, childID := range task.ChildIDs() {
		if child, ok := t.lookup(childID); ok {
			t.collectMembers(child, names)
		}
	}
}

// Validate checks the structural, roll-up and status invariants of the store.
func (t *Tasks) Validate() error {
	if _, ok := t.lookup(RootID()); !ok {
		return fmt.Errorf("%w: missing root task", ErrInvalidTaskStore)
	}
	expected := 1
	for key, task := range t.store {
		if task.ID.String() != key {
			return fmt.Errorf("%w: task %q stored under %q", ErrInvalidTaskStore, task.ID, key)
		}
		if !task.Status.Valid() {
			return fmt.Errorf("%w: task %q has status %q", ErrInvalidTaskStore, key, task.Status)
		}
		if !isFinite(task.PlannedValue) || !isFinite(task.ActualCost) {
			return fmt.Errorf("%w: task %q has invalid amounts", ErrInvalidTaskStore, key)
		}
		expected += int(task.NumChildren)
		if task.IsLeaf() {
			continue
		}
		if len(task.Members) > 0 {
			return fmt.Errorf("%w: trunk %q carries members", ErrInvalidTaskStore, key)
		}
		var pv, ac float64
		allDone := true
		for _, childID := range task.ChildIDs() {
			child, ok := t.lookup(childID)
			if !ok {
				return fmt.Errorf("%w: task %q is missing child %q", ErrInvalidTaskStore, key, childID)
			}
			pv += child.PlannedValue
			ac += child.ActualCost
			allDone = allDone && child.Status == StatusDone
		}
		if !closeEnough(pv, task.PlannedValue) || !closeEnough(ac, task.ActualCost) {
			return fmt.Errorf("%w: task %q does not equal the sum of its children", ErrInvalidTaskStore, key)
		}
		if allDone != (task.Status == StatusDone) {
			return fmt.Errorf("%w: task %q status disagrees with its children", ErrInvalidTaskStore, key)
		}
	}
	if expected != len(t.store) {
		return fmt.Errorf("%w: %d tasks stored but %d reachable from the root", ErrInvalidTaskStore, len(t.store), expected)
	}
	return nil
}

// filter returns copies of matching tasks sorted by id.
func (t *Tasks) filter(keep func(Task) bool) []Task {
	out := make([]Task, 0, len(t.store))
	for _, task := range t.store {
		if keep(*task) {
			out = append(out, task.clone())
		}
	}
	slices.SortFunc(out, func(a, b Task) int {
		return a.ID.Compare(b.ID)
	})
	return out
}

// root returns the root entry, which exists for every store built by this package.
func (t *Tasks) root() *Task {
	return t.store[""]
}

// lookup returns the live entry for id.
func (t *Tasks) lookup(id TaskID) (*Task, bool) {
	task, ok := t.store[id.String()]
	return task, ok
}

// insert stores task under its own id.
func (t *Tasks) insert(task Task) {
	t.store[task.ID.String()] = &task
}

// drop deletes the entry for id and returns it.
func (t *Tasks) drop(id TaskID) (*Task, bool) {
	key := id.String()
	task, ok := t.store[key]
	if ok {
		delete(t.store, key)
	}
	return task, ok
}

// notFound wraps ErrTaskNotFound with the offending id.
func notFound(id TaskID) error {
	return fmt.Errorf("%w: %q", ErrTaskNotFound, id.String())
}

// isFinite rejects NaN and both infinities.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// closeEnough compares roll-up sums allowing for float drift.
func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= sumTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
