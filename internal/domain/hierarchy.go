package domain

import "fmt"

// ExpandItem is one (parent, name) pair applied by Expand.
type ExpandItem struct {
	Parent TaskID
	Name   string
}

// Add appends a new leaf under parentID, numbered after its existing siblings.
// Every task on the path to the new leaf drops back to in progress.
func (t *Tasks) Add(parentID TaskID, name string) (Task, error) {
	parent, ok := t.lookup(parentID)
	if !ok {
		return Task{}, notFound(parentID)
	}
	task, err := NewTask(parentID.Child(parent.NumChildren+1), name)
	if err != nil {
		return Task{}, err
	}
	// A leaf turning into a trunk hands its amounts and assignees to its
	// first child: the parent still equals the sum of its children and only
	// leaves carry members.
	if parent.IsLeaf() {
		task.PlannedValue = parent.PlannedValue
		task.ActualCost = parent.ActualCost
		task.Members = parent.Members
		parent.Members = nil
	}

	parent.NumChildren++
	t.insert(task)
	for _, id := range task.ID.Path() {
		t.store[id.String()].Status = StatusInProgress
	}
	return task.clone(), nil
}

// Expand applies a batch of Add calls. Either every item is added or the
// store is left untouched.
func (t *Tasks) Expand(items []ExpandItem) ([]Task, error) {
	work := t.Clone()
	added := make([]Task, 0, len(items))
	for idx, item := range items {
		task, err := work.Add(item.Parent, item.Name)
		if err != nil {
			return nil, fmt.Errorf("expand item %d: %w", idx, err)
		}
		added = append(added, task)
	}
	t.store = work.store
	return added, nil
}

// Remove deletes the leaf id, subtracts its amounts from every ancestor and
// renumbers the later siblings (and their subtrees) to close the gap.
func (t *Tasks) Remove(id TaskID) (Task, error) {
	task, ok := t.lookup(id)
	if !ok {
		return Task{}, notFound(id)
	}
	if task.IsTrunk() {
		return Task{}, fmt.Errorf("%w: %q", ErrTrunkCannotBeRemoved, id.String())
	}
	parentID, err := id.Parent()
	if err != nil {
		return Task{}, err
	}
	if len(task.Members) > 0 {
		return Task{}, fmt.Errorf("%w: %q", ErrCannotRemoveAssignedTask, id.String())
	}
	removed := task.clone()

	t.applyActualCost(id, 0)
	t.applyPlannedValue(id, 0)
	t.refreshStatus(id)

	parent := t.store[parentID.String()]
	oldCount := parent.NumChildren
	parent.NumChildren--
	t.drop(id)

	// Ascending order: each shifted id lands on a slot vacated by the
	// deletion or by the sibling handled just before it.
	removedIdx, _ := id.ChildIndex()
	layer := id.Len() - 1
	for idx := removedIdx + 1; idx <= oldCount; idx++ {
		t.relabel(parentID.Child(idx), layer)
	}
	return removed, nil
}

// SetActualCost sets the cost of a leaf, rolls the difference up to every
// ancestor and recomputes statuses bottom-up. A leaf whose cost is recorded
// counts as done.
func (t *Tasks) SetActualCost(id TaskID, cost float64) error {
	if err := t.checkLeafAmount(id, cost, ErrTrunkCannotChangeCost); err != nil {
		return err
	}
	t.applyActualCost(id, cost)
	t.refreshStatus(id)
	return nil
}

// SetPlannedValue sets the planned value of a leaf and rolls the difference
// up to every ancestor. Statuses are not touched.
func (t *Tasks) SetPlannedValue(id TaskID, value float64) error {
	if err := t.checkLeafAmount(id, value, ErrTrunkCannotChangeValue); err != nil {
		return err
	}
	t.applyPlannedValue(id, value)
	return nil
}

// checkLeafAmount runs the shared validation of the two setters.
func (t *Tasks) checkLeafAmount(id TaskID, amount float64, trunkErr error) error {
	if !isFinite(amount) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	task, ok := t.lookup(id)
	if !ok {
		return notFound(id)
	}
	if task.IsTrunk() {
		return fmt.Errorf("%w: %q", trunkErr, id.String())
	}
	if _, err := id.Parent(); err != nil {
		return err
	}
	return nil
}

// applyActualCost writes cost to id and adds the difference along the parent path.
func (t *Tasks) applyActualCost(id TaskID, cost float64) {
	task := t.store[id.String()]
	diff := cost - task.ActualCost
	task.ActualCost = cost
	for _, ancestor := range ancestors(id) {
		t.store[ancestor.String()].ActualCost += diff
	}
}

// applyPlannedValue writes value to id and adds the difference along the parent path.
func (t *Tasks) applyPlannedValue(id TaskID, value float64) {
	task := t.store[id.String()]
	diff := value - task.PlannedValue
	task.PlannedValue = value
	for _, ancestor := range ancestors(id) {
		t.store[ancestor.String()].PlannedValue += diff
	}
}

// refreshStatus walks from id up to the root marking each task done exactly
// when all of its direct children are done.
func (t *Tasks) refreshStatus(id TaskID) {
	path := id.Path()
	for i := len(path) - 1; i >= 0; i-- {
		task := t.store[path[i].String()]
		if t.childrenDone(task) {
			task.Status = StatusDone
		} else {
			task.Status = StatusInProgress
		}
	}
}

// childrenDone reports whether every direct child of task is done.
func (t *Tasks) childrenDone(task *Task) bool {
	for _, childID := range task.ChildIDs() {
		child, ok := t.lookup(childID)
		if !ok || child.Status != StatusDone {
			return false
		}
	}
	return true
}

// relabel moves the subtree stored under old to the id with component layer
// decremented by one.
func (t *Tasks) relabel(old TaskID, layer int) {
	task, ok := t.drop(old)
	if !ok {
		return
	}
	task.ID = old.shiftedAt(layer)
	t.store[task.ID.String()] = task
	for _, childID := range old.Children(task.NumChildren) {
		t.relabel(childID, layer)
	}
}

// ancestors returns the strict ancestors of id from the root down.
func ancestors(id TaskID) []TaskID {
	path := id.Path()
	return path[:len(path)-1]
}
