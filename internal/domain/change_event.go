package domain

import "time"

// ChangeOperation describes a persisted activity operation on a project.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate          ChangeOperation = "create"
	ChangeOperationAdd             ChangeOperation = "add"
	ChangeOperationRemove          ChangeOperation = "remove"
	ChangeOperationSetActualCost   ChangeOperation = "set_actual_cost"
	ChangeOperationSetPlannedValue ChangeOperation = "set_planned_value"
	ChangeOperationExpand          ChangeOperation = "expand"
	ChangeOperationAddMember       ChangeOperation = "add_member"
	ChangeOperationRemoveMember    ChangeOperation = "remove_member"
	ChangeOperationAssign          ChangeOperation = "assign"
	ChangeOperationUnassign        ChangeOperation = "unassign"
	ChangeOperationImport          ChangeOperation = "import"
)

// ChangeEvent represents a single activity-log entry for a project.
type ChangeEvent struct {
	ID         int64
	ProjectID  string
	TaskID     string
	Operation  ChangeOperation
	Metadata   map[string]string
	OccurredAt time.Time
}

// NewChangeEvent starts an event for op with empty metadata.
func NewChangeEvent(projectID string, op ChangeOperation, now time.Time) ChangeEvent {
	return ChangeEvent{
		ProjectID:  projectID,
		Operation:  op,
		Metadata:   map[string]string{},
		OccurredAt: now.UTC(),
	}
}
