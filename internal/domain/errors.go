package domain

import "errors"

// Lookup errors.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrMemberNotFound = errors.New("member not found")
)

// Malformed-input errors.
var (
	ErrBadTaskIDString = errors.New("invalid task id string")
	ErrBadTaskIDNum    = errors.New("0 is not a valid number in a task id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Structural-invariant violations.
var (
	ErrNoParent                = errors.New("task has no parent")
	ErrNoChildIndex            = errors.New("task has no child index")
	ErrNoNextSibling           = errors.New("task has no next sibling")
	ErrNoPrevSibling           = errors.New("task has no previous sibling")
	ErrTrunkCannotBeRemoved    = errors.New("trunk tasks cannot be removed")
	ErrTrunkCannotChangeCost   = errors.New("cannot change actual cost of a trunk task directly")
	ErrTrunkCannotChangeValue  = errors.New("cannot change planned value of a trunk task directly")
	ErrTrunkCannotAddMember    = errors.New("cannot add members to a trunk task directly")
	ErrTrunkCannotRemoveMember = errors.New("cannot remove members from a trunk task directly")
	ErrInvalidTaskStore        = errors.New("invalid task store")
)

// Assignment policy errors.
var (
	ErrCannotRemoveAssignedTask = errors.New("cannot remove a task with members assigned to it")
	ErrMemberExists             = errors.New("member already exists")
	ErrMemberNotAssigned        = errors.New("member is not assigned to task")
)
