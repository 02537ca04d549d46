package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrProjectExists    = errors.New("project already exists")
	ErrAmbiguousProject = errors.New("project reference is ambiguous")
	ErrNoProject        = errors.New("no project selected")
)
