package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewProjectAndSlug(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	p, err := NewProject("p1", "  My Big Project!  ", now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	if p.Slug() != "my-big-project" {
		t.Fatalf("unexpected slug %q", p.Slug())
	}
	if p.Name() != "My Big Project!" {
		t.Fatalf("unexpected name %q", p.Name())
	}
	if p.Tasks.Len() != 1 || p.Members.Len() != 0 {
		t.Fatalf("unexpected fresh project %d tasks %d members", p.Tasks.Len(), p.Members.Len())
	}
}

func TestNewProjectValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewProject("", "ok", now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewProject("id", "   ", now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestProjectTouch(t *testing.T) {
	now := time.Now()
	p, err := NewProject("p1", "test", now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	later := now.Add(time.Minute)
	p.Touch(later)
	if !p.UpdatedAt.Equal(later.UTC()) || p.CreatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("unexpected timestamps created=%v updated=%v", p.CreatedAt, p.UpdatedAt)
	}
}

func TestProjectMembers(t *testing.T) {
	now := time.Now()
	p, err := NewProject("p1", "test", now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	if _, err := p.AddMember("  ana ", now); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if _, err := p.AddMember("ana", now); !errors.Is(err, ErrMemberExists) {
		t.Fatalf("expected ErrMemberExists, got %v", err)
	}
	if _, err := p.AddMember(" ", now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := p.RemoveMember("bob"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}

	if _, err := p.Tasks.Add(RootID(), "A"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := p.Assign(MustTaskID(1), "bob"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
	if err := p.Assign(MustTaskID(1), "ana"); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if _, err := p.RemoveMember("ana"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	task, err := p.Tasks.Get(MustTaskID(1))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(task.Members) != 0 {
		t.Fatalf("expected cascade unassign, got %#v", task.Members)
	}
	if _, err := p.Tasks.Remove(MustTaskID(1)); err != nil {
		t.Fatalf("Remove() after unassign error = %v", err)
	}
}

func TestProjectValidateRejectsUnknownAssignee(t *testing.T) {
	p, err := NewProject("p1", "test", time.Now())
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	if _, err := p.Tasks.Add(RootID(), "A"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := p.Tasks.Assign(MustTaskID(1), "ghost"); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if err := p.Validate(); !errors.Is(err, ErrInvalidTaskStore) {
		t.Fatalf("expected ErrInvalidTaskStore, got %v", err)
	}
}

func TestRestoreMembersRejectsDuplicates(t *testing.T) {
	now := time.Now()
	_, err := RestoreMembers([]Member{{Name: "ana", AddedAt: now}, {Name: "ana", AddedAt: now}})
	if !errors.Is(err, ErrMemberExists) {
		t.Fatalf("expected ErrMemberExists, got %v", err)
	}
	members, err := RestoreMembers([]Member{{Name: "zoe"}, {Name: "ana"}})
	if err != nil {
		t.Fatalf("RestoreMembers() error = %v", err)
	}
	list := members.List()
	if len(list) != 2 || list[0].Name != "ana" {
		t.Fatalf("unexpected members %#v", list)
	}
}

func TestNormalizeSlug(t *testing.T) {
	cases := map[string]string{
		"Hello World":  "hello-world",
		"  --a__b--  ": "a-b",
		"Q3 Roadmap!!": "q3-roadmap",
		"":             "",
	}
	for in, want := range cases {
		if got := NormalizeSlug(in); got != want {
			t.Fatalf("NormalizeSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
