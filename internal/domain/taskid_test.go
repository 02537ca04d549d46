package domain

import (
	"errors"
	"testing"
)

func TestParseTaskIDRoundTrip(t *testing.T) {
	for _, raw := range []string{"", "1", "1.2", "1.2.3", "10.20.4294967295"} {
		id, err := ParseTaskID(raw)
		if err != nil {
			t.Fatalf("ParseTaskID(%q) error = %v", raw, err)
		}
		if got := id.String(); got != raw {
			t.Fatalf("String() = %q, want %q", got, raw)
		}
	}
}

func TestParseTaskIDRejectsMalformed(t *testing.T) {
	cases := []string{".", "1.", ".1", "1..2", "a", "1.b", "-1", "+1", "1.0", "0", "01", "1.02", "4294967296", " 1"}
	for _, raw := range cases {
		if _, err := ParseTaskID(raw); !errors.Is(err, ErrBadTaskIDString) {
			t.Fatalf("ParseTaskID(%q) error = %v, want ErrBadTaskIDString", raw, err)
		}
	}
	if _, err := ParseTaskID("2.0"); !errors.Is(err, ErrBadTaskIDNum) {
		t.Fatalf("expected ErrBadTaskIDNum for zero component, got %v", err)
	}
}

func TestNewTaskIDRejectsZero(t *testing.T) {
	if _, err := NewTaskID(1, 0); !errors.Is(err, ErrBadTaskIDNum) {
		t.Fatalf("expected ErrBadTaskIDNum, got %v", err)
	}
	id, err := NewTaskID(3, 1)
	if err != nil {
		t.Fatalf("NewTaskID() error = %v", err)
	}
	if id.String() != "3.1" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestTaskIDParentAndChildIndex(t *testing.T) {
	id := MustTaskID(1, 2, 3)
	parent, err := id.Parent()
	if err != nil {
		t.Fatalf("Parent() error = %v", err)
	}
	if parent.String() != "1.2" {
		t.Fatalf("unexpected parent %q", parent)
	}
	idx, err := id.ChildIndex()
	if err != nil {
		t.Fatalf("ChildIndex() error = %v", err)
	}
	if idx != 3 {
		t.Fatalf("unexpected child index %d", idx)
	}

	if _, err := RootID().Parent(); !errors.Is(err, ErrNoParent) {
		t.Fatalf("expected ErrNoParent, got %v", err)
	}
	if _, err := RootID().ChildIndex(); !errors.Is(err, ErrNoChildIndex) {
		t.Fatalf("expected ErrNoChildIndex, got %v", err)
	}
}

func TestTaskIDChildDoesNotAlias(t *testing.T) {
	base := MustTaskID(1, 2)
	a := base.Child(1)
	b := base.Child(2)
	if a.String() != "1.2.1" || b.String() != "1.2.2" {
		t.Fatalf("unexpected children %q %q", a, b)
	}
	if base.String() != "1.2" {
		t.Fatalf("base mutated to %q", base)
	}
}

func TestTaskIDChildrenAndPath(t *testing.T) {
	children := MustTaskID(4).Children(3)
	want := []string{"4.1", "4.2", "4.3"}
	if len(children) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(children))
	}
	for i, id := range children {
		if id.String() != want[i] {
			t.Fatalf("children[%d] = %q, want %q", i, id, want[i])
		}
	}
	if got := RootID().Children(0); len(got) != 0 {
		t.Fatalf("expected no children, got %d", len(got))
	}

	path := MustTaskID(1, 2, 3).Path()
	wantPath := []string{"", "1", "1.2", "1.2.3"}
	if len(path) != len(wantPath) {
		t.Fatalf("expected %d path entries, got %d", len(wantPath), len(path))
	}
	for i, id := range path {
		if id.String() != wantPath[i] {
			t.Fatalf("path[%d] = %q, want %q", i, id, wantPath[i])
		}
	}
	if got := RootID().Path(); len(got) != 1 || !got[0].IsRoot() {
		t.Fatalf("unexpected root path %#v", got)
	}
}

func TestTaskIDSiblings(t *testing.T) {
	next, err := MustTaskID(2, 1).NextSibling()
	if err != nil {
		t.Fatalf("NextSibling() error = %v", err)
	}
	if next.String() != "2.2" {
		t.Fatalf("unexpected next sibling %q", next)
	}
	prev, err := MustTaskID(2, 3).PrevSibling()
	if err != nil {
		t.Fatalf("PrevSibling() error = %v", err)
	}
	if prev.String() != "2.2" {
		t.Fatalf("unexpected previous sibling %q", prev)
	}
	if _, err := MustTaskID(2, 1).PrevSibling(); !errors.Is(err, ErrNoPrevSibling) {
		t.Fatalf("expected ErrNoPrevSibling, got %v", err)
	}
	if _, err := RootID().NextSibling(); !errors.Is(err, ErrNoNextSibling) {
		t.Fatalf("expected ErrNoNextSibling, got %v", err)
	}
}

func TestTaskIDCompareOrdersDepthFirst(t *testing.T) {
	ordered := []TaskID{RootID(), MustTaskID(1), MustTaskID(1, 1), MustTaskID(1, 2), MustTaskID(2), MustTaskID(10)}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Compare(ordered[i]) >= 0 {
			t.Fatalf("expected %q < %q", ordered[i-1], ordered[i])
		}
	}
	if !MustTaskID(1, 2).Equal(MustTaskID(1, 2)) {
		t.Fatal("expected equal ids")
	}
}

func TestTaskIDTextMarshaling(t *testing.T) {
	var id TaskID
	if err := id.UnmarshalText([]byte("3.4")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	raw, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(raw) != "3.4" {
		t.Fatalf("unexpected text %q", raw)
	}
	if err := id.UnmarshalText([]byte("x")); !errors.Is(err, ErrBadTaskIDString) {
		t.Fatalf("expected ErrBadTaskIDString, got %v", err)
	}
}
