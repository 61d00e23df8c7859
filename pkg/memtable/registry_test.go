package memtable

import (
	"testing"

	"github.com/google/uuid"
)

func TestRegistry_StoreIsolationPerSession(t *testing.T) {
	r := NewRegistry()
	a := uuid.New()
	b := uuid.New()

	r.Store(a).AddTable("sales", []map[string]any{{"x": 1}})

	if !r.Store(b).IsEmpty() {
		t.Error("expected other session's store to be empty")
	}
	if r.Store(a).IsEmpty() {
		t.Error("expected session store to keep its table")
	}
	if r.Store(a) != r.Store(a) {
		t.Error("expected the same store instance per session")
	}
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()

	r.Store(id).AddTable("sales", nil)
	r.Reset(id)

	if !r.Store(id).IsEmpty() {
		t.Error("expected reset to drop the session's tables")
	}
}

func TestRegistry_Sessions(t *testing.T) {
	r := NewRegistry()
	if r.Sessions() != 0 {
		t.Errorf("expected 0 sessions, got %d", r.Sessions())
	}
	r.Store(uuid.New())
	r.Store(uuid.New())
	if r.Sessions() != 2 {
		t.Errorf("expected 2 sessions, got %d", r.Sessions())
	}
}
