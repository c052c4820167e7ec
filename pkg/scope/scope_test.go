package scope

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCloseRunsHooksLIFO(t *testing.T) {
	s := NewRoot()

	var order []string
	s.OnClose(func() { order = append(order, "first") })
	s.OnClose(func() { order = append(order, "second") })
	s.Close()

	want := []string{"second", "first"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewRoot()

	calls := 0
	s.OnClose(func() { calls++ })
	s.Close()
	s.Close()

	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
	if !s.Closed() {
		t.Error("Closed() should report true")
	}
}

func TestUnregisterHook(t *testing.T) {
	s := NewRoot()

	ran := false
	cancel := s.OnClose(func() { ran = true })
	cancel()
	s.Close()

	if ran {
		t.Error("unregistered hook should not run")
	}
}

func TestOnCloseAfterCloseRunsImmediately(t *testing.T) {
	s := NewRoot()
	s.Close()

	ran := false
	s.OnClose(func() { ran = true })

	if !ran {
		t.Error("hook registered on a closed scope should run immediately")
	}
}

func TestParentCloseCascadesToChildren(t *testing.T) {
	root := NewRoot()
	a := root.Child()
	b := a.Child()

	var order []string
	root.OnClose(func() { order = append(order, "root") })
	a.OnClose(func() { order = append(order, "a") })
	b.OnClose(func() { order = append(order, "b") })

	root.Close()

	want := []string{"b", "a", "root"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("cascade order mismatch (-want +got):\n%s", diff)
	}
	if !a.Closed() || !b.Closed() {
		t.Error("children should be closed")
	}
}

func TestChildClosedIndependently(t *testing.T) {
	root := NewRoot()
	child := root.Child()

	calls := 0
	child.OnClose(func() { calls++ })

	child.Close()
	root.Close()

	if calls != 1 {
		t.Errorf("independently closed child notified %d times, want 1", calls)
	}
	if root.Closed() != true {
		t.Error("root should close")
	}
}

func TestChildOfClosedScopeStartsClosed(t *testing.T) {
	root := NewRoot()
	root.Close()

	child := root.Child()
	if !child.Closed() {
		t.Error("child of a closed scope should start closed")
	}
}

func TestPanickingHookDoesNotStopClose(t *testing.T) {
	s := NewRoot()

	ran := false
	s.OnClose(func() { ran = true })
	s.OnClose(func() { panic("cleanup exploded") })

	s.Close()

	if !ran {
		t.Error("hooks after a panicking hook should still run")
	}
}

func TestProviderOf(t *testing.T) {
	root := NewRoot()
	p := ProviderOf(root)

	s1 := p.ScopeFor("a")
	s2 := p.ScopeFor("b")
	if s1 == s2 {
		t.Error("provider should hand out distinct scopes")
	}

	root.Close()
	if !s1.Closed() || !s2.Closed() {
		t.Error("provided scopes should close with the root")
	}
}
