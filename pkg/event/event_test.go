package event

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmitInOrder(t *testing.T) {
	r := NewRegistry()
	key := NewKey[string]("order")

	var got []string
	Subscribe(r, key, func(v string) { got = append(got, "a:"+v) })
	Subscribe(r, key, func(v string) { got = append(got, "b:"+v) })
	Subscribe(r, key, func(v string) { got = append(got, "c:"+v) })

	Emit(r, key, "x")

	want := []string{"a:x", "b:x", "c:x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("emit order mismatch (-want +got):\n%s", diff)
	}
}

func TestKeysAreDistinctByIdentity(t *testing.T) {
	r := NewRegistry()
	k1 := NewKey[int]("same")
	k2 := NewKey[int]("same")

	var got1, got2 []int
	Subscribe(r, k1, func(v int) { got1 = append(got1, v) })
	Subscribe(r, k2, func(v int) { got2 = append(got2, v) })

	Emit(r, k1, 1)
	Emit(r, k2, 2)

	if len(got1) != 1 || got1[0] != 1 {
		t.Errorf("k1 subscriber got %v, want [1]", got1)
	}
	if len(got2) != 1 || got2[0] != 2 {
		t.Errorf("k2 subscriber got %v, want [2]", got2)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("cancel")

	calls := 0
	sub := Subscribe(r, key, func(int) { calls++ })

	Emit(r, key, 1)
	sub.Cancel()
	Emit(r, key, 2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("idem")

	sub := Subscribe(r, key, func(int) {})
	sub.Cancel()
	sub.Cancel()

	if got := Count(r, key); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}

func TestCancelSelfDuringEmit(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("self")

	var order []string
	var subA Subscription
	subA = Subscribe(r, key, func(int) {
		order = append(order, "a")
		subA.Cancel()
	})
	Subscribe(r, key, func(int) { order = append(order, "b") })

	Emit(r, key, 0)
	Emit(r, key, 0)

	want := []string{"a", "b", "b"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("self-cancel pass mismatch (-want +got):\n%s", diff)
	}
	if got := Count(r, key); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestCancelLaterSubscriberDuringEmit(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("later")

	var order []string
	var subB Subscription
	Subscribe(r, key, func(int) {
		order = append(order, "a")
		subB.Cancel()
	})
	subB = Subscribe(r, key, func(int) { order = append(order, "b") })
	Subscribe(r, key, func(int) { order = append(order, "c") })

	Emit(r, key, 0)

	// b was cancelled before its turn in the same pass; c still runs.
	want := []string{"a", "c"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("mid-pass cancel mismatch (-want +got):\n%s", diff)
	}
}

func TestCancelEarlierSubscriberDuringEmit(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("earlier")

	var order []string
	var subA Subscription
	subA = Subscribe(r, key, func(int) { order = append(order, "a") })
	Subscribe(r, key, func(int) {
		order = append(order, "b")
		subA.Cancel()
	})
	Subscribe(r, key, func(int) { order = append(order, "c") })

	Emit(r, key, 0)

	// a already ran this pass; cancelling it must not disturb c.
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("cancel-earlier mismatch (-want +got):\n%s", diff)
	}
	if got := Count(r, key); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestSubscribeDuringEmitRunsNextPass(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("grow")

	lateCalls := 0
	first := true
	Subscribe(r, key, func(int) {
		if first {
			first = false
			Subscribe(r, key, func(int) { lateCalls++ })
		}
	})

	Emit(r, key, 0)
	if lateCalls != 0 {
		t.Errorf("late subscriber ran in the pass that added it")
	}

	Emit(r, key, 0)
	if lateCalls != 1 {
		t.Errorf("lateCalls = %d, want 1", lateCalls)
	}
}

func TestPanickingSubscriberDoesNotStopPass(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("panic")

	var panics []any
	r.SetPanicHook(func(name string, rec any) {
		if name != "panic" {
			t.Errorf("hook key = %q, want %q", name, "panic")
		}
		panics = append(panics, rec)
	})

	ran := false
	Subscribe(r, key, func(int) { panic("first blows up") })
	Subscribe(r, key, func(int) { ran = true })

	Emit(r, key, 0)

	if !ran {
		t.Error("second subscriber should still run")
	}
	if len(panics) != 1 {
		t.Errorf("panics captured = %d, want 1", len(panics))
	}
}

func TestNestedEmit(t *testing.T) {
	r := NewRegistry()
	outer := NewKey[int]("outer")
	inner := NewKey[int]("inner")

	var order []string
	Subscribe(r, outer, func(int) {
		order = append(order, "outer")
		Emit(r, inner, 0)
	})
	sub := Subscribe(r, inner, func(int) { order = append(order, "inner") })

	Emit(r, outer, 0)
	sub.Cancel()
	Emit(r, outer, 0)

	want := []string{"outer", "inner", "outer"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("nested emit mismatch (-want +got):\n%s", diff)
	}
}

func TestCancelledEntriesAreSweptAfterPass(t *testing.T) {
	r := NewRegistry()
	key := NewKey[int]("sweep")

	subs := make([]Subscription, 0, 4)
	for i := 0; i < 4; i++ {
		subs = append(subs, Subscribe(r, key, func(int) {}))
	}
	Subscribe(r, key, func(int) {
		for _, s := range subs {
			s.Cancel()
		}
	})

	Emit(r, key, 0)

	if got := Count(r, key); got != 1 {
		t.Errorf("Count = %d, want 1 after sweep", got)
	}
}

func TestEmitWithNoSubscribers(t *testing.T) {
	r := NewRegistry()
	key := NewKey[struct{}]("empty")
	Emit(r, key, struct{}{})
}
