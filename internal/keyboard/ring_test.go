package keyboard

import (
	"errors"
	"testing"
	"time"
)

func rawCodes(r *Ring) []string {
	var out []string
	for _, t := range r.All() {
		out = append(out, t.RawCode)
	}
	return out
}

func TestNewRingRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := NewRing(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("capacity %d: expected ErrInvalidCapacity, got %v", capacity, err)
		}
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	r, err := NewRing(3)
	if err != nil {
		t.Fatalf("new ring: %v", err)
	}
	for i, code := range []string{"A", "B", "C", "D"} {
		_, old, evicted := r.Push(Transition{RawCode: code, Kind: Down, Timestamp: time.Duration(i) * time.Second})
		if code == "D" {
			if !evicted || old.RawCode != "A" {
				t.Fatalf("expected A to be evicted, got %q (evicted=%v)", old.RawCode, evicted)
			}
		} else if evicted {
			t.Fatalf("unexpected eviction while pushing %s", code)
		}
	}
	got := rawCodes(r)
	want := []string{"B", "C", "D"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
}

func TestRingSkipsTombstones(t *testing.T) {
	r, _ := NewRing(4)
	var refs []SlotRef
	for _, code := range []string{"A", "B", "C"} {
		ref, _, _ := r.Push(Transition{RawCode: code})
		refs = append(refs, ref)
	}
	r.Tombstone(refs[1].Slot)
	r.Tombstone(refs[1].Slot)
	got := rawCodes(r)
	if len(got) != 2 || got[0] != "A" || got[1] != "C" {
		t.Fatalf("unexpected iteration: %v", got)
	}
	if _, ok := r.At(refs[1]); ok {
		t.Fatalf("expected tombstoned slot to not resolve")
	}
}

func TestRingStaleRefDoesNotResolve(t *testing.T) {
	r, _ := NewRing(2)
	first, _, _ := r.Push(Transition{RawCode: "A"})
	r.Push(Transition{RawCode: "B"})
	r.Push(Transition{RawCode: "C"})
	if _, ok := r.At(first); ok {
		t.Fatalf("expected overwritten slot to not resolve")
	}
	latest, _, _ := r.Push(Transition{RawCode: "D"})
	got, ok := r.At(latest)
	if !ok || got.RawCode != "D" {
		t.Fatalf("expected D at latest ref, got %+v (ok=%v)", got, ok)
	}
}

func TestRingIterationIsRestartableAndStoppable(t *testing.T) {
	r, _ := NewRing(5)
	for _, code := range []string{"A", "B", "C"} {
		r.Push(Transition{RawCode: code})
	}
	count := 0
	for range r.All() {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected early stop after 1, got %d", count)
	}
	if got := rawCodes(r); len(got) != 3 {
		t.Fatalf("expected restartable iteration, got %v", got)
	}
}

func TestRingReset(t *testing.T) {
	r, _ := NewRing(2)
	r.Push(Transition{RawCode: "A"})
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after reset, got %d", r.Len())
	}
	if got := rawCodes(r); len(got) != 0 {
		t.Fatalf("expected no records, got %v", got)
	}
	ref, _, evicted := r.Push(Transition{RawCode: "B"})
	if evicted || ref.Slot != 0 {
		t.Fatalf("expected write at slot 0 after reset, got %+v evicted=%v", ref, evicted)
	}
}
