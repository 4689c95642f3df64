package keyboard

import (
	"errors"
	"fmt"
	"iter"
)

// DefaultCapacity is the ring size used when no capacity is configured.
const DefaultCapacity = 10000

// ErrInvalidCapacity is returned for a non-positive ring capacity.
var ErrInvalidCapacity = errors.New("capacity must be greater than 0")

type slot struct {
	t    Transition
	live bool
}

// Ring is a fixed-capacity circular store of transitions. When full, each
// push overwrites the oldest slot.
type Ring struct {
	slots []slot
	write int // slot of the most recent push, -1 if none
	count int // min(pushes, capacity)
	seq   uint64
}

// NewRing preallocates a ring with the given capacity.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid ring capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	return &Ring{
		slots: make([]slot, capacity),
		write: -1,
	}, nil
}

// Push stores t in the next slot and returns its reference. If a live
// record was overwritten it is returned with evicted set.
func (r *Ring) Push(t Transition) (ref SlotRef, old Transition, evicted bool) {
	next := (r.write + 1) % len(r.slots)
	if prev := r.slots[next]; prev.live {
		old, evicted = prev.t, true
	}
	r.seq++
	t.Seq = r.seq
	r.slots[next] = slot{t: t, live: true}
	r.write = next
	if r.count < len(r.slots) {
		r.count++
	}
	return SlotRef{Slot: next, Seq: t.Seq}, old, evicted
}

// All yields live slots oldest first. Tombstoned slots are skipped.
func (r *Ring) All() iter.Seq2[int, Transition] {
	return func(yield func(int, Transition) bool) {
		if r.count == 0 {
			return
		}
		n := len(r.slots)
		start := ((r.write-r.count+1)%n + n) % n
		for i := 0; i < r.count; i++ {
			idx := (start + i) % n
			s := r.slots[idx]
			if !s.live {
				continue
			}
			if !yield(idx, s.t) {
				return
			}
		}
	}
}

// At resolves ref to its record.
func (r *Ring) At(ref SlotRef) (Transition, bool) {
	if ref.Slot < 0 || ref.Slot >= len(r.slots) {
		return Transition{}, false
	}
	s := r.slots[ref.Slot]
	if !s.live || s.t.Seq != ref.Seq {
		return Transition{}, false
	}
	return s.t, true
}

// Tombstone clears a slot. Clearing an empty slot is a no-op.
func (r *Ring) Tombstone(idx int) {
	if idx < 0 || idx >= len(r.slots) {
		return
	}
	r.slots[idx] = slot{}
}

// Reset clears every slot.
func (r *Ring) Reset() {
	clear(r.slots)
	r.write = -1
	r.count = 0
}

// Len returns the number of slots written since the last reset, capped at
// capacity. Tombstoned slots are included.
func (r *Ring) Len() int {
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.slots)
}

func (r *Ring) setPairedDown(idx int, down SlotRef) {
	r.slots[idx].t.pairedDown = down
	r.slots[idx].t.paired = true
}
