// Package keyboard records raw key transitions and reconstructs key presses.
package keyboard

import "time"

// Kind is the direction of a key transition.
type Kind uint8

const (
	// Down is a key-down transition.
	Down Kind = iota + 1
	// Up is a key-up transition.
	Up
)

func (k Kind) String() string {
	switch k {
	case Down:
		return "down"
	case Up:
		return "up"
	default:
		return "unknown"
	}
}

// SlotRef identifies one record in a Ring. A reference stops resolving
// once its slot is tombstoned or overwritten.
type SlotRef struct {
	Slot int
	Seq  uint64
}

// Transition is a single recorded key-down or key-up.
type Transition struct {
	RawCode      string
	DisplayKey   string
	CanonicalKey string
	Kind         Kind
	// Timestamp is measured from the reference clock's epoch.
	Timestamp time.Duration
	// Seq is assigned by the ring on push, starting at 1.
	Seq uint64

	pairedDown SlotRef
	paired     bool
}

// PairedDown returns the matched key-down of an Up record.
func (t Transition) PairedDown() (SlotRef, bool) {
	return t.pairedDown, t.paired
}

// Press is a reconstructed key activation.
type Press struct {
	CanonicalKey string
	RawCode      string
	DisplayKey   string
	Down         time.Duration
	// Duration is only meaningful when Released is true.
	Duration time.Duration
	Released bool
	// RT is Down relative to the clock's last reset.
	RT time.Duration
}

// ContainsKey reports whether any press in the list is for the canonical key.
func ContainsKey(presses []Press, key string) bool {
	for _, p := range presses {
		if p.CanonicalKey == key {
			return true
		}
	}
	return false
}
