// Package input turns terminal key messages into key-down and key-up signals.
//
// Terminals report presses and auto-repeats but never releases. A Tracker
// treats a key as held while it keeps repeating and releases it once it has
// not been seen for the release timeout.
package input

import (
	"slices"
	"strings"
	"time"

	"github.com/verte-zerg/keyrec/internal/keyboard"
)

// DefaultReleaseAfter covers the initial auto-repeat delay of common
// keyboard settings.
const DefaultReleaseAfter = 550 * time.Millisecond

// Signal is one key transition delivered by the input source.
type Signal struct {
	RawCode    string
	DisplayKey string
	Kind       keyboard.Kind
	IsRepeat   bool
	At         time.Time
}

type heldKey struct {
	display  string
	lastSeen time.Time
}

// Tracker infers key releases from the absence of auto-repeat.
type Tracker struct {
	releaseAfter time.Duration
	held         map[string]*heldKey
}

// NewTracker returns a tracker that releases keys not seen for releaseAfter.
func NewTracker(releaseAfter time.Duration) *Tracker {
	if releaseAfter <= 0 {
		releaseAfter = DefaultReleaseAfter
	}
	return &Tracker{
		releaseAfter: releaseAfter,
		held:         map[string]*heldKey{},
	}
}

// ReleaseAfter returns the configured release timeout.
func (t *Tracker) ReleaseAfter() time.Duration {
	return t.releaseAfter
}

// Observe records a key message. The first sighting of a key is a key-down;
// further sightings while it is held are repeats.
func (t *Tracker) Observe(raw, display string, at time.Time) Signal {
	if k, ok := t.held[raw]; ok {
		k.lastSeen = at
		return Signal{RawCode: raw, DisplayKey: display, Kind: keyboard.Down, IsRepeat: true, At: at}
	}
	t.held[raw] = &heldKey{display: display, lastSeen: at}
	return Signal{RawCode: raw, DisplayKey: display, Kind: keyboard.Down, At: at}
}

// Expire releases every key not seen since at minus the release timeout.
// The key-up is stamped with the key's last sighting.
func (t *Tracker) Expire(at time.Time) []Signal {
	return t.release(func(k *heldKey) bool {
		return at.Sub(k.lastSeen) >= t.releaseAfter
	})
}

// ReleaseAll releases every held key.
func (t *Tracker) ReleaseAll() []Signal {
	return t.release(func(*heldKey) bool { return true })
}

// Held returns the number of keys currently considered down.
func (t *Tracker) Held() int {
	return len(t.held)
}

func (t *Tracker) release(due func(*heldKey) bool) []Signal {
	var out []Signal
	for raw, k := range t.held {
		if !due(k) {
			continue
		}
		out = append(out, Signal{RawCode: raw, DisplayKey: k.display, Kind: keyboard.Up, At: k.lastSeen})
		delete(t.held, raw)
	}
	slices.SortFunc(out, func(a, b Signal) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return strings.Compare(a.RawCode, b.RawCode)
	})
	return out
}
