package keyboard

import (
	"log/slog"
	"time"
)

// Status gates whether the recorder accepts key transitions.
type Status uint8

const (
	// NotStarted is the initial status of a recorder that waits for Start.
	NotStarted Status = iota
	// Started accepts key transitions.
	Started
	// Stopped drops key transitions until Start is called again.
	Stopped
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Clock supplies the zero point reaction times are measured from.
type Clock interface {
	LastReset() time.Duration
}

// Query selects presses returned by Recorder.Presses.
type Query struct {
	// Keys restricts results to these canonical keys. Empty means all keys.
	Keys []string
	// IncludeUnreleased adds keys that are still held down.
	IncludeUnreleased bool
	// Retire removes returned presses from the recorder.
	Retire bool
}

// Option configures a Recorder.
type Option func(*options)

type options struct {
	capacity     int
	waitForStart bool
	logger       *slog.Logger
}

// WithCapacity sets the number of transitions retained.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WaitForStart makes the recorder drop transitions until Start is called.
func WaitForStart(wait bool) Option {
	return func(o *options) { o.waitForStart = wait }
}

// WithLogger sets the logger used for dropped transitions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Recorder pairs key-down and key-up transitions into presses. It is not
// safe for concurrent use; all calls must come from one goroutine.
type Recorder struct {
	ring    *Ring
	pending *pendingIndex
	clock   Clock
	status  Status
	log     *slog.Logger
}

// New returns a recorder reading reaction-time zero points from clock.
func New(clock Clock, opts ...Option) (*Recorder, error) {
	o := options{
		capacity: DefaultCapacity,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	ring, err := NewRing(o.capacity)
	if err != nil {
		return nil, err
	}
	status := Started
	if o.waitForStart {
		status = NotStarted
	}
	return &Recorder{
		ring:    ring,
		pending: newPendingIndex(),
		clock:   clock,
		status:  status,
		log:     o.logger,
	}, nil
}

// Start begins accepting transitions.
func (r *Recorder) Start() {
	r.status = Started
}

// Stop drops transitions until the next Start. Retained records are kept.
func (r *Recorder) Stop() {
	r.status = Stopped
}

// Status returns the current recorder status.
func (r *Recorder) Status() Status {
	return r.status
}

// Capacity returns the number of transitions the recorder retains.
func (r *Recorder) Capacity() int {
	return r.ring.Cap()
}

// Reset discards every retained transition and pending key-down.
func (r *Recorder) Reset() {
	r.ring.Reset()
	r.pending.reset()
}

// KeyDown records a key-down. Auto-repeat must be filtered by the caller.
func (r *Recorder) KeyDown(rawCode, displayKey, canonicalKey string, ts time.Duration) {
	if r.status != Started {
		r.log.Debug("dropped key-down", "raw", rawCode, "status", r.status)
		return
	}
	ref := r.push(Transition{
		RawCode:      rawCode,
		DisplayKey:   displayKey,
		CanonicalKey: canonicalKey,
		Kind:         Down,
		Timestamp:    ts,
	})
	r.pending.recordDown(rawCode, ref)
}

// KeyUp records a key-up and pairs it with the pending key-down, if any.
func (r *Recorder) KeyUp(rawCode, displayKey, canonicalKey string, ts time.Duration) {
	if r.status != Started {
		r.log.Debug("dropped key-up", "raw", rawCode, "status", r.status)
		return
	}
	ref := r.push(Transition{
		RawCode:      rawCode,
		DisplayKey:   displayKey,
		CanonicalKey: canonicalKey,
		Kind:         Up,
		Timestamp:    ts,
	})
	down, ok := r.pending.resolveUp(rawCode)
	if !ok {
		r.log.Debug("unpaired key-up", "raw", rawCode)
		return
	}
	r.ring.setPairedDown(ref.Slot, down)
}

func (r *Recorder) push(t Transition) SlotRef {
	ref, old, evicted := r.ring.Push(t)
	if evicted && old.Kind == Down {
		r.pending.forget(old.RawCode, SlotRef{Slot: ref.Slot, Seq: old.Seq})
	}
	return ref
}

// RetainedEvents returns every live transition, oldest first.
func (r *Recorder) RetainedEvents() []Transition {
	out := make([]Transition, 0, r.ring.Len())
	for _, t := range r.ring.All() {
		out = append(out, t)
	}
	return out
}

// Presses reconstructs presses from the retained transitions. Released
// presses come first in release order, followed by held keys in the order
// they went down.
//
// A retiring query without a key filter clears all history except keys that
// are still held and were not requested.
func (r *Recorder) Presses(q Query) []Press {
	if r.ring.Len() == 0 {
		return nil
	}
	match := keyMatcher(q.Keys)
	zero := r.clock.LastReset()

	var out []Press
	var retired []int
	for idx, up := range r.ring.All() {
		if up.Kind != Up || !match(up.CanonicalKey) {
			continue
		}
		ref, ok := up.PairedDown()
		if !ok {
			continue
		}
		down, ok := r.ring.At(ref)
		if !ok || down.Kind != Down {
			continue
		}
		out = append(out, Press{
			CanonicalKey: up.CanonicalKey,
			RawCode:      up.RawCode,
			DisplayKey:   down.DisplayKey,
			Down:         down.Timestamp,
			Duration:     up.Timestamp - down.Timestamp,
			Released:     true,
			RT:           down.Timestamp - zero,
		})
		if q.Retire {
			retired = append(retired, idx, ref.Slot)
		}
	}

	if q.IncludeUnreleased {
		for _, e := range r.pending.entries() {
			down, ok := r.ring.At(e.ref)
			if !ok || !match(down.CanonicalKey) {
				continue
			}
			out = append(out, Press{
				CanonicalKey: down.CanonicalKey,
				RawCode:      down.RawCode,
				DisplayKey:   down.DisplayKey,
				Down:         down.Timestamp,
				RT:           down.Timestamp - zero,
			})
			if q.Retire {
				r.pending.forget(e.rawCode, e.ref)
				retired = append(retired, e.ref.Slot)
			}
		}
	}

	if !q.Retire {
		return out
	}
	if len(q.Keys) == 0 {
		r.clearHistory()
		return out
	}
	for _, idx := range retired {
		r.ring.Tombstone(idx)
	}
	return out
}

// clearHistory resets the recorder, or, while keys are still held, clears
// every slot except their key-downs.
func (r *Recorder) clearHistory() {
	if r.pending.len() == 0 {
		r.Reset()
		return
	}
	held := make(map[int]struct{}, r.pending.len())
	for _, e := range r.pending.entries() {
		held[e.ref.Slot] = struct{}{}
	}
	for idx := range r.ring.All() {
		if _, ok := held[idx]; ok {
			continue
		}
		r.ring.Tombstone(idx)
	}
}

func keyMatcher(keys []string) func(string) bool {
	if len(keys) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return func(key string) bool {
		_, ok := set[key]
		return ok
	}
}
