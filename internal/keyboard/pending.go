package keyboard

import (
	"cmp"
	"slices"
)

type pendingEntry struct {
	rawCode string
	ref     SlotRef
}

// pendingIndex maps a raw code to its unmatched key-down. It never owns the
// record; it only points into the ring.
type pendingIndex struct {
	downs map[string]SlotRef
}

func newPendingIndex() *pendingIndex {
	return &pendingIndex{downs: map[string]SlotRef{}}
}

// recordDown replaces any earlier entry for rawCode; the earlier key-down
// is left unmatched.
func (p *pendingIndex) recordDown(rawCode string, ref SlotRef) {
	p.downs[rawCode] = ref
}

func (p *pendingIndex) resolveUp(rawCode string) (SlotRef, bool) {
	ref, ok := p.downs[rawCode]
	if ok {
		delete(p.downs, rawCode)
	}
	return ref, ok
}

// forget drops the entry for rawCode only while it still points at ref.
func (p *pendingIndex) forget(rawCode string, ref SlotRef) {
	if cur, ok := p.downs[rawCode]; ok && cur == ref {
		delete(p.downs, rawCode)
	}
}

// entries returns unmatched key-downs in the order they were recorded.
func (p *pendingIndex) entries() []pendingEntry {
	out := make([]pendingEntry, 0, len(p.downs))
	for code, ref := range p.downs {
		out = append(out, pendingEntry{rawCode: code, ref: ref})
	}
	slices.SortFunc(out, func(a, b pendingEntry) int {
		return cmp.Compare(a.ref.Seq, b.ref.Seq)
	})
	return out
}

func (p *pendingIndex) len() int {
	return len(p.downs)
}

func (p *pendingIndex) reset() {
	clear(p.downs)
}
