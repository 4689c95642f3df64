package generator

import (
	"testing"
	"time"
)

func TestGenerateBounds(t *testing.T) {
	g := NewSeeded(1)
	keys := []string{"f", "j"}
	trials := g.Generate(keys, 50, 500*time.Millisecond, 1500*time.Millisecond)
	if len(trials) != 50 {
		t.Fatalf("expected 50 trials, got %d", len(trials))
	}
	for _, tr := range trials {
		if tr.Target != "f" && tr.Target != "j" {
			t.Fatalf("unexpected target %q", tr.Target)
		}
		if tr.ForePeriod < 500*time.Millisecond || tr.ForePeriod > 1500*time.Millisecond {
			t.Fatalf("fore-period out of range: %v", tr.ForePeriod)
		}
	}
}

func TestGenerateFixedForePeriod(t *testing.T) {
	g := NewSeeded(2)
	trials := g.Generate([]string{"a"}, 3, time.Second, time.Second)
	for _, tr := range trials {
		if tr.ForePeriod != time.Second {
			t.Fatalf("expected fixed fore-period, got %v", tr.ForePeriod)
		}
	}
}

func TestGenerateWeightedFavorsSlowKeys(t *testing.T) {
	g := NewSeeded(3)
	keys := []string{"a", "b"}
	slow := map[string]struct{}{"b": {}}
	trials := g.GenerateWeighted(keys, 2000, 0, 0, slow, 9)
	counts := map[string]int{}
	for _, tr := range trials {
		counts[tr.Target]++
	}
	if counts["b"] <= counts["a"]*3 {
		t.Fatalf("expected b to dominate, got %v", counts)
	}
}
