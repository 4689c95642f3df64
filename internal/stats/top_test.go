package stats

import (
	"testing"

	"github.com/verte-zerg/keyrec/internal/model"
)

func TestTopKeysByFrequency(t *testing.T) {
	aggs := []model.KeyAggregate{
		{Key: "b", Correct: 3, Incorrect: 1},
		{Key: "a", Correct: 2, Incorrect: 2},
		{Key: "c", Correct: 1, Incorrect: 0},
	}
	top := TopKeysByFrequency(aggs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(top))
	}
	if top[0] != "a" || top[1] != "b" {
		t.Fatalf("unexpected order: %v", top)
	}
}
