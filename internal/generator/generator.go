// Package generator builds randomized trial sequences for the reaction task.
package generator

import (
	"math/rand"
	"time"
)

// Trial is a single stimulus presentation.
type Trial struct {
	Target string
	// ForePeriod is the wait between the fixation mark and the stimulus.
	ForePeriod time.Duration
}

// Generator produces randomized trials.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate picks targets uniformly with fore-periods in [foreMin, foreMax].
func (g *Generator) Generate(keys []string, count int, foreMin, foreMax time.Duration) []Trial {
	trials := make([]Trial, 0, count)
	for i := 0; i < count; i++ {
		trials = append(trials, Trial{
			Target:     keys[g.rnd.Intn(len(keys))],
			ForePeriod: g.forePeriod(foreMin, foreMax),
		})
	}
	return trials
}

// GenerateWeighted picks targets with a bias toward slow keys.
func (g *Generator) GenerateWeighted(keys []string, count int, foreMin, foreMax time.Duration, slowSet map[string]struct{}, factor float64) []Trial {
	weights := make([]float64, len(keys))
	total := 0.0
	for i, key := range keys {
		w := 1.0
		if _, ok := slowSet[key]; ok {
			w += factor
		}
		weights[i] = w
		total += w
	}

	trials := make([]Trial, 0, count)
	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := len(keys) - 1
		for j, w := range weights {
			acc += w
			if r <= acc {
				idx = j
				break
			}
		}
		trials = append(trials, Trial{
			Target:     keys[idx],
			ForePeriod: g.forePeriod(foreMin, foreMax),
		})
	}
	return trials
}

func (g *Generator) forePeriod(foreMin, foreMax time.Duration) time.Duration {
	if foreMax <= foreMin {
		return foreMin
	}
	return foreMin + time.Duration(g.rnd.Int63n(int64(foreMax-foreMin)+1))
}
