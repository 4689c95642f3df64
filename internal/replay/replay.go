// Package replay feeds scripted key signals through a recorder.
package replay

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/keyrec/internal/clock"
	"github.com/verte-zerg/keyrec/internal/keyboard"
	"github.com/verte-zerg/keyrec/internal/keymap"
)

// Step actions.
const (
	ActionDown       = "down"
	ActionUp         = "up"
	ActionStart      = "start"
	ActionStop       = "stop"
	ActionClockReset = "clock-reset"
)

// ErrInvalidStep is returned for a script step that cannot be replayed.
var ErrInvalidStep = errors.New("invalid step")

// Script is a recorded or hand-written sequence of key signals.
type Script struct {
	// Translator names the keymap used for raw codes (default "web").
	Translator   string `toml:"translator"`
	Capacity     int    `toml:"capacity"`
	WaitForStart bool   `toml:"wait-for-start"`
	Steps        []Step `toml:"step"`
}

// Step is a single scripted signal.
type Step struct {
	// At is seconds since the script's epoch.
	At     float64 `toml:"at"`
	Action string  `toml:"action"`
	Code   string  `toml:"code"`
	Key    string  `toml:"key"`
	Repeat bool    `toml:"repeat"`
}

// Load reads a script from a TOML file.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML script.
func Parse(data []byte) (Script, error) {
	var s Script
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return Script{}, fmt.Errorf("failed to decode script: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Script{}, fmt.Errorf("unknown script keys: %s", strings.Join(keys, ", "))
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// Validate checks actions, codes and step ordering.
func (s Script) Validate() error {
	if _, ok := keymap.ByName(s.translatorName()); !ok {
		return fmt.Errorf("unknown translator %q", s.Translator)
	}
	if s.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0")
	}
	prev := 0.0
	for i, st := range s.Steps {
		n := i + 1
		switch st.Action {
		case ActionDown, ActionUp:
			if st.Code == "" {
				return fmt.Errorf("step %d: %s without code: %w", n, st.Action, ErrInvalidStep)
			}
		case ActionStart, ActionStop, ActionClockReset:
		default:
			return fmt.Errorf("step %d: unknown action %q: %w", n, st.Action, ErrInvalidStep)
		}
		if st.At < 0 || math.IsNaN(st.At) {
			return fmt.Errorf("step %d: negative time: %w", n, ErrInvalidStep)
		}
		if st.At < prev {
			return fmt.Errorf("step %d: time %.3f before previous step %.3f: %w", n, st.At, prev, ErrInvalidStep)
		}
		prev = st.At
	}
	return nil
}

func (s Script) translatorName() string {
	if s.Translator == "" {
		return "web"
	}
	return s.Translator
}

// Run replays s into a new recorder. Options are applied after the
// script's own settings. Repeat key-downs are filtered out.
func Run(s Script, opts ...keyboard.Option) (*keyboard.Recorder, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	tr, _ := keymap.ByName(s.translatorName())
	base := []keyboard.Option{keyboard.WaitForStart(s.WaitForStart)}
	if s.Capacity > 0 {
		base = append(base, keyboard.WithCapacity(s.Capacity))
	}
	clk := &clock.Manual{}
	rec, err := keyboard.New(clk, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	for _, st := range s.Steps {
		clk.Set(seconds(st.At))
		display := st.Key
		if display == "" {
			display = st.Code
		}
		switch st.Action {
		case ActionDown:
			if st.Repeat {
				continue
			}
			rec.KeyDown(st.Code, display, tr.Canonical(st.Code), clk.Now())
		case ActionUp:
			rec.KeyUp(st.Code, display, tr.Canonical(st.Code), clk.Now())
		case ActionStart:
			rec.Start()
		case ActionStop:
			rec.Stop()
		case ActionClockReset:
			clk.Reset()
		}
	}
	return rec, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
