package replay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/keyrec/internal/keyboard"
)

const sampleScript = `
wait-for-start = true

[[step]]
at = 0.1
action = "down"
code = "KeyQ"

[[step]]
at = 0.5
action = "start"

[[step]]
at = 0.5
action = "clock-reset"

[[step]]
at = 0.8
action = "down"
code = "KeyA"
key = "A"

[[step]]
at = 0.9
action = "down"
code = "KeyA"
repeat = true

[[step]]
at = 0.95
action = "up"
code = "KeyA"

[[step]]
at = 1.2
action = "down"
code = "Space"
`

func TestRunReconstructsPresses(t *testing.T) {
	s, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec, err := Run(s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := rec.Presses(keyboard.Query{IncludeUnreleased: true})
	want := []keyboard.Press{
		{
			CanonicalKey: "a",
			RawCode:      "KeyA",
			DisplayKey:   "A",
			Down:         800 * time.Millisecond,
			Duration:     150 * time.Millisecond,
			Released:     true,
			RT:           300 * time.Millisecond,
		},
		{
			CanonicalKey: "space",
			RawCode:      "Space",
			DisplayKey:   "Space",
			Down:         1200 * time.Millisecond,
			RT:           700 * time.Millisecond,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("presses mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCapacityOverride(t *testing.T) {
	s, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec, err := Run(s, keyboard.WithCapacity(2))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Capacity() != 2 {
		t.Fatalf("expected capacity 2, got %d", rec.Capacity())
	}
	if n := len(rec.RetainedEvents()); n != 2 {
		t.Fatalf("expected 2 retained events, got %d", n)
	}
}

func TestParseRejectsInvalidSteps(t *testing.T) {
	cases := map[string]string{
		"unknown action": "[[step]]\nat = 0\naction = \"jump\"\n",
		"missing code":   "[[step]]\nat = 0\naction = \"down\"\n",
		"negative time":  "[[step]]\nat = -1\naction = \"start\"\n",
		"out of order":   "[[step]]\nat = 2\naction = \"start\"\n[[step]]\nat = 1\naction = \"stop\"\n",
	}
	for name, script := range cases {
		if _, err := Parse([]byte(script)); !errors.Is(err, ErrInvalidStep) {
			t.Fatalf("%s: expected ErrInvalidStep, got %v", name, err)
		}
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("speed = 3\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, err := Parse([]byte("translator = \"braille\"\n")); err == nil {
		t.Fatalf("expected unknown translator error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.toml")
	if err := os.WriteFile(path, []byte(sampleScript), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.Steps) != 7 || !s.WaitForStart {
		t.Fatalf("unexpected script: %+v", s)
	}
}
