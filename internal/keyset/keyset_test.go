package keyset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	got := Parse(" F, j ,, f,space ")
	want := []string{"f", "j", "space"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLoadSkipsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home.txt")
	data := "# home row\na\ns\n\nd\nA\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write key set: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(got, ",") != "a,s,d" {
		t.Fatalf("unexpected keys: %v", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing\n"), 0o644); err != nil {
		t.Fatalf("write key set: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty key set")
	}
}

func TestResolveNamedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "arrows.txt"), []byte("left\nright\n"), 0o644); err != nil {
		t.Fatalf("write key set: %v", err)
	}
	got, err := Resolve("arrows", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.Join(got, ",") != "left,right" {
		t.Fatalf("unexpected keys: %v", got)
	}
	got, err = Resolve("", dir)
	if err != nil || strings.Join(got, ",") != Default {
		t.Fatalf("expected default key set, got %v (%v)", got, err)
	}
}

func TestSplit(t *testing.T) {
	known := func(k string) bool { return k != "bogus" }
	valid, unknown := Split([]string{"a", "bogus", "b"}, known)
	if len(valid) != 2 || len(unknown) != 1 || unknown[0] != "bogus" {
		t.Fatalf("unexpected split: %v %v", valid, unknown)
	}
}
