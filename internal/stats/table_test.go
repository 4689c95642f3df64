package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Key", "Mean RT", "Correct"}
	rows := [][]string{
		{"a", "312.5", "12"},
		{"space", "98.0", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Key   Mean RT Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a       312.5      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "space    98.0       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideGlyphs(t *testing.T) {
	lines := formatTable([]string{"Key", "N"}, [][]string{{"漢", "1"}}, nil)
	if lines[1] != "漢  1" {
		t.Fatalf("expected wide glyph to count as two columns, got %q", lines[1])
	}
}
