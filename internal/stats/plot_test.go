package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeriesDrawsRisingLine(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Trend", []Series{{Name: "RT", Values: values}}, PlotOptions{Width: 20, Height: 4}); err != nil {
		t.Fatalf("plot: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// title, range line, four rows, legend
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Trend" {
		t.Fatalf("unexpected title: %q", lines[0])
	}
	if lines[1] != "RT: min=0.00 max=19.00" {
		t.Fatalf("unexpected range line: %q", lines[1])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected no color codes when writing to a buffer")
	}

	top := plotCells(t, lines[2])
	bottom := plotCells(t, lines[5])
	if len(top) != 20 || len(bottom) != 20 {
		t.Fatalf("expected 20 cells per row, got %d and %d", len(top), len(bottom))
	}
	if top[19] == '\u2800' {
		t.Fatalf("expected the last value to reach the top row")
	}
	if bottom[0] == '\u2800' {
		t.Fatalf("expected the first value to sit on the bottom row")
	}
	if !strings.HasPrefix(lines[6], "Legend: ") {
		t.Fatalf("unexpected legend: %q", lines[6])
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "RT"}}, PlotOptions{Width: 20}); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width for unknown terminal, got %d", got)
	}
	if got := PlotWidthFor(5); got != minPlotWidth {
		t.Fatalf("expected min width for narrow terminal, got %d", got)
	}
	if got := PlotWidthFor(80); got <= minPlotWidth || got >= 80 {
		t.Fatalf("expected width to leave room for the axis, got %d", got)
	}
}

func TestResample(t *testing.T) {
	down := resample([]float64{1, 3, 5, 7}, 2)
	if down[0] != 2 || down[1] != 6 {
		t.Fatalf("unexpected binned values: %v", down)
	}
	up := resample([]float64{0, 10}, 3)
	if up[0] != 0 || up[1] != 5 || up[2] != 10 {
		t.Fatalf("unexpected interpolated values: %v", up)
	}
	flat := resample([]float64{4}, 3)
	if flat[0] != 4 || flat[2] != 4 {
		t.Fatalf("unexpected single-value resample: %v", flat)
	}
}

func plotCells(t *testing.T, line string) []rune {
	t.Helper()
	_, cells, ok := strings.Cut(line, axisSeparator)
	if !ok {
		t.Fatalf("missing axis separator in %q", line)
	}
	return []rune(cells)
}
