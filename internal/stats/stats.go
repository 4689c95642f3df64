// Package stats contains reaction-time calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/keyrec/internal/keyboard"
	"github.com/verte-zerg/keyrec/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Metrics summarizes a session.
type Metrics struct {
	MeanRT          time.Duration
	Accuracy        float64
	TrialsPerMinute float64
}

// SessionMetrics computes mean RT of correct trials, accuracy and pace.
func SessionMetrics(s model.SessionAggregate) Metrics {
	var m Metrics
	if s.RTCount > 0 {
		m.MeanRT = time.Duration(s.RTSumUs/s.RTCount) * time.Microsecond
	}
	if total := s.Correct + s.Incorrect; total > 0 {
		m.Accuracy = float64(s.Correct) / float64(total)
		if s.DurationMs > 0 {
			m.TrialsPerMinute = float64(total) / (float64(s.DurationMs) / 60000.0)
		}
	}
	return m
}

// MeanRT returns the mean correct-trial RT of a key aggregate.
func MeanRT(agg model.KeyAggregate) time.Duration {
	if agg.RTCount == 0 {
		return 0
	}
	return time.Duration(agg.RTSumUs/agg.RTCount) * time.Microsecond
}

// Median returns the median of the durations, or 0 for none.
func Median(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := slices.Min(values), slices.Max(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Millis formats a duration as milliseconds with one decimal.
func Millis(d time.Duration) string {
	return fmt.Sprintf("%.1f", float64(d)/float64(time.Millisecond))
}

// RenderSummary prints a summary for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var total model.SessionAggregate
	var best time.Duration
	for _, s := range sessions {
		total.Correct += s.Correct
		total.Incorrect += s.Incorrect
		total.RTSumUs += s.RTSumUs
		total.RTCount += s.RTCount
		total.DurationMs += s.DurationMs
		if rt := SessionMetrics(s).MeanRT; rt > 0 && (best == 0 || rt < best) {
			best = rt
		}
	}
	m := SessionMetrics(total)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Trials: %d", total.Correct+total.Incorrect),
		fmt.Sprintf("Mean RT: %s ms", Millis(m.MeanRT)),
		fmt.Sprintf("Best session RT: %s ms", Millis(best)),
		fmt.Sprintf("Accuracy: %.2f%%", m.Accuracy*100),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderKeyTable prints per-key aggregates, slowest first.
func RenderKeyTable(w io.Writer, aggs []model.KeyAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No key stats found.")
		return err
	}
	sorted := slices.Clone(aggs)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := MeanRT(sorted[i]), MeanRT(sorted[j])
		if ri == rj {
			return sorted[i].Key < sorted[j].Key
		}
		return ri > rj
	})

	if _, err := fmt.Fprintln(w, "Per-Key"); err != nil {
		return err
	}
	headers := []string{"Key", "Mean RT (ms)", "Accuracy", "Correct", "Incorrect"}
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		rows = append(rows, []string{
			agg.Key,
			Millis(MeanRT(agg)),
			fmt.Sprintf("%.2f%%", keyAccuracy(agg)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

// RenderPresses prints reconstructed presses in the order given.
func RenderPresses(w io.Writer, presses []keyboard.Press) error {
	if len(presses) == 0 {
		_, err := fmt.Fprintln(w, "No presses.")
		return err
	}
	headers := []string{"Key", "Raw", "Label", "Down (ms)", "Duration (ms)", "RT (ms)"}
	rows := make([][]string, 0, len(presses))
	for _, p := range presses {
		duration := "held"
		if p.Released {
			duration = Millis(p.Duration)
		}
		rows = append(rows, []string{
			p.CanonicalKey,
			p.RawCode,
			p.DisplayKey,
			Millis(p.Down),
			duration,
			Millis(p.RT),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{3: true, 4: true, 5: true})
}

// RenderTransitions prints raw retained transitions oldest first.
func RenderTransitions(w io.Writer, events []keyboard.Transition) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No retained events.")
		return err
	}
	headers := []string{"Seq", "Kind", "Key", "Raw", "At (ms)", "Paired"}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		paired := "-"
		if ref, ok := ev.PairedDown(); ok {
			paired = fmt.Sprintf("#%d", ref.Seq)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", ev.Seq),
			ev.Kind.String(),
			ev.CanonicalKey,
			ev.RawCode,
			Millis(ev.Timestamp),
			paired,
		})
	}
	return writeTable(w, headers, rows, map[int]bool{0: true, 4: true})
}

// RenderCurves prints moving-average curves of session RT and accuracy.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	rts := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		m := SessionMetrics(s)
		rts[i] = float64(m.MeanRT) / float64(time.Millisecond)
		accs[i] = m.Accuracy * 100
	}
	return PlotSeries(w, "Learning Curves", []Series{
		{Name: "RT", Values: MovingAverage(rts, window)},
		{Name: "Accuracy", Values: MovingAverage(accs, window)},
	}, PlotOptions{Width: plotWidthOrAuto(totalWidth), Height: height, ForceColor: useColor})
}

// RenderKeyCurves prints per-key RT curves across sessions.
func RenderKeyCurves(w io.Writer, sessions []model.SessionAggregate, perSession map[int64]map[string]model.KeyAggregate, keys []string, window, totalWidth, height int, useColor bool) error {
	if len(keys) == 0 || len(sessions) == 0 {
		return nil
	}
	series := make([]Series, 0, len(keys))
	for _, key := range keys {
		values := make([]float64, len(sessions))
		for i, s := range sessions {
			if agg, ok := perSession[s.SessionID][key]; ok {
				values[i] = float64(MeanRT(agg)) / float64(time.Millisecond)
			}
		}
		series = append(series, Series{Name: key, Values: MovingAverage(values, window)})
	}
	return PlotSeries(w, "Per-Key RT", series, PlotOptions{Width: plotWidthOrAuto(totalWidth), Height: height, ForceColor: useColor})
}

func plotWidthOrAuto(totalWidth int) int {
	if totalWidth <= 0 {
		return 0
	}
	return PlotWidthFor(totalWidth)
}

func keyAccuracy(agg model.KeyAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}
