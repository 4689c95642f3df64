package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/keyrec/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "keyrec.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleSession(start time.Time) model.SessionStats {
	return model.SessionStats{
		StartedAt:  start,
		EndedAt:    start.Add(time.Minute),
		KeySet:     "f,j",
		Trials:     3,
		Correct:    2,
		Incorrect:  1,
		RTSumUs:    600000,
		RTCount:    2,
		DurationMs: 60000,
	}
}

func samplePresses() []model.PressRecord {
	return []model.PressRecord{
		{Trial: 0, Seq: 0, Target: "f", Key: "f", RawCode: "f", RT: 250 * time.Millisecond, Duration: 80 * time.Millisecond, Released: true, Correct: true, First: true},
		{Trial: 1, Seq: 0, Target: "j", Key: "f", RawCode: "f", RT: 200 * time.Millisecond, Correct: false, First: true},
		{Trial: 1, Seq: 1, Target: "j", Key: "j", RawCode: "j", RT: 400 * time.Millisecond, Duration: 50 * time.Millisecond, Released: true, Correct: true},
		{Trial: 2, Seq: 0, Target: "j", Key: "j", RawCode: "j", RT: 350 * time.Millisecond, Duration: 90 * time.Millisecond, Released: true, Correct: true, First: true},
	}
}

func TestInsertAndListPresses(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id, err := st.InsertSession(ctx, sampleSession(time.Unix(0, 0)), samplePresses())
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	got, err := st.ListPresses(ctx, id)
	if err != nil {
		t.Fatalf("list presses: %v", err)
	}
	if diff := cmp.Diff(samplePresses(), got); diff != "" {
		t.Fatalf("presses mismatch (-want +got):\n%s", diff)
	}
}

func TestListSessionsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := sampleSession(base.Add(time.Duration(i) * 24 * time.Hour))
		if i == 2 {
			s.KeySet = "left,right"
		}
		if _, err := st.InsertSession(ctx, s, nil); err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}

	all, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(all) != 3 || !all[0].EndedAt.Before(all[2].EndedAt) {
		t.Fatalf("expected 3 sessions oldest first, got %+v", all)
	}

	since := base.Add(36 * time.Hour)
	filtered, err := st.ListSessions(ctx, model.StatsConfig{KeySet: "f,j", Since: &since})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(filtered) != 0 {
		t.Fatalf("expected no f,j sessions after %v, got %+v", since, filtered)
	}
	filtered, err = st.ListSessions(ctx, model.StatsConfig{KeySet: "f,j"})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 f,j sessions, got %d", len(filtered))
	}
}

func TestKeyAggregates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id, err := st.InsertSession(ctx, sampleSession(time.Unix(0, 0)), samplePresses())
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}

	aggs, err := st.ListKeyAggregatesForSessions(ctx, []int64{id})
	if err != nil {
		t.Fatalf("list key aggregates: %v", err)
	}
	byKey := map[string]model.KeyAggregate{}
	for _, a := range aggs {
		byKey[a.Key] = a
	}
	want := map[string]model.KeyAggregate{
		"f": {Key: "f", Correct: 1, Incorrect: 0, RTSumUs: 250000, RTCount: 1},
		"j": {Key: "j", Correct: 1, Incorrect: 1, RTSumUs: 350000, RTCount: 1},
	}
	if diff := cmp.Diff(want, byKey); diff != "" {
		t.Fatalf("aggregates mismatch (-want +got):\n%s", diff)
	}

	slow, err := st.GetSlowKeys(ctx, 5)
	if err != nil {
		t.Fatalf("get slow keys: %v", err)
	}
	if len(slow) != 2 {
		t.Fatalf("expected 2 slow-key aggregates, got %d", len(slow))
	}

	perSession, err := st.ListKeyStatsForSessions(ctx, []int64{id}, []string{"j"})
	if err != nil {
		t.Fatalf("list key stats: %v", err)
	}
	if got := perSession[id]["j"]; got.Correct != 1 || got.Incorrect != 1 {
		t.Fatalf("unexpected per-session stats: %+v", perSession)
	}
	if _, ok := perSession[id]["f"]; ok {
		t.Fatalf("expected f to be filtered out")
	}
}

func TestEmptyInputs(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if aggs, err := st.ListKeyAggregatesForSessions(ctx, nil); err != nil || aggs != nil {
		t.Fatalf("expected nil aggregates, got %v (%v)", aggs, err)
	}
	if aggs, err := st.GetSlowKeys(ctx, 0); err != nil || aggs != nil {
		t.Fatalf("expected nil slow keys, got %v (%v)", aggs, err)
	}
	m, err := st.ListKeyStatsForSessions(ctx, []int64{1}, nil)
	if err != nil || len(m) != 0 {
		t.Fatalf("expected empty map, got %v (%v)", m, err)
	}
}
