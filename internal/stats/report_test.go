package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/keyrec/internal/model"
	"github.com/verte-zerg/keyrec/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "keyrec.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		session := model.SessionStats{
			StartedAt:  start,
			EndedAt:    end,
			KeySet:     "f,j",
			Trials:     2,
			Correct:    1,
			Incorrect:  1,
			RTSumUs:    300000,
			RTCount:    1,
			DurationMs: end.Sub(start).Milliseconds(),
		}
		presses := []model.PressRecord{
			{Trial: 0, Target: "f", Key: "f", RawCode: "f", RT: 300 * time.Millisecond, Correct: true, First: true},
			{Trial: 1, Target: "j", Key: "f", RawCode: "f", RT: 200 * time.Millisecond, First: true},
			{Trial: 1, Seq: 1, Target: "j", Key: "j", RawCode: "j", RT: 500 * time.Millisecond, Correct: true},
		}
		id, err := st.InsertSession(ctx, session, presses)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{
		KeySet:      "f,j",
		Last:        2,
		CurveWindow: 1,
	}
	report, err := BuildReport(ctx, st, cfg, nil)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 1 || report.WindowSessionIDs[0] != ids[2] {
		t.Fatalf("unexpected window session ids: %v", report.WindowSessionIDs)
	}
	if len(report.KeyAggsAll) != 2 || len(report.KeyAggsWindow) != 2 {
		t.Fatalf("expected key aggregates for f and j, got %+v / %+v", report.KeyAggsAll, report.KeyAggsWindow)
	}
	if len(report.CurveKeys) != 2 {
		t.Fatalf("expected default curve keys, got %v", report.CurveKeys)
	}
	if _, ok := report.KeyCurves[ids[2]]["j"]; !ok {
		t.Fatalf("expected per-session curve data for j, got %+v", report.KeyCurves)
	}
}
