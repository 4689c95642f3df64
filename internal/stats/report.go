// Package stats contains reaction-time calculations and reporting.
package stats

import (
	"context"

	"github.com/verte-zerg/keyrec/internal/model"
	"github.com/verte-zerg/keyrec/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []int64
	KeyAggsAll       []model.KeyAggregate
	KeyAggsWindow    []model.KeyAggregate
	// KeyCurves holds per-session aggregates for the selected keys.
	KeyCurves map[int64]map[string]model.KeyAggregate
	CurveKeys []string
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig, curveKeys []string) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	keyAggsAll, err := st.ListKeyAggregatesForSessions(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	keyAggsWindow, err := st.ListKeyAggregatesForSessions(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}
	if len(curveKeys) == 0 {
		curveKeys = TopKeysByFrequency(keyAggsAll, 3)
	}
	keyCurves, err := st.ListKeyStatsForSessions(ctx, allIDs, curveKeys)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		KeyAggsAll:       keyAggsAll,
		KeyAggsWindow:    keyAggsWindow,
		KeyCurves:        keyCurves,
		CurveKeys:        curveKeys,
	}, nil
}

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
