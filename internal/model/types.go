// Package model defines shared data structures.
package model

import "time"

// Config defines reaction-task settings.
type Config struct {
	Keys         []string
	Trials       int
	ForeMin      time.Duration
	ForeMax      time.Duration
	Capacity     int
	ReleaseAfter time.Duration
	FocusSlow    bool
	SlowTop      int
	SlowFactor   float64
	SlowWindow   int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	KeySet      string
	Since       *time.Time
	Last        int
	CurveWindow int
	Keys        string
}

// SessionStats captures a completed task session.
type SessionStats struct {
	StartedAt  time.Time
	EndedAt    time.Time
	KeySet     string
	Trials     int
	Correct    int
	Incorrect  int
	RTSumUs    int64
	RTCount    int64
	DurationMs int64
}

// PressRecord is one key press captured during a trial.
type PressRecord struct {
	Trial    int
	Seq      int
	Target   string
	Key      string
	RawCode  string
	RT       time.Duration
	Duration time.Duration
	Released bool
	Correct  bool
	// First marks the press that ended the trial.
	First bool
}

// KeyAggregate aggregates first-press results for one target key.
type KeyAggregate struct {
	Key       string
	Correct   int
	Incorrect int
	RTSumUs   int64
	RTCount   int64
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID  int64
	EndedAt    time.Time
	Correct    int
	Incorrect  int
	RTSumUs    int64
	RTCount    int64
	DurationMs int64
}
