// Package tui provides the Bubble Tea reaction-time task.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/keyrec/internal/clock"
	"github.com/verte-zerg/keyrec/internal/generator"
	"github.com/verte-zerg/keyrec/internal/input"
	"github.com/verte-zerg/keyrec/internal/keyboard"
	"github.com/verte-zerg/keyrec/internal/keymap"
	"github.com/verte-zerg/keyrec/internal/model"
	statsPkg "github.com/verte-zerg/keyrec/internal/stats"
	"github.com/verte-zerg/keyrec/internal/store"
)

const (
	pollInterval = 40 * time.Millisecond
	// releaseWait bounds how long a trial waits for held keys after the response.
	releaseWait   = 2 * time.Second
	sparkHistory  = 20
	fixationLabel = "+"
)

type phase uint8

const (
	phaseFixation phase = iota
	phaseStimulus
	phaseResponse
)

type onsetMsg struct {
	session int
	trial   int
	at      time.Time
}

type pollMsg time.Time

// Model implements the Bubble Tea reaction-time task.
type Model struct {
	config   model.Config
	keySet   string
	store    *store.Store
	gen      *generator.Generator
	slowSet  map[string]struct{}
	logger   *slog.Logger
	now      func() time.Time
	slotSize int

	clk        *clock.Monotonic
	recorder   *keyboard.Recorder
	tracker    *input.Tracker
	translator keymap.Translator

	width  int
	height int

	trials     []generator.Trial
	current    int
	phase      phase
	sessionSeq int
	startedAt  time.Time
	respondAt  time.Time
	response   keyboard.Press
	hit        bool
	records    []model.PressRecord

	correct   int
	incorrect int
	rtSumUs   int64
	rtCount   int64
	recentRTs []float64

	lastRT  time.Duration
	lastHit bool
	hasLast bool

	allRTSumUs int64
	allRTCount int64
	allCorrect int
	allTrials  int
}

var (
	fixationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	stimulusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a reaction-task model. The store may be nil, in which
// case sessions are not persisted.
func NewModel(cfg model.Config, st *store.Store, gen *generator.Generator, slowSet map[string]struct{}, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := clock.NewMonotonic()
	recorder, err := keyboard.New(clk,
		keyboard.WithCapacity(cfg.Capacity),
		keyboard.WaitForStart(true),
		keyboard.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	slotSize := runewidth.StringWidth(fixationLabel)
	for _, key := range cfg.Keys {
		slotSize = max(slotSize, runewidth.StringWidth(key))
	}
	m := &Model{
		config:     cfg,
		keySet:     strings.Join(cfg.Keys, ","),
		store:      st,
		gen:        gen,
		slowSet:    slowSet,
		logger:     logger,
		now:        time.Now,
		slotSize:   slotSize + 4,
		clk:        clk,
		recorder:   recorder,
		tracker:    input.NewTracker(cfg.ReleaseAfter),
		translator: keymap.Terminal,
	}
	m.resetSession()
	m.loadFooterStats()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.scheduleOnset(), pollCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.finishSession()
			return m, tea.Quit
		case tea.KeyRunes:
			for _, r := range msg.Runes {
				raw := string(r)
				if msg.Alt {
					raw = "alt+" + raw
				}
				m.handleKey(raw, string(r))
			}
		default:
			m.handleKey(msg.String(), msg.String())
		}
		return m, nil
	case onsetMsg:
		m.handleOnset(msg)
		return m, nil
	case pollMsg:
		return m, tea.Batch(m.handlePoll(time.Time(msg)), pollCmd())
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderStimulus()
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) handleKey(raw, display string) {
	sig := m.tracker.Observe(raw, display, m.now())
	if sig.IsRepeat {
		return
	}
	m.recorder.KeyDown(sig.RawCode, sig.DisplayKey, m.translator.Canonical(sig.RawCode), m.clk.At(sig.At))
	if m.phase != phaseStimulus {
		return
	}
	presses := m.recorder.Presses(keyboard.Query{IncludeUnreleased: true})
	if len(presses) == 0 {
		return
	}
	m.phase = phaseResponse
	m.respondAt = sig.At
	m.response = presses[0]
	m.hit = keyboard.ContainsKey(presses, m.trials[m.current].Target)
}

func (m *Model) handleOnset(msg onsetMsg) {
	if msg.session != m.sessionSeq || msg.trial != m.current || m.phase != phaseFixation {
		return
	}
	m.clk.ResetAt(msg.at)
	m.recorder.Start()
	m.phase = phaseStimulus
	if m.startedAt.IsZero() {
		m.startedAt = msg.at
	}
}

func (m *Model) handlePoll(at time.Time) tea.Cmd {
	m.releaseHeld(m.tracker.Expire(at))
	if m.phase != phaseResponse {
		return nil
	}
	if m.tracker.Held() > 0 {
		if at.Sub(m.respondAt) < releaseWait {
			return nil
		}
		m.releaseHeld(m.tracker.ReleaseAll())
	}
	return m.finishTrial()
}

func (m *Model) releaseHeld(signals []input.Signal) {
	for _, sig := range signals {
		m.recorder.KeyUp(sig.RawCode, sig.DisplayKey, m.translator.Canonical(sig.RawCode), m.clk.At(sig.At))
	}
}

// finishTrial stops recording, drains every press of the trial and moves on.
func (m *Model) finishTrial() tea.Cmd {
	m.recorder.Stop()
	presses := m.recorder.Presses(keyboard.Query{IncludeUnreleased: true, Retire: true})
	target := m.trials[m.current].Target

	first := false
	for i, p := range presses {
		isFirst := p.RawCode == m.response.RawCode && p.Down == m.response.Down
		first = first || isFirst
		m.records = append(m.records, pressRecord(m.current, i, target, p, isFirst))
	}
	if !first {
		m.records = append(m.records, pressRecord(m.current, len(presses), target, m.response, true))
	}

	m.lastRT = m.response.RT
	m.lastHit = m.hit
	m.hasLast = true
	if m.hit {
		m.correct++
		m.rtSumUs += m.response.RT.Microseconds()
		m.rtCount++
		m.recentRTs = append(m.recentRTs, float64(m.response.RT)/float64(time.Millisecond))
		if len(m.recentRTs) > sparkHistory {
			m.recentRTs = m.recentRTs[len(m.recentRTs)-sparkHistory:]
		}
	} else {
		m.incorrect++
	}

	m.current++
	m.phase = phaseFixation
	if m.current >= len(m.trials) {
		m.finishSession()
		m.resetSession()
	}
	return m.scheduleOnset()
}

func pressRecord(trial, seq int, target string, p keyboard.Press, first bool) model.PressRecord {
	return model.PressRecord{
		Trial:    trial,
		Seq:      seq,
		Target:   target,
		Key:      p.CanonicalKey,
		RawCode:  p.RawCode,
		RT:       p.RT,
		Duration: p.Duration,
		Released: p.Released,
		Correct:  p.CanonicalKey == target,
		First:    first,
	}
}

func (m *Model) scheduleOnset() tea.Cmd {
	if m.current >= len(m.trials) {
		return nil
	}
	session, trial := m.sessionSeq, m.current
	return tea.Tick(m.trials[trial].ForePeriod, func(t time.Time) tea.Msg {
		return onsetMsg{session: session, trial: trial, at: t}
	})
}

func pollCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m *Model) resetSession() {
	m.sessionSeq++
	m.current = 0
	m.phase = phaseFixation
	m.startedAt = time.Time{}
	m.records = nil
	m.correct = 0
	m.incorrect = 0
	m.rtSumUs = 0
	m.rtCount = 0
	m.recentRTs = nil
	m.recorder.Stop()
	m.recorder.Reset()

	if m.config.FocusSlow && len(m.slowSet) > 0 {
		m.trials = m.gen.GenerateWeighted(m.config.Keys, m.config.Trials, m.config.ForeMin, m.config.ForeMax, m.slowSet, m.config.SlowFactor)
	} else {
		m.trials = m.gen.Generate(m.config.Keys, m.config.Trials, m.config.ForeMin, m.config.ForeMax)
	}
}

func (m *Model) finishSession() {
	done := m.correct + m.incorrect
	if done == 0 {
		return
	}
	endedAt := m.now()
	stats := model.SessionStats{
		StartedAt:  m.startedAt,
		EndedAt:    endedAt,
		KeySet:     m.keySet,
		Trials:     done,
		Correct:    m.correct,
		Incorrect:  m.incorrect,
		RTSumUs:    m.rtSumUs,
		RTCount:    m.rtCount,
		DurationMs: endedAt.Sub(m.startedAt).Milliseconds(),
	}
	m.allCorrect += m.correct
	m.allTrials += done
	m.allRTSumUs += m.rtSumUs
	m.allRTCount += m.rtCount
	m.correct, m.incorrect = 0, 0

	if m.store == nil {
		return
	}
	ctx := context.Background()
	id, err := m.store.InsertSession(ctx, stats, m.records)
	if err != nil {
		m.logger.Error("failed to save session", "err", err)
		return
	}
	m.logger.Info("session saved", "session", id, "trials", done, "correct", stats.Correct)

	if m.config.FocusSlow {
		m.refreshSlowSet()
	}
}

func (m *Model) refreshSlowSet() {
	aggs, err := m.store.GetSlowKeys(context.Background(), m.config.SlowWindow)
	if err != nil {
		m.logger.Error("failed to load slow keys", "err", err)
		return
	}
	if len(aggs) == 0 {
		m.logger.Info("no stats available for slow-key focus yet; using uniform targets")
		m.slowSet = map[string]struct{}{}
		return
	}
	m.slowSet = statsPkg.SelectSlowKeys(aggs, m.config.SlowTop)
}

func (m *Model) loadFooterStats() {
	if m.store == nil {
		return
	}
	sessions, err := m.store.ListSessions(context.Background(), model.StatsConfig{KeySet: m.keySet})
	if err != nil {
		m.logger.Error("failed to load session stats", "err", err)
		return
	}
	for _, s := range sessions {
		m.allCorrect += s.Correct
		m.allTrials += s.Correct + s.Incorrect
		m.allRTSumUs += s.RTSumUs
		m.allRTCount += s.RTCount
	}
}

func (m *Model) renderStimulus() string {
	switch m.phase {
	case phaseStimulus:
		return stimulusStyle.Render(padCenter(m.trials[m.current].Target, m.slotSize))
	case phaseResponse:
		style := incorrectStyle
		if m.hit {
			style = correctStyle
		}
		return style.Render(padCenter(m.trials[m.current].Target, m.slotSize))
	default:
		return fixationStyle.Render(padCenter(fixationLabel, m.slotSize))
	}
}

func (m *Model) renderFooter() string {
	if len(m.trials) == 0 {
		return ""
	}
	segments := []string{fmt.Sprintf("Trial %d/%d", min(m.current+1, len(m.trials)), len(m.trials))}
	if m.hasLast {
		mark := "✓"
		if !m.lastHit {
			mark = "✗"
		}
		segments = append(segments, fmt.Sprintf("Last %s ms %s", statsPkg.Millis(m.lastRT), mark))
	}
	if m.rtCount > 0 {
		mean := time.Duration(m.rtSumUs/m.rtCount) * time.Microsecond
		acc := float64(m.correct) / float64(m.correct+m.incorrect)
		segments = append(segments, fmt.Sprintf("Session %s ms · %.1f%%", statsPkg.Millis(mean), acc*100))
	}
	if m.allRTCount > 0 {
		mean := time.Duration(m.allRTSumUs/m.allRTCount) * time.Microsecond
		acc := float64(m.allCorrect) / float64(m.allTrials)
		segments = append(segments, fmt.Sprintf("All-time %s ms · %.1f%%", statsPkg.Millis(mean), acc*100))
	}
	if len(m.recentRTs) > 1 {
		segments = append(segments, statsPkg.Sparkline(m.recentRTs))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func padCenter(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return runewidth.FillRight(strings.Repeat(" ", left)+s, width)
}
