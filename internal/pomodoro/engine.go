// Package pomodoro implements the study timer: a work/break/long-break
// state machine that owns its settings, its persisted state and the
// one-second cadence that drives it.
package pomodoro

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/studycompanion/internal/clock"
	"github.com/sadopc/studycompanion/internal/store"
)

// Persister loads and saves the timer documents.
type Persister interface {
	LoadTimerSettings() store.TimerSettings
	SaveTimerSettings(store.TimerSettings)
	LoadTimerState(settings store.TimerSettings) store.TimerState
	SaveTimerState(store.TimerState)
}

// MinutesReporter receives studied minutes for a subject.
type MinutesReporter interface {
	ReportMinutes(subjectID string, minutes float64)
}

// SessionRecorder receives completed work periods.
type SessionRecorder interface {
	AppendSession(store.SessionLog)
}

// Notifier is told when a phase runs out. It must not block.
type Notifier interface {
	NotifyPhaseEnd(mode store.Mode)
}

// Config wires an Engine to its collaborators. Nil collaborators are
// replaced with no-ops; a nil Store means nothing is persisted.
type Config struct {
	Store    Persister
	Reporter MinutesReporter
	Sessions SessionRecorder
	Notifier Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
	NewID    func() string
}

// SettingsPatch is a partial settings update. Nil fields are kept.
type SettingsPatch struct {
	WorkMinutes             *int
	BreakMinutes            *int
	LongBreakMinutes        *int
	SessionsBeforeLongBreak *int
}

func (p SettingsPatch) apply(ts store.TimerSettings) store.TimerSettings {
	if p.WorkMinutes != nil {
		ts.WorkMinutes = *p.WorkMinutes
	}
	if p.BreakMinutes != nil {
		ts.BreakMinutes = *p.BreakMinutes
	}
	if p.LongBreakMinutes != nil {
		ts.LongBreakMinutes = *p.LongBreakMinutes
	}
	if p.SessionsBeforeLongBreak != nil {
		ts.SessionsBeforeLongBreak = *p.SessionsBeforeLongBreak
	}
	return ts
}

// Engine is the timer state machine. All mutations are serialized by a
// single mutex, so at most one tick or transition is in flight.
type Engine struct {
	mu sync.Mutex

	persist  Persister
	reporter MinutesReporter
	sessions SessionRecorder
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	newID    func() string

	settings store.TimerSettings
	state    store.TimerState

	// gen identifies the live cadence. A tick carrying an older
	// generation belongs to a cancelled cadence and is dropped.
	gen    uint64
	ticker *clock.Ticker
	stopCh chan struct{}

	subscribers []chan Event
	closed      bool
}

// New restores settings and state from cfg.Store and returns a paused
// engine. Call Start to resume a timer that was running at shutdown.
func New(cfg Config) *Engine {
	e := &Engine{
		persist:  cfg.Store,
		reporter: cfg.Reporter,
		sessions: cfg.Sessions,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		newID:    cfg.NewID,
	}
	if e.persist == nil {
		e.persist = nopPersister{}
	}
	if e.reporter == nil {
		e.reporter = nopReporter{}
	}
	if e.sessions == nil {
		e.sessions = nopRecorder{}
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}

	e.settings = e.persist.LoadTimerSettings()
	e.state = e.persist.LoadTimerState(e.settings)
	return e
}

// Start resumes the cadence when the restored state was running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsPaused {
		e.startCadenceLocked()
	}
}

// Close stops the cadence and closes every subscriber channel. The
// persisted state is left as is, so a running timer resumes on the
// next Start.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.stopCadenceLocked()
	e.closed = true
	for _, ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = nil
}

// Subscribe registers an observer. Events are dropped for subscribers
// whose buffer is full.
func (e *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch
	}
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Snapshot returns a copy of the current settings and state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Toggle pauses a running timer or resumes a paused one. Starting
// replaces any previous cadence.
func (e *Engine) Toggle() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.IsPaused = !e.state.IsPaused
	if e.state.IsPaused {
		e.stopCadenceLocked()
	} else {
		e.startCadenceLocked()
	}
	e.saveStateLocked()
	e.emitLocked(EventChange, "")
}

// SelectSubject sets the subject credited by work accounting. An empty
// id clears the selection.
func (e *Engine) SelectSubject(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == "" {
		e.state.CurrentSubjectID = nil
	} else {
		e.state.CurrentSubjectID = &id
	}
	e.saveStateLocked()
	e.emitLocked(EventChange, "")
}

// UpdateSettings merges patch into the settings, restarts the current
// phase at its new length and pauses. Logged sessions are untouched.
func (e *Engine) UpdateSettings(patch SettingsPatch) store.TimerSettings {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.settings = patch.apply(e.settings)
	e.persist.SaveTimerSettings(e.settings)
	e.resetLocked(e.state.Mode)
	e.logger.Info("timer settings updated",
		"work", e.settings.WorkMinutes,
		"break", e.settings.BreakMinutes,
		"long_break", e.settings.LongBreakMinutes,
		"sessions", e.settings.SessionsBeforeLongBreak,
	)
	e.emitLocked(EventChange, "")
	return e.settings
}

// ResetPhase switches to mode with a full, paused countdown without
// logging anything.
func (e *Engine) ResetPhase(mode store.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !mode.Valid() {
		mode = store.ModeWork
	}
	e.resetLocked(mode)
	e.emitLocked(EventChange, "")
}

// Reload drops the in-memory settings and state and restores them from
// the store, stopping the cadence. Used after the store has been reset.
func (e *Engine) Reload() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopCadenceLocked()
	e.settings = e.persist.LoadTimerSettings()
	e.state = e.persist.LoadTimerState(e.settings)
	e.emitLocked(EventChange, "")
}

// Tick advances a running timer by one second. It is a no-op while
// paused. Reaching zero ends the phase.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked()
}

// Skip ends the current phase early. Partial work is credited to the
// selected subject.
func (e *Engine) Skip() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipLocked()
}

func (e *Engine) skipLocked() {
	ended := e.state.Mode
	if ended == store.ModeWork && e.state.CurrentSubjectID != nil {
		elapsed := float64(e.settings.Seconds(store.ModeWork)-e.state.SecondsLeft) / 60
		if elapsed > 0 {
			e.recordLocked(*e.state.CurrentSubjectID, elapsed)
		}
	}
	e.advanceLocked()
	e.emitLocked(EventTransition, ended)
}

func (e *Engine) tickLocked() {
	if e.state.IsPaused {
		return
	}
	if e.state.SecondsLeft > 0 {
		e.state.SecondsLeft--
		e.saveStateLocked()
	}
	if e.state.SecondsLeft == 0 {
		e.expireLocked()
		return
	}
	e.emitLocked(EventTick, "")
}

// expireLocked handles a phase that ran out while running. A finished
// work phase is credited with its full configured length, then the skip
// path runs with no time left, which credits the full length again.
func (e *Engine) expireLocked() {
	ended := e.state.Mode
	e.stopCadenceLocked()
	e.notifier.NotifyPhaseEnd(ended)

	if ended == store.ModeWork && e.state.CurrentSubjectID != nil {
		e.recordLocked(*e.state.CurrentSubjectID, float64(e.settings.WorkMinutes))
	}
	e.skipLocked()
}

func (e *Engine) recordLocked(subjectID string, minutes float64) {
	e.reporter.ReportMinutes(subjectID, minutes)
	e.sessions.AppendSession(store.SessionLog{
		ID:        e.newID(),
		SubjectID: subjectID,
		Date:      e.clock.Now().UTC(),
		Duration:  minutes,
		Type:      store.ModeWork,
	})
	e.logger.Debug("work session recorded", "subject", subjectID, "minutes", minutes)
}

// advanceLocked moves to the next phase: work is followed by a break,
// or a long break every SessionsBeforeLongBreak sessions; any break is
// followed by work.
func (e *Engine) advanceLocked() {
	from := e.state.Mode
	next := store.ModeWork
	if from == store.ModeWork {
		e.state.SessionsCompleted++
		every := max(e.settings.SessionsBeforeLongBreak, 1)
		if e.state.SessionsCompleted%every == 0 {
			next = store.ModeLongBreak
		} else {
			next = store.ModeBreak
		}
	}
	e.resetLocked(next)
	e.logger.Info("timer phase changed", "from", from, "to", next, "sessions", e.state.SessionsCompleted)
}

// resetLocked starts mode from its full length, paused.
func (e *Engine) resetLocked(mode store.Mode) {
	e.stopCadenceLocked()
	e.state.Mode = mode
	e.state.SecondsLeft = e.settings.Seconds(mode)
	e.state.IsPaused = true
	e.saveStateLocked()
}

func (e *Engine) saveStateLocked() {
	e.persist.SaveTimerState(e.state)
}

func (e *Engine) startCadenceLocked() {
	e.stopCadenceLocked()
	if e.closed {
		return
	}
	ticker := e.clock.NewTicker(time.Second)
	stopCh := make(chan struct{})
	e.ticker = ticker
	e.stopCh = stopCh
	go e.run(e.gen, ticker, stopCh)
}

func (e *Engine) stopCadenceLocked() {
	e.gen++
	if e.stopCh == nil {
		return
	}
	close(e.stopCh)
	e.ticker.Stop()
	e.stopCh = nil
	e.ticker = nil
}

func (e *Engine) run(gen uint64, ticker *clock.Ticker, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.mu.Lock()
			if gen == e.gen {
				e.tickLocked()
			}
			e.mu.Unlock()
		}
	}
}

func (e *Engine) emitLocked(typ EventType, ended store.Mode) {
	ev := Event{
		Type:     typ,
		Ended:    ended,
		Snapshot: e.snapshotLocked(),
		At:       e.clock.Now(),
	}
	for _, ch := range e.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	st := e.state
	if st.CurrentSubjectID != nil {
		id := *st.CurrentSubjectID
		st.CurrentSubjectID = &id
	}
	return Snapshot{Settings: e.settings, State: st}
}

// FormatTime renders a countdown as mm:ss. Minutes are not capped at 99.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

type nopPersister struct{}

func (nopPersister) LoadTimerSettings() store.TimerSettings { return store.DefaultTimerSettings() }
func (nopPersister) SaveTimerSettings(store.TimerSettings)  {}
func (nopPersister) LoadTimerState(ts store.TimerSettings) store.TimerState {
	return store.DefaultTimerState(ts)
}
func (nopPersister) SaveTimerState(store.TimerState) {}

type nopReporter struct{}

func (nopReporter) ReportMinutes(string, float64) {}

type nopRecorder struct{}

func (nopRecorder) AppendSession(store.SessionLog) {}

type nopNotifier struct{}

func (nopNotifier) NotifyPhaseEnd(store.Mode) {}
