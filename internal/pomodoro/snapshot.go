package pomodoro

import (
	"time"

	"github.com/sadopc/studycompanion/internal/store"
)

type EventType int

const (
	// EventTick is a one-second countdown step.
	EventTick EventType = iota
	// EventTransition is a phase change, by expiry or skip.
	EventTransition
	// EventChange is any other state or settings mutation.
	EventChange
)

func (t EventType) String() string {
	switch t {
	case EventTick:
		return "tick"
	case EventTransition:
		return "transition"
	case EventChange:
		return "change"
	}
	return "unknown"
}

// Event reports an engine mutation. Ended is set for transitions.
type Event struct {
	Type     EventType
	Ended    store.Mode
	Snapshot Snapshot
	At       time.Time
}

// Snapshot is a read-only copy of the engine.
type Snapshot struct {
	Settings store.TimerSettings
	State    store.TimerState
}

// Formatted returns the remaining time as mm:ss.
func (s Snapshot) Formatted() string {
	return FormatTime(s.State.SecondsLeft)
}

// SubjectID returns the selected subject, or "" when none is selected.
func (s Snapshot) SubjectID() string {
	if s.State.CurrentSubjectID == nil {
		return ""
	}
	return *s.State.CurrentSubjectID
}

// Running reports whether the countdown is live.
func (s Snapshot) Running() bool {
	return !s.State.IsPaused
}

// Progress is the elapsed fraction of the current phase in [0, 1].
func (s Snapshot) Progress() float64 {
	total := s.Settings.Seconds(s.State.Mode)
	if total <= 0 {
		return 0
	}
	p := float64(total-s.State.SecondsLeft) / float64(total)
	return min(max(p, 0), 1)
}

// CyclePosition returns how many work sessions of the current long-break
// cycle are done, and the cycle length.
func (s Snapshot) CyclePosition() (done, of int) {
	of = max(s.Settings.SessionsBeforeLongBreak, 1)
	return s.State.SessionsCompleted % of, of
}

// NeedsSubject reports whether starting now would run a work phase with
// nothing to credit. The UI refuses to start in that case.
func (s Snapshot) NeedsSubject() bool {
	return s.State.Mode == store.ModeWork && s.State.IsPaused && s.State.CurrentSubjectID == nil
}

// ModeLabel is the display name of a phase.
func ModeLabel(m store.Mode) string {
	switch m {
	case store.ModeBreak:
		return "Short Break"
	case store.ModeLongBreak:
		return "Long Break"
	}
	return "Work Session"
}
