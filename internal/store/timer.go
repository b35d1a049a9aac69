package store

import "fmt"

// Bounds enforced by the settings form. Stored settings outside them are
// discarded on load.
const (
	MinWorkMinutes      = 1
	MaxWorkMinutes      = 120
	MinBreakMinutes     = 1
	MaxBreakMinutes     = 30
	MinLongBreakMinutes = 5
	MaxLongBreakMinutes = 60
	MinSessions         = 1
	MaxSessions         = 10
)

func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		WorkMinutes:             25,
		BreakMinutes:            5,
		LongBreakMinutes:        15,
		SessionsBeforeLongBreak: 4,
	}
}

// DefaultTimerState is the state of a fresh timer: paused at the start of
// a work phase with nothing selected.
func DefaultTimerState(settings TimerSettings) TimerState {
	return TimerState{
		Mode:        ModeWork,
		SecondsLeft: settings.WorkMinutes * 60,
		IsPaused:    true,
	}
}

func (ts TimerSettings) Validate() error {
	checks := []struct {
		name     string
		v        int
		min, max int
	}{
		{"work minutes", ts.WorkMinutes, MinWorkMinutes, MaxWorkMinutes},
		{"break minutes", ts.BreakMinutes, MinBreakMinutes, MaxBreakMinutes},
		{"long break minutes", ts.LongBreakMinutes, MinLongBreakMinutes, MaxLongBreakMinutes},
		{"sessions before long break", ts.SessionsBeforeLongBreak, MinSessions, MaxSessions},
	}
	for _, c := range checks {
		if c.v < c.min || c.v > c.max {
			return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidInput, c.name, c.min, c.max, c.v)
		}
	}
	return nil
}

// Seconds returns the configured length of a phase.
func (ts TimerSettings) Seconds(mode Mode) int {
	switch mode {
	case ModeBreak:
		return ts.BreakMinutes * 60
	case ModeLongBreak:
		return ts.LongBreakMinutes * 60
	default:
		return ts.WorkMinutes * 60
	}
}

func (st TimerState) Validate() error {
	if !st.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, st.Mode)
	}
	if st.SecondsLeft < 0 {
		return fmt.Errorf("%w: negative secondsLeft %d", ErrInvalidInput, st.SecondsLeft)
	}
	if st.SessionsCompleted < 0 {
		return fmt.Errorf("%w: negative sessionsCompleted %d", ErrInvalidInput, st.SessionsCompleted)
	}
	return nil
}

var TimerSettingsKey = Key[TimerSettings]{
	Name:     "timerSettings",
	Default:  DefaultTimerSettings,
	Validate: TimerSettings.Validate,
}

func timerStateKey(settings TimerSettings) Key[TimerState] {
	return Key[TimerState]{
		Name:     "timerState",
		Default:  func() TimerState { return DefaultTimerState(settings) },
		Validate: TimerState.Validate,
	}
}

var PermissionKey = Key[Permission]{
	Name:    "notificationPermission",
	Default: func() Permission { return PermissionDefault },
	Validate: func(p Permission) error {
		switch p {
		case PermissionDefault, PermissionGranted, PermissionDenied:
			return nil
		}
		return fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, p)
	},
}

func (s *Store) LoadTimerSettings() TimerSettings {
	return Get(s, TimerSettingsKey)
}

func (s *Store) SaveTimerSettings(ts TimerSettings) {
	Set(s, TimerSettingsKey, ts)
}

// LoadTimerState restores the persisted timer. When nothing is stored the
// fresh state is derived from settings.
func (s *Store) LoadTimerState(settings TimerSettings) TimerState {
	return Get(s, timerStateKey(settings))
}

func (s *Store) SaveTimerState(st TimerState) {
	Set(s, timerStateKey(DefaultTimerSettings()), st)
}

func (s *Store) NotificationPermission() Permission {
	return Get(s, PermissionKey)
}

func (s *Store) SetNotificationPermission(p Permission) {
	Set(s, PermissionKey, p)
}
