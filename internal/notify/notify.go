// Package notify plays the end-of-phase tone and raises desktop
// notifications when the user has allowed them.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
	"github.com/sadopc/studycompanion/internal/store"
)

const (
	workEndFrequency  = 880.0  // A5
	breakEndFrequency = 659.25 // E5
	toneMillis        = 1500
)

// PermissionStore persists the user's answer to the notification prompt.
type PermissionStore interface {
	NotificationPermission() store.Permission
	SetNotificationPermission(store.Permission)
}

// Options configures a Notifier. Beep, Alert and Dispatch default to
// beeep.Beep, beeep.Notify and a new goroutine per effect.
type Options struct {
	Sound   bool
	Desktop bool
	Logger  *slog.Logger

	Beep     func(freq float64, millis int) error
	Alert    func(title, message string) error
	Dispatch func(func())
}

// Notifier implements the engine's phase-end hook. Every effect is best
// effort: failures are logged and never reach the caller.
type Notifier struct {
	perms    PermissionStore
	sound    bool
	desktop  bool
	logger   *slog.Logger
	beep     func(float64, int) error
	alert    func(string, string) error
	dispatch func(func())
}

func New(perms PermissionStore, opts Options) *Notifier {
	n := &Notifier{
		perms:    perms,
		sound:    opts.Sound,
		desktop:  opts.Desktop,
		logger:   opts.Logger,
		beep:     opts.Beep,
		alert:    opts.Alert,
		dispatch: opts.Dispatch,
	}
	if n.logger == nil {
		n.logger = slog.New(slog.DiscardHandler)
	}
	if n.beep == nil {
		n.beep = beeep.Beep
	}
	if n.alert == nil {
		n.alert = func(title, message string) error {
			return beeep.Notify(title, message, "")
		}
	}
	if n.dispatch == nil {
		n.dispatch = func(fn func()) { go fn() }
	}
	return n
}

// Tone returns the pitch played when mode ends: higher after work,
// lower after either break.
func Tone(mode store.Mode) float64 {
	if mode == store.ModeWork {
		return workEndFrequency
	}
	return breakEndFrequency
}

// Message returns the notification text for the end of mode.
func Message(mode store.Mode) (title, body string) {
	if mode == store.ModeWork {
		return "Work session completed!", "Take a break now!"
	}
	return "Break time is over!", "Ready to get back to work?"
}

// NotifyPhaseEnd plays the tone and, when permitted, shows a desktop
// notification. It returns immediately.
func (n *Notifier) NotifyPhaseEnd(mode store.Mode) {
	if n.sound {
		freq := Tone(mode)
		n.dispatch(func() {
			if err := n.beep(freq, toneMillis); err != nil {
				n.logger.Warn("play tone", "mode", mode, "error", err)
			}
		})
	}

	if !n.desktop || n.Permission() != store.PermissionGranted {
		return
	}
	title, body := Message(mode)
	n.dispatch(func() {
		if err := n.alert(title, body); err != nil {
			n.logger.Warn("desktop notification", "mode", mode, "error", err)
		}
	})
}

// Permission returns the stored answer. Without a store nothing was
// ever granted.
func (n *Notifier) Permission() store.Permission {
	if n.perms == nil {
		return store.PermissionDefault
	}
	return n.perms.NotificationPermission()
}

// NeedsPrompt reports whether the user has not answered yet.
func (n *Notifier) NeedsPrompt() bool {
	return n.desktop && n.Permission() == store.PermissionDefault
}

// RequestPermission records the user's answer and returns the new state.
func (n *Notifier) RequestPermission(allow bool) store.Permission {
	p := store.PermissionDenied
	if allow {
		p = store.PermissionGranted
	}
	if n.perms != nil {
		n.perms.SetNotificationPermission(p)
	}
	n.logger.Info("notification permission recorded", "permission", p)
	return p
}
