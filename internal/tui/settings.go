package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/studycompanion/internal/notify"
	"github.com/sadopc/studycompanion/internal/pomodoro"
	"github.com/sadopc/studycompanion/internal/store"
)

type settingsModel struct {
	store    *store.Store
	engine   *pomodoro.Engine
	notifier *notify.Notifier
	width    int
	height   int

	settings   store.TimerSettings
	permission store.Permission

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	workMinutes      *string
	breakMinutes     *string
	longBreakMinutes *string
	sessions         *string

	confirmingReset bool
}

func newSettingsModel(s *store.Store, e *pomodoro.Engine, n *notify.Notifier) settingsModel {
	w, b, lb, c := "", "", "", ""
	return settingsModel{
		store:            s,
		engine:           e,
		notifier:         n,
		workMinutes:      &w,
		breakMinutes:     &b,
		longBreakMinutes: &lb,
		sessions:         &c,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings   store.TimerSettings
	permission store.Permission
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return settingsDataMsg{
			settings:   s.engine.Snapshot().Settings,
			permission: s.notifier.Permission(),
		}
	}
}

func (s settingsModel) captured() bool {
	return s.formActive || s.confirmingReset
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		s.permission = msg.permission
		return s, nil

	case tea.KeyMsg:
		if s.confirmingReset {
			s.confirmingReset = false
			if key.Matches(msg, keys.Confirm) {
				return s, s.resetData()
			}
			return s, nil
		}
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		case key.Matches(msg, keys.Check):
			allow := s.permission != store.PermissionGranted
			s.permission = s.notifier.RequestPermission(allow)
			if allow {
				return s, statusCmd("Desktop notifications enabled", false)
			}
			return s, statusCmd("Desktop notifications disabled", false)
		case key.Matches(msg, keys.Reset):
			s.confirmingReset = true
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.workMinutes = strconv.Itoa(s.settings.WorkMinutes)
	*s.breakMinutes = strconv.Itoa(s.settings.BreakMinutes)
	*s.longBreakMinutes = strconv.Itoa(s.settings.LongBreakMinutes)
	*s.sessions = strconv.Itoa(s.settings.SessionsBeforeLongBreak)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Work (min)").
				Description(rangeHint(store.MinWorkMinutes, store.MaxWorkMinutes)).
				Value(s.workMinutes).Validate(intInRange(store.MinWorkMinutes, store.MaxWorkMinutes)),
			huh.NewInput().Title("Short break (min)").
				Description(rangeHint(store.MinBreakMinutes, store.MaxBreakMinutes)).
				Value(s.breakMinutes).Validate(intInRange(store.MinBreakMinutes, store.MaxBreakMinutes)),
			huh.NewInput().Title("Long break (min)").
				Description(rangeHint(store.MinLongBreakMinutes, store.MaxLongBreakMinutes)).
				Value(s.longBreakMinutes).Validate(intInRange(store.MinLongBreakMinutes, store.MaxLongBreakMinutes)),
			huh.NewInput().Title("Sessions before long break").
				Description(rangeHint(store.MinSessions, store.MaxSessions)).
				Value(s.sessions).Validate(intInRange(store.MinSessions, store.MaxSessions)),
		).Title("Timer"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		p := s.patch()
		if p == (pomodoro.SettingsPatch{}) {
			return s, nil
		}
		s.settings = s.engine.UpdateSettings(p)
		return s, statusCmd("Timer settings saved", false)
	}
	return s, cmd
}

// patch builds an update holding only the fields that changed.
func (s settingsModel) patch() pomodoro.SettingsPatch {
	var p pomodoro.SettingsPatch
	set := func(dst **int, raw string, current int) {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && v != current {
			*dst = &v
		}
	}
	set(&p.WorkMinutes, *s.workMinutes, s.settings.WorkMinutes)
	set(&p.BreakMinutes, *s.breakMinutes, s.settings.BreakMinutes)
	set(&p.LongBreakMinutes, *s.longBreakMinutes, s.settings.LongBreakMinutes)
	set(&p.SessionsBeforeLongBreak, *s.sessions, s.settings.SessionsBeforeLongBreak)
	return p
}

// resetData wipes the store and reloads the engine from the defaults.
func (s settingsModel) resetData() tea.Cmd {
	return func() tea.Msg {
		if err := s.store.Reset(); err != nil {
			return statusMsg{text: fmt.Sprintf("Reset failed: %v", err), isError: true}
		}
		s.engine.Reload()
		return dataResetMsg{}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Settings"), "", s.form.View()),
		)
	}

	row := func(label, value string) string {
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(28).Render(label), highlightStyle.Render(value))
	}

	rows := []string{
		titleStyle.Render("Settings"),
		"",
		sectionStyle.Render("Timer"),
		row("Work", fmt.Sprintf("%d min", s.settings.WorkMinutes)),
		row("Short break", fmt.Sprintf("%d min", s.settings.BreakMinutes)),
		row("Long break", fmt.Sprintf("%d min", s.settings.LongBreakMinutes)),
		row("Sessions before long break", strconv.Itoa(s.settings.SessionsBeforeLongBreak)),
		"",
		sectionStyle.Render("Notifications"),
		row("Desktop notifications", permissionLabel(s.permission)),
		"",
	}

	if s.confirmingReset {
		rows = append(rows, errorStyle.Render("  Delete all subjects, tasks, notes and sessions? y: reset  any key: cancel"))
	} else {
		rows = append(rows, mutedStyle.Render("  enter: edit timer  x: toggle notifications  r: reset all data"))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func permissionLabel(p store.Permission) string {
	switch p {
	case store.PermissionGranted:
		return "allowed"
	case store.PermissionDenied:
		return "blocked"
	}
	return "not asked"
}

func rangeHint(lo, hi int) string {
	return fmt.Sprintf("%d to %d", lo, hi)
}

func intInRange(lo, hi int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("enter a whole number")
		}
		if v < lo || v > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}
