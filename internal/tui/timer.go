package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/studycompanion/internal/analytics"
	"github.com/sadopc/studycompanion/internal/pomodoro"
	"github.com/sadopc/studycompanion/internal/store"
)

// timerModel is the Timer tab: it renders engine snapshots and forwards
// key presses to the engine. It never mutates timer state itself.
type timerModel struct {
	store  *store.Store
	engine *pomodoro.Engine
	width  int
	height int

	snap     pomodoro.Snapshot
	subjects []store.Subject
	today    analytics.DayStats

	// Subject picker state. Index 0 is "no subject".
	picking      bool
	pickerCursor int
}

func newTimerModel(s *store.Store, e *pomodoro.Engine) timerModel {
	return timerModel{
		store:  s,
		engine: e,
		snap:   e.Snapshot(),
	}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

type timerDataMsg struct {
	subjects []store.Subject
	today    analytics.DayStats
}

func (t timerModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return timerDataMsg{
			subjects: t.store.ListSubjects(),
			today:    analytics.Today(t.store.ListSessions(), time.Now()),
		}
	}
}

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case timerDataMsg:
		t.subjects = msg.subjects
		t.today = msg.today
		t.snap = t.engine.Snapshot()
		return t, nil

	case engineEventMsg:
		t.snap = msg.Snapshot
		if msg.Type == pomodoro.EventTransition {
			return t, t.refresh()
		}
		return t, nil

	case tea.KeyMsg:
		if t.picking {
			return t.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Toggle):
			if t.snap.NeedsSubject() {
				return t, statusCmd("Pick a subject before starting a work session (p).", true)
			}
			t.engine.Toggle()
			t.snap = t.engine.Snapshot()
		case key.Matches(msg, keys.Skip):
			t.engine.Skip()
			t.snap = t.engine.Snapshot()
			return t, t.refresh()
		case key.Matches(msg, keys.Reset):
			t.engine.ResetPhase(t.snap.State.Mode)
			t.snap = t.engine.Snapshot()
		case key.Matches(msg, keys.Pick):
			if len(t.subjects) == 0 {
				return t, statusCmd("No subjects yet. Press 2 to create one.", true)
			}
			t.picking = true
			t.pickerCursor = 0
			for i, s := range t.subjects {
				if s.ID == t.snap.SubjectID() {
					t.pickerCursor = i + 1
				}
			}
		}
	}
	return t, nil
}

func (t timerModel) updatePicker(msg tea.KeyMsg) (timerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if t.pickerCursor > 0 {
			t.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if t.pickerCursor < len(t.subjects) {
			t.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		t.picking = false
		id := ""
		if t.pickerCursor > 0 && t.pickerCursor <= len(t.subjects) {
			id = t.subjects[t.pickerCursor-1].ID
		}
		t.engine.SelectSubject(id)
		t.snap = t.engine.Snapshot()
	case key.Matches(msg, keys.Back):
		t.picking = false
	}
	return t, nil
}

func (t timerModel) view() string {
	w := t.width - 4
	if t.picking {
		return t.renderPicker(w)
	}

	st := t.snap.State
	color := modeColor(st.Mode)
	modeStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	clock := timerStyle.Foreground(color).Width(max(w-6, 10)).Render(bigTime(t.snap.Formatted()))

	status := warningStyle.Render("Paused")
	if t.snap.Running() {
		status = successStyle.Render("Running")
	}

	subject := mutedStyle.Render("No subject selected. Press p to pick one.")
	if id := t.snap.SubjectID(); id != "" {
		name, c := store.SubjectLabel(t.subjects, id)
		subject = dot(c) + " " + normalItemStyle.Render(name)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		modeStyle.Render(strings.ToUpper(pomodoro.ModeLabel(st.Mode))),
		"",
		clock,
		"",
		bar(t.snap.Progress(), min(max(w-20, 10), 40)),
		status,
		"",
		subject,
		"",
		t.renderCycle(),
	)

	today := fmt.Sprintf("Today: %s studied, %d sessions",
		formatMinutes(t.today.Minutes), t.today.Sessions)

	controls := mutedStyle.Render("s/space: start/pause  >: skip  r: reset  p: subject")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			titleStyle.Render("Timer"), "", content, "", highlightStyle.Render(today), "", controls,
		),
	)
}

// renderCycle draws one dot per work session of the long-break cycle.
func (t timerModel) renderCycle() string {
	done, of := t.snap.CyclePosition()
	working := t.snap.State.Mode == store.ModeWork
	var parts []string
	for i := range of {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && working:
			parts = append(parts, warningStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d until long break", done, of))
	return strings.Join(parts, " ") + counter
}

func (t timerModel) renderPicker(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Study Subject"), "")

	items := append([]string{mutedStyle.Render("(none)")}, make([]string, len(t.subjects))...)
	for i, s := range t.subjects {
		items[i+1] = dot(s.Color) + " " + s.Name
	}
	for i, item := range items {
		cursor := "  "
		style := normalItemStyle
		if i == t.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor)+item)
	}

	rows = append(rows, "", mutedStyle.Render("  enter: select  esc: cancel"))
	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// bigTime spaces the digits of an mm:ss string so the countdown reads
// at a glance.
func bigTime(s string) string {
	return strings.Join(strings.Split(s, ""), " ")
}
