package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/sadopc/studycompanion/internal/pomodoro"
)

// viewState represents the currently active tab.
type viewState int

const (
	viewTimer viewState = iota
	viewSubjects
	viewTasks
	viewNotes
	viewAnalytics
	viewSettings
)

var viewNames = []string{"Timer", "Subjects", "Tasks", "Notes", "Analytics", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// engineEventMsg carries one event from the pomodoro engine subscription.
type engineEventMsg pomodoro.Event

// dataResetMsg is sent after every stored document was deleted.
type dataResetMsg struct{}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}

// formatMinutes renders a minute total as "1h 05m" or "42m".
func formatMinutes(m float64) string {
	total := int(math.Round(m))
	if total >= 60 {
		return fmt.Sprintf("%dh %02dm", total/60, total%60)
	}
	return fmt.Sprintf("%dm", total)
}

// bar draws a fixed-width progress bar for a fraction in [0, 1].
func bar(fraction float64, width int) string {
	width = max(width, 1)
	filled := int(math.Round(min(max(fraction, 0), 1) * float64(width)))
	return successStyle.Render(strings.Repeat("█", filled)) + subtleStyle.Render(strings.Repeat("░", width-filled))
}

// truncate shortens s to n cells, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	return ansi.Truncate(s, n, "…")
}
