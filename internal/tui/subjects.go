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
	"github.com/sadopc/studycompanion/internal/store"
)

var subjectColors = []string{"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#EC4899", "#06B6D4", "#84CC16"}

type subjectsModel struct {
	store  *store.Store
	width  int
	height int

	subjects []store.Subject
	cursor   int

	formActive bool
	form       *huh.Form
	editing    *store.Subject // nil when creating

	// Form field pointers (survive value copies)
	formName  *string
	formColor *string
	formGoal  *string

	confirming bool
}

func newSubjectsModel(s *store.Store) subjectsModel {
	name, color, goal := "", subjectColors[0], ""
	return subjectsModel{
		store:     s,
		formName:  &name,
		formColor: &color,
		formGoal:  &goal,
	}
}

func (m *subjectsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type subjectsDataMsg struct {
	subjects []store.Subject
}

func (m subjectsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return subjectsDataMsg{subjects: m.store.ListSubjects()}
	}
}

func (m subjectsModel) captured() bool {
	return m.formActive || m.confirming
}

func (m subjectsModel) update(msg tea.Msg) (subjectsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case subjectsDataMsg:
		m.subjects = msg.subjects
		if m.cursor >= len(m.subjects) {
			m.cursor = max(0, len(m.subjects)-1)
		}
		return m, nil

	case engineEventMsg:
		return m, m.refresh()

	case tea.KeyMsg:
		if m.confirming {
			return m.updateConfirm(msg)
		}
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.subjects)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.New):
			return m.showForm(nil)
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if len(m.subjects) > 0 {
				subj := m.subjects[m.cursor]
				return m.showForm(&subj)
			}
		case key.Matches(msg, keys.Delete):
			if len(m.subjects) > 0 {
				m.confirming = true
			}
		}
	}
	return m, nil
}

func (m subjectsModel) updateConfirm(msg tea.KeyMsg) (subjectsModel, tea.Cmd) {
	m.confirming = false
	if !key.Matches(msg, keys.Confirm) || m.cursor >= len(m.subjects) {
		return m, nil
	}
	subj := m.subjects[m.cursor]
	if err := m.store.DeleteSubject(subj.ID); err != nil {
		return m, statusCmd(fmt.Sprintf("Delete failed: %v", err), true)
	}
	return m, tea.Batch(m.refresh(), statusCmd(fmt.Sprintf("Deleted %s", subj.Name), false))
}

func (m subjectsModel) showForm(subj *store.Subject) (subjectsModel, tea.Cmd) {
	m.editing = subj
	*m.formName = ""
	*m.formColor = subjectColors[0]
	*m.formGoal = "60"
	if subj != nil {
		*m.formName = subj.Name
		*m.formColor = subj.Color
		*m.formGoal = strconv.Itoa(subj.GoalMinutes)
	}

	colors := subjectColors
	if subj != nil && !containsColor(colors, subj.Color) {
		colors = append([]string{subj.Color}, colors...)
	}
	colorOptions := make([]huh.Option[string], len(colors))
	for i, c := range colors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("%s %s", dot(c), c), c)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Subject Name").Value(m.formName).Validate(requireText("name")),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(m.formColor),
			huh.NewInput().Title("Goal (minutes)").Value(m.formGoal).Validate(validateGoal),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m subjectsModel) updateForm(msg tea.Msg) (subjectsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		return m, tea.Batch(m.save(), m.refresh())
	}
	return m, cmd
}

func (m subjectsModel) save() tea.Cmd {
	goal, _ := strconv.Atoi(strings.TrimSpace(*m.formGoal))
	var err error
	if m.editing == nil {
		_, err = m.store.CreateSubject(*m.formName, *m.formColor, goal)
	} else {
		subj := *m.editing
		subj.Name = *m.formName
		subj.Color = *m.formColor
		subj.GoalMinutes = goal
		err = m.store.UpdateSubject(subj)
	}
	if err != nil {
		return statusCmd(fmt.Sprintf("Save failed: %v", err), true)
	}
	return nil
}

func (m subjectsModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Subject")
		if m.editing != nil {
			title = titleStyle.Render("Edit Subject")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()))
	}

	title := titleStyle.Render("Subjects")
	if len(m.subjects) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No subjects yet. Press n to create one."),
		))
	}

	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-2s %-22s %-22s %s", "", "Name", "Goal", "Progress")))
	for i, s := range m.subjects {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		fraction := 0.0
		if s.GoalMinutes > 0 {
			fraction = s.CompletedMinutes / float64(s.GoalMinutes)
		}
		goal := fmt.Sprintf("%s / %s", formatMinutes(s.CompletedMinutes), formatMinutes(float64(s.GoalMinutes)))
		rows = append(rows, style.Render(cursor)+dot(s.Color)+" "+
			style.Render(fmt.Sprintf("%-22s %-22s", truncate(s.Name, 22), goal))+" "+
			bar(fraction, 16)+mutedStyle.Render(fmt.Sprintf(" %3.0f%%", min(fraction, 1)*100)))
	}

	if m.confirming && m.cursor < len(m.subjects) {
		rows = append(rows, "", errorStyle.Render(fmt.Sprintf(
			"  Delete %q? Its tasks, notes and sessions are kept. y: delete  any key: cancel",
			m.subjects[m.cursor].Name)))
	} else {
		rows = append(rows, "", mutedStyle.Render("  n: new  e: edit  d: delete"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func containsColor(colors []string, c string) bool {
	for _, x := range colors {
		if strings.EqualFold(x, c) {
			return true
		}
	}
	return false
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateGoal(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a whole number of minutes, at least 1")
	}
	return nil
}
