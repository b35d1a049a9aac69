package tui

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/studycompanion/internal/store"
)

type tasksModel struct {
	store  *store.Store
	width  int
	height int

	subjects  []store.Subject
	pending   []store.Task
	completed []store.Task
	cursor    int // over pending followed by completed

	formActive bool
	form       *huh.Form
	editing    *store.Task

	formTitle   *string
	formSubject *string
}

func newTasksModel(s *store.Store) tasksModel {
	title, subject := "", ""
	return tasksModel{
		store:       s,
		formTitle:   &title,
		formSubject: &subject,
	}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type tasksDataMsg struct {
	subjects []store.Subject
	tasks    []store.Task
}

func (m tasksModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return tasksDataMsg{subjects: m.store.ListSubjects(), tasks: m.store.ListTasks()}
	}
}

// selected returns the task under the cursor.
func (m tasksModel) selected() (store.Task, bool) {
	switch {
	case m.cursor < len(m.pending):
		return m.pending[m.cursor], true
	case m.cursor < len(m.pending)+len(m.completed):
		return m.completed[m.cursor-len(m.pending)], true
	}
	return store.Task{}, false
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		m.subjects = msg.subjects
		m.pending, m.completed = store.SplitTasks(msg.tasks)
		if total := len(m.pending) + len(m.completed); m.cursor >= total {
			m.cursor = max(0, total-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.pending)+len(m.completed)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.New):
			if len(m.subjects) == 0 {
				return m, statusCmd("Create a subject first (2).", true)
			}
			return m.showForm(nil)
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if t, ok := m.selected(); ok {
				return m.showForm(&t)
			}
		case key.Matches(msg, keys.Check):
			if t, ok := m.selected(); ok {
				if err := m.store.ToggleTask(t.ID); err != nil {
					return m, statusCmd(fmt.Sprintf("Update failed: %v", err), true)
				}
				return m, m.refresh()
			}
		case key.Matches(msg, keys.Delete):
			if t, ok := m.selected(); ok {
				if err := m.store.DeleteTask(t.ID); err != nil {
					return m, statusCmd(fmt.Sprintf("Delete failed: %v", err), true)
				}
				return m, m.refresh()
			}
		}
	}
	return m, nil
}

func (m tasksModel) showForm(t *store.Task) (tasksModel, tea.Cmd) {
	m.editing = t
	*m.formTitle = ""
	*m.formSubject = ""
	if len(m.subjects) > 0 {
		*m.formSubject = m.subjects[0].ID
	}
	if t != nil {
		*m.formTitle = t.Title
		*m.formSubject = t.SubjectID
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task").CharLimit(store.MaxTaskTitle).Value(m.formTitle).Validate(validateTaskTitle),
			huh.NewSelect[string]().Title("Subject").Options(subjectOptions(m.subjects, *m.formSubject)...).Value(m.formSubject),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
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
		var err error
		if m.editing == nil {
			_, err = m.store.CreateTask(*m.formTitle, *m.formSubject)
		} else {
			t := *m.editing
			t.Title = *m.formTitle
			t.SubjectID = *m.formSubject
			err = m.store.UpdateTask(t)
		}
		if err != nil {
			return m, statusCmd(fmt.Sprintf("Save failed: %v", err), true)
		}
		return m, m.refresh()
	}
	return m, cmd
}

func (m tasksModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Task")
		if m.editing != nil {
			title = titleStyle.Render("Edit Task")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()))
	}

	title := titleStyle.Render("Tasks")
	if len(m.pending)+len(m.completed) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No tasks yet. Press n to add one."),
		))
	}

	rows := []string{title, ""}
	rows = append(rows, sectionStyle.Render(fmt.Sprintf("Pending (%d)", len(m.pending))))
	if len(m.pending) == 0 {
		rows = append(rows, mutedStyle.Render("  All done."))
	}
	for i, t := range m.pending {
		rows = append(rows, m.renderTask(t, i == m.cursor, w))
	}

	rows = append(rows, "", sectionStyle.Render(fmt.Sprintf("Completed (%d)", len(m.completed))))
	for i, t := range m.completed {
		rows = append(rows, m.renderTask(t, len(m.pending)+i == m.cursor, w))
	}

	rows = append(rows, "", mutedStyle.Render("  n: new  e: edit  x: done/undo  d: delete"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m tasksModel) renderTask(t store.Task, selected bool, w int) string {
	cursor := "  "
	style := normalItemStyle
	if selected {
		cursor = "> "
		style = selectedItemStyle
	}
	box := "[ ]"
	title := style.Render(t.Title)
	if t.Completed {
		box = successStyle.Render("[✓]")
		title = doneStyle.Render(t.Title)
	}
	name, color := store.SubjectLabel(m.subjects, t.SubjectID)
	subject := dot(color) + " " + mutedStyle.Render(name)
	return truncate(style.Render(cursor)+box+" "+title+"  "+subject, max(w-6, 20))
}

func validateTaskTitle(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("task is required")
	}
	if utf8.RuneCountInString(s) > store.MaxTaskTitle {
		return fmt.Errorf("at most %d characters", store.MaxTaskTitle)
	}
	return nil
}

// subjectOptions lists subjects for a select. A current id that no longer
// resolves is kept as an "Unknown Subject" option so editing does not
// silently reassign it.
func subjectOptions(subjects []store.Subject, current string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(subjects)+1)
	found := current == ""
	for _, s := range subjects {
		opts = append(opts, huh.NewOption(s.Name, s.ID))
		found = found || s.ID == current
	}
	if !found {
		name, _ := store.SubjectLabel(subjects, current)
		opts = append(opts, huh.NewOption(name, current))
	}
	return opts
}
