package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/studycompanion/internal/markdown"
	"github.com/sadopc/studycompanion/internal/store"
)

type notesModel struct {
	store  *store.Store
	width  int
	height int

	subjects []store.Subject
	groups   []store.NoteGroup
	flat     []store.Note // notes in display order, indexed by cursor
	cursor   int

	// Reader state
	reading  bool
	viewport viewport.Model

	formActive bool
	form       *huh.Form
	editing    *store.Note

	formTitle   *string
	formSubject *string
	formContent *string

	confirming bool
}

func newNotesModel(s *store.Store) notesModel {
	title, subject, content := "", "", ""
	return notesModel{
		store:       s,
		formTitle:   &title,
		formSubject: &subject,
		formContent: &content,
	}
}

func (m *notesModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-10, 10)
	m.viewport.Height = max(h-8, 3)
	if m.reading {
		m.renderReader()
	}
}

type notesDataMsg struct {
	subjects []store.Subject
	notes    []store.Note
}

func (m notesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return notesDataMsg{subjects: m.store.ListSubjects(), notes: m.store.ListNotes()}
	}
}

func (m notesModel) captured() bool {
	return m.formActive || m.confirming || m.reading
}

func (m notesModel) selected() (store.Note, bool) {
	if m.cursor < len(m.flat) {
		return m.flat[m.cursor], true
	}
	return store.Note{}, false
}

func (m notesModel) update(msg tea.Msg) (notesModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case notesDataMsg:
		m.subjects = msg.subjects
		m.groups = store.GroupNotes(msg.subjects, msg.notes)
		m.flat = nil
		for _, g := range m.groups {
			m.flat = append(m.flat, g.Notes...)
		}
		if m.cursor >= len(m.flat) {
			m.cursor = max(0, len(m.flat)-1)
		}
		if m.reading {
			m.renderReader()
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirming {
			return m.updateConfirm(msg)
		}
		if m.reading {
			return m.updateReader(msg)
		}
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.flat)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if _, ok := m.selected(); ok {
				m.reading = true
				m.renderReader()
				m.viewport.GotoTop()
			}
		case key.Matches(msg, keys.New):
			if len(m.subjects) == 0 {
				return m, statusCmd("Create a subject first (2).", true)
			}
			return m.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if n, ok := m.selected(); ok {
				return m.showForm(&n)
			}
		case key.Matches(msg, keys.Delete):
			if _, ok := m.selected(); ok {
				m.confirming = true
			}
		}
	}
	return m, nil
}

func (m notesModel) updateReader(msg tea.KeyMsg) (notesModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
		m.reading = false
		return m, nil
	case key.Matches(msg, keys.Edit):
		if n, ok := m.selected(); ok {
			m.reading = false
			return m.showForm(&n)
		}
	case key.Matches(msg, keys.Delete):
		m.confirming = true
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m notesModel) updateConfirm(msg tea.KeyMsg) (notesModel, tea.Cmd) {
	m.confirming = false
	n, ok := m.selected()
	if !key.Matches(msg, keys.Confirm) || !ok {
		return m, nil
	}
	if err := m.store.DeleteNote(n.ID); err != nil {
		return m, statusCmd(fmt.Sprintf("Delete failed: %v", err), true)
	}
	m.reading = false
	return m, tea.Batch(m.refresh(), statusCmd(fmt.Sprintf("Deleted %q", n.Title), false))
}

// renderReader fills the viewport with the selected note as markdown.
func (m *notesModel) renderReader() {
	n, ok := m.selected()
	if !ok {
		m.reading = false
		return
	}
	m.viewport.SetContent(markdown.Render(n.Content, m.viewport.Width))
}

func (m notesModel) showForm(n *store.Note) (notesModel, tea.Cmd) {
	m.editing = n
	*m.formTitle = ""
	*m.formContent = ""
	*m.formSubject = ""
	if len(m.subjects) > 0 {
		*m.formSubject = m.subjects[0].ID
	}
	if n != nil {
		*m.formTitle = n.Title
		*m.formContent = n.Content
		*m.formSubject = n.SubjectID
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(m.formTitle).Validate(requireText("title")),
			huh.NewSelect[string]().Title("Subject").Options(subjectOptions(m.subjects, *m.formSubject)...).Value(m.formSubject),
			huh.NewText().Title("Content (markdown)").Lines(10).Value(m.formContent),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m notesModel) updateForm(msg tea.Msg) (notesModel, tea.Cmd) {
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
			_, err = m.store.CreateNote(*m.formTitle, *m.formContent, *m.formSubject)
		} else {
			n := *m.editing
			n.Title = *m.formTitle
			n.Content = *m.formContent
			n.SubjectID = *m.formSubject
			err = m.store.UpdateNote(n)
		}
		if err != nil {
			return m, statusCmd(fmt.Sprintf("Save failed: %v", err), true)
		}
		return m, m.refresh()
	}
	return m, cmd
}

func (m notesModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Note")
		if m.editing != nil {
			title = titleStyle.Render("Edit Note")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()))
	}

	if m.reading {
		return m.renderReaderView(w)
	}

	title := titleStyle.Render("Notes")
	if len(m.flat) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No notes yet. Press n to write one."),
		))
	}

	rows := []string{title}
	i := 0
	for _, g := range m.groups {
		rows = append(rows, "", dot(g.Subject.Color)+" "+sectionStyle.Render(g.Subject.Name))
		for _, n := range g.Notes {
			cursor := "  "
			style := normalItemStyle
			if i == m.cursor {
				cursor = "> "
				style = selectedItemStyle
			}
			updated := mutedStyle.Render(n.LastUpdated.Local().Format("Jan 2, 15:04"))
			rows = append(rows, style.Render(cursor+truncate(n.Title, max(w-30, 10)))+"  "+updated)
			i++
		}
	}

	rows = append(rows, "", m.footer("  enter: read  n: new  e: edit  d: delete"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m notesModel) renderReaderView(w int) string {
	n, _ := m.selected()
	name, color := store.SubjectLabel(m.subjects, n.SubjectID)
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render(n.Title), "  ", dot(color), " ", mutedStyle.Render(name),
	)
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, "", m.viewport.View(), "", m.footer("  ↑/↓: scroll  e: edit  d: delete  esc: back"),
	))
}

func (m notesModel) footer(hint string) string {
	if m.confirming {
		if n, ok := m.selected(); ok {
			return errorStyle.Render(fmt.Sprintf("  Delete %q? y: delete  any key: cancel", n.Title))
		}
	}
	return mutedStyle.Render(hint)
}
