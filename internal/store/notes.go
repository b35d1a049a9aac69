package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var NotesKey = Key[[]Note]{
	Name:    "notes",
	Default: func() []Note { return []Note{} },
}

func validateNote(title, subjectID string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: note title is required", ErrInvalidInput)
	}
	if subjectID == "" {
		return fmt.Errorf("%w: note subject is required", ErrInvalidInput)
	}
	return nil
}

func (s *Store) ListNotes() []Note {
	return Get(s, NotesKey)
}

func (s *Store) CreateNote(title, content, subjectID string) (*Note, error) {
	if err := validateNote(title, subjectID); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := Note{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Content:     content,
		SubjectID:   subjectID,
		LastUpdated: time.Now().UTC(),
	}
	Set(s, NotesKey, append(Get(s, NotesKey), n))
	return &n, nil
}

// UpdateNote stores new title, content and subject and bumps LastUpdated.
func (s *Store) UpdateNote(n Note) error {
	if err := validateNote(n.Title, n.SubjectID); err != nil {
		return fmt.Errorf("update note: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes := Get(s, NotesKey)
	for i := range notes {
		if notes[i].ID == n.ID {
			notes[i].Title = strings.TrimSpace(n.Title)
			notes[i].Content = n.Content
			notes[i].SubjectID = n.SubjectID
			notes[i].LastUpdated = time.Now().UTC()
			Set(s, NotesKey, notes)
			return nil
		}
	}
	return fmt.Errorf("update note %q: %w", n.ID, ErrNotFound)
}

func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := Get(s, NotesKey)
	for i := range notes {
		if notes[i].ID == id {
			Set(s, NotesKey, append(notes[:i:i], notes[i+1:]...))
			return nil
		}
	}
	return fmt.Errorf("delete note %q: %w", id, ErrNotFound)
}

// NoteGroup is the notes belonging to one subject.
type NoteGroup struct {
	Subject Subject
	Notes   []Note
}

// GroupNotes groups notes by subject in subject order, skipping subjects
// without notes. Notes whose subject no longer exists are returned under
// an "Unknown Subject" group at the end.
func GroupNotes(subjects []Subject, notes []Note) []NoteGroup {
	known := make(map[string]bool, len(subjects))
	var groups []NoteGroup
	for _, subj := range subjects {
		known[subj.ID] = true
		var g []Note
		for _, n := range notes {
			if n.SubjectID == subj.ID {
				g = append(g, n)
			}
		}
		if len(g) > 0 {
			groups = append(groups, NoteGroup{Subject: subj, Notes: g})
		}
	}

	var orphans []Note
	for _, n := range notes {
		if !known[n.SubjectID] {
			orphans = append(orphans, n)
		}
	}
	if len(orphans) > 0 {
		groups = append(groups, NoteGroup{
			Subject: Subject{Name: unknownSubjectName, Color: unknownSubjectColor},
			Notes:   orphans,
		})
	}
	return groups
}
