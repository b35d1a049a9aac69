package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var SubjectsKey = Key[[]Subject]{
	Name:    "subjects",
	Default: func() []Subject { return []Subject{} },
}

// seedSubjects stores the starter subjects on a fresh database.
func (s *Store) seedSubjects() error {
	if _, ok, err := s.load(SubjectsKey.Name); err != nil || ok {
		return err
	}
	Set(s, SubjectsKey, []Subject{
		{ID: uuid.NewString(), Name: "Mathematics", Color: "#4F46E5", GoalMinutes: 120},
		{ID: uuid.NewString(), Name: "Physics", Color: "#10B981", GoalMinutes: 90},
		{ID: uuid.NewString(), Name: "Literature", Color: "#F59E0B", GoalMinutes: 60},
	})
	return nil
}

func validateSubject(name, color string, goalMinutes int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	if color == "" {
		return fmt.Errorf("%w: subject color is required", ErrInvalidInput)
	}
	if goalMinutes < 1 {
		return fmt.Errorf("%w: goal minutes must be positive, got %d", ErrInvalidInput, goalMinutes)
	}
	return nil
}

func (s *Store) ListSubjects() []Subject {
	return Get(s, SubjectsKey)
}

func (s *Store) GetSubject(id string) (*Subject, error) {
	for _, subj := range s.ListSubjects() {
		if subj.ID == id {
			return &subj, nil
		}
	}
	return nil, fmt.Errorf("get subject %q: %w", id, ErrNotFound)
}

func (s *Store) CreateSubject(name, color string, goalMinutes int) (*Subject, error) {
	if err := validateSubject(name, color, goalMinutes); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subj := Subject{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Color:       color,
		GoalMinutes: goalMinutes,
	}
	Set(s, SubjectsKey, append(Get(s, SubjectsKey), subj))
	return &subj, nil
}

// UpdateSubject replaces the stored subject with the same id.
func (s *Store) UpdateSubject(subj Subject) error {
	if err := validateSubject(subj.Name, subj.Color, subj.GoalMinutes); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if subj.CompletedMinutes < 0 {
		return fmt.Errorf("update subject: %w: negative completed minutes", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subjects := Get(s, SubjectsKey)
	for i := range subjects {
		if subjects[i].ID == subj.ID {
			subj.Name = strings.TrimSpace(subj.Name)
			subjects[i] = subj
			Set(s, SubjectsKey, subjects)
			return nil
		}
	}
	return fmt.Errorf("update subject %q: %w", subj.ID, ErrNotFound)
}

// DeleteSubject removes the subject. Tasks, notes and session logs that
// reference it are left in place.
func (s *Store) DeleteSubject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjects := Get(s, SubjectsKey)
	for i := range subjects {
		if subjects[i].ID == id {
			Set(s, SubjectsKey, append(subjects[:i:i], subjects[i+1:]...))
			return nil
		}
	}
	return fmt.Errorf("delete subject %q: %w", id, ErrNotFound)
}

// ReportMinutes adds studied minutes to a subject's running total. Unknown
// subjects are ignored.
func (s *Store) ReportMinutes(subjectID string, minutes float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjects := Get(s, SubjectsKey)
	for i := range subjects {
		if subjects[i].ID == subjectID {
			subjects[i].CompletedMinutes += minutes
			Set(s, SubjectsKey, subjects)
			return
		}
	}
	s.logger.Debug("minutes reported for unknown subject", "subject", subjectID, "minutes", minutes)
}
