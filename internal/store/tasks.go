package store

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxTaskTitle = 100

var TasksKey = Key[[]Task]{
	Name:    "tasks",
	Default: func() []Task { return []Task{} },
}

func validateTask(title, subjectID string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTaskTitle {
		return fmt.Errorf("%w: task title longer than %d characters", ErrInvalidInput, MaxTaskTitle)
	}
	if subjectID == "" {
		return fmt.Errorf("%w: task subject is required", ErrInvalidInput)
	}
	return nil
}

func (s *Store) ListTasks() []Task {
	return Get(s, TasksKey)
}

func (s *Store) CreateTask(title, subjectID string) (*Task, error) {
	if err := validateTask(title, subjectID); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := Task{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		SubjectID: subjectID,
		CreatedAt: time.Now().UTC(),
	}
	Set(s, TasksKey, append(Get(s, TasksKey), t))
	return &t, nil
}

func (s *Store) UpdateTask(t Task) error {
	if err := validateTask(t.Title, t.SubjectID); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return s.mutateTask(t.ID, func(stored *Task) {
		stored.Title = strings.TrimSpace(t.Title)
		stored.SubjectID = t.SubjectID
		stored.Completed = t.Completed
	})
}

func (s *Store) ToggleTask(id string) error {
	return s.mutateTask(id, func(t *Task) { t.Completed = !t.Completed })
}

func (s *Store) mutateTask(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := Get(s, TasksKey)
	for i := range tasks {
		if tasks[i].ID == id {
			fn(&tasks[i])
			Set(s, TasksKey, tasks)
			return nil
		}
	}
	return fmt.Errorf("task %q: %w", id, ErrNotFound)
}

func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := Get(s, TasksKey)
	for i := range tasks {
		if tasks[i].ID == id {
			Set(s, TasksKey, append(tasks[:i:i], tasks[i+1:]...))
			return nil
		}
	}
	return fmt.Errorf("delete task %q: %w", id, ErrNotFound)
}

// SplitTasks partitions tasks into pending and completed, keeping order.
func SplitTasks(tasks []Task) (pending, completed []Task) {
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}
	return pending, completed
}
