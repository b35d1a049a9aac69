package store

import "time"

// Mode is a timer phase.
type Mode string

const (
	ModeWork      Mode = "work"
	ModeBreak     Mode = "break"
	ModeLongBreak Mode = "longBreak"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeWork, ModeBreak, ModeLongBreak:
		return true
	}
	return false
}

type Subject struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	GoalMinutes      int     `json:"goalMinutes"`
	CompletedMinutes float64 `json:"completedMinutes"`
}

type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	SubjectID string    `json:"subjectId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"` // markdown
	SubjectID   string    `json:"subjectId"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SessionLog records one accounted work period. Duration is in minutes
// and may be fractional when a session was skipped early.
type SessionLog struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	Date      time.Time `json:"date"`
	Duration  float64   `json:"duration"`
	Type      Mode      `json:"type"`
}

type TimerSettings struct {
	WorkMinutes             int `json:"workMinutes"`
	BreakMinutes            int `json:"breakMinutes"`
	LongBreakMinutes        int `json:"longBreakMinutes"`
	SessionsBeforeLongBreak int `json:"sessionsBeforeLongBreak"`
}

type TimerState struct {
	Mode              Mode    `json:"mode"`
	SecondsLeft       int     `json:"secondsLeft"`
	IsPaused          bool    `json:"isPaused"`
	CurrentSubjectID  *string `json:"currentSubjectId"`
	SessionsCompleted int     `json:"sessionsCompleted"`
}

// Permission mirrors the desktop notification permission states.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

const (
	unknownSubjectName  = "Unknown Subject"
	unknownSubjectColor = "#CBD5E1"
)

// SubjectLabel resolves a subject reference for display. Dangling ids
// resolve to "Unknown Subject" with a neutral color.
func SubjectLabel(subjects []Subject, id string) (name, color string) {
	for _, s := range subjects {
		if s.ID == id {
			return s.Name, s.Color
		}
	}
	return unknownSubjectName, unknownSubjectColor
}
