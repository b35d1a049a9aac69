package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sadopc/studycompanion/internal/store"
)

type document struct {
	ExportedAt string        `json:"exported_at" yaml:"exported_at"`
	Count      int           `json:"count" yaml:"count"`
	Sessions   []sessionItem `json:"sessions" yaml:"sessions"`
}

type sessionItem struct {
	ID        string  `json:"id" yaml:"id"`
	Subject   string  `json:"subject" yaml:"subject"`
	SubjectID string  `json:"subject_id" yaml:"subject_id"`
	Date      string  `json:"date" yaml:"date"`
	Type      string  `json:"type" yaml:"type"`
	Minutes   float64 `json:"minutes" yaml:"minutes"`
	Duration  string  `json:"duration" yaml:"duration"`
}

func newExport(logs []store.SessionLog, subjects []store.Subject) document {
	export := document{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(logs),
	}
	for _, l := range logs {
		export.Sessions = append(export.Sessions, sessionItem{
			ID:        l.ID,
			Subject:   subjectName(subjects, l.SubjectID),
			SubjectID: l.SubjectID,
			Date:      l.Date.Local().Format(time.RFC3339),
			Type:      string(l.Type),
			Minutes:   l.Duration,
			Duration:  formatDuration(l.Duration),
		})
	}
	return export
}

func writeJSON(w io.Writer, logs []store.SessionLog, subjects []store.Subject) error {
	data, err := json.MarshalIndent(newExport(logs, subjects), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
