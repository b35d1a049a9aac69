// Package export writes the session log in CSV, JSON or YAML.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/sadopc/studycompanion/internal/store"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml or yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", store.ErrInvalidInput, s)
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Write encodes logs to w in format f.
func Write(w io.Writer, f Format, logs []store.SessionLog, subjects []store.Subject) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, logs, subjects)
	case FormatJSON:
		return writeJSON(w, logs, subjects)
	case FormatYAML:
		return writeYAML(w, logs, subjects)
	}
	return fmt.Errorf("%w: unknown export format %q", store.ErrInvalidInput, f)
}

// ToFile writes logs to path in format f.
func ToFile(path string, f Format, logs []store.SessionLog, subjects []store.Subject) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s file: %w", f, err)
	}
	if err := Write(file, f, logs, subjects); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func subjectName(subjects []store.Subject, id string) string {
	name, _ := store.SubjectLabel(subjects, id)
	return name
}

// formatDuration renders fractional minutes as HH:MM:SS.
func formatDuration(minutes float64) string {
	secs := int64(math.Round(minutes * 60))
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
