package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/studycompanion/internal/store"
	"gopkg.in/yaml.v3"
)

func sampleData() ([]store.SessionLog, []store.Subject) {
	now := time.Now().UTC()

	logs := []store.SessionLog{
		{ID: "s1", SubjectID: "math", Date: now.Add(-2 * time.Hour), Duration: 25, Type: store.ModeWork},
		{ID: "s2", SubjectID: "phys", Date: now.Add(-1 * time.Hour), Duration: 12.5, Type: store.ModeWork},
		{ID: "s3", SubjectID: "math", Date: now, Duration: 50, Type: store.ModeWork},
	}

	subjects := []store.Subject{
		{ID: "math", Name: "Mathematics", Color: "#4F46E5", GoalMinutes: 120},
		{ID: "phys", Name: "Physics", Color: "#10B981", GoalMinutes: 90},
	}

	return logs, subjects
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

// ============================================================
// Formats
// ============================================================

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"csv", FormatCSV, true},
		{"JSON", FormatJSON, true},
		{" yaml ", FormatYAML, true},
		{"yml", FormatYAML, true},
		{"xml", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, store.ErrInvalidInput) {
			t.Errorf("ParseFormat(%q) error should wrap ErrInvalidInput", tt.in)
		}
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Format("pdf"), nil, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

// ============================================================
// CSV
// ============================================================

func TestExportCSV(t *testing.T) {
	logs, subjects := sampleData()
	path := filepath.Join(t.TempDir(), "test.csv")

	if err := ToFile(path, FormatCSV, logs, subjects); err != nil {
		t.Fatalf("ToFile csv: %v", err)
	}
	records := readCSV(t, path)

	// header + 3 data rows
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	expectedHeader := []string{"ID", "Subject", "Date", "Type", "Minutes", "Duration"}
	for i, h := range expectedHeader {
		if records[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	row := records[1]
	if row[0] != "s1" || row[1] != "Mathematics" || row[3] != "work" {
		t.Fatalf("unexpected first row %v", row)
	}
	if row[4] != "25" || row[5] != "00:25:00" {
		t.Fatalf("minutes = %q duration = %q", row[4], row[5])
	}
	if records[2][4] != "12.5" || records[2][5] != "00:12:30" {
		t.Fatalf("fractional row = %v", records[2])
	}
	if _, err := time.Parse(time.RFC3339, row[2]); err != nil {
		t.Fatalf("date is not RFC3339: %q", row[2])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := ToFile(path, FormatCSV, nil, nil); err != nil {
		t.Fatal(err)
	}
	if records := readCSV(t, path); len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestExportCSVUnknownSubject(t *testing.T) {
	logs := []store.SessionLog{{ID: "x", SubjectID: "deleted", Date: time.Now(), Duration: 5, Type: store.ModeWork}}
	path := filepath.Join(t.TempDir(), "unknown.csv")

	if err := ToFile(path, FormatCSV, logs, nil); err != nil {
		t.Fatal(err)
	}
	if got := readCSV(t, path)[1][1]; got != "Unknown Subject" {
		t.Fatalf("expected 'Unknown Subject' for missing subject, got %q", got)
	}
}

func TestExportCSVBadPath(t *testing.T) {
	if err := ToFile("/nonexistent/dir/file.csv", FormatCSV, nil, nil); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestExportCSVSpecialCharacters(t *testing.T) {
	logs := []store.SessionLog{{ID: "1", SubjectID: "q", Date: time.Now(), Duration: 1, Type: store.ModeWork}}
	subjects := []store.Subject{{ID: "q", Name: `Latin "Prose", Book I`}}
	path := filepath.Join(t.TempDir(), "special.csv")

	if err := ToFile(path, FormatCSV, logs, subjects); err != nil {
		t.Fatal(err)
	}
	if got := readCSV(t, path)[1][1]; got != `Latin "Prose", Book I` {
		t.Fatalf("subject name mangled: %q", got)
	}
}

// ============================================================
// JSON
// ============================================================

func TestExportJSON(t *testing.T) {
	logs, subjects := sampleData()
	path := filepath.Join(t.TempDir(), "test.json")

	if err := ToFile(path, FormatJSON, logs, subjects); err != nil {
		t.Fatalf("ToFile json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result document
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.Count != 3 || len(result.Sessions) != 3 {
		t.Fatalf("count = %d, sessions = %d, want 3", result.Count, len(result.Sessions))
	}
	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}

	s := result.Sessions[1]
	if s.ID != "s2" || s.Subject != "Physics" || s.SubjectID != "phys" {
		t.Fatalf("unexpected session %+v", s)
	}
	if s.Minutes != 12.5 || s.Duration != "00:12:30" || s.Type != "work" {
		t.Fatalf("unexpected session %+v", s)
	}
	for _, s := range result.Sessions {
		if _, err := time.Parse(time.RFC3339, s.Date); err != nil {
			t.Fatalf("date is not valid RFC3339: %q", s.Date)
		}
	}
}

func TestExportJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := ToFile(path, FormatJSON, nil, nil); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var result document
	json.Unmarshal(data, &result)
	if result.Count != 0 {
		t.Fatalf("count = %d, want 0", result.Count)
	}
	if result.Sessions != nil {
		t.Fatal("sessions should be nil/null for empty export")
	}
}

func TestExportJSONUnknownSubject(t *testing.T) {
	logs := []store.SessionLog{{ID: "1", SubjectID: "gone", Date: time.Now(), Duration: 1}}
	path := filepath.Join(t.TempDir(), "unknown.json")
	ToFile(path, FormatJSON, logs, nil)

	data, _ := os.ReadFile(path)
	var result document
	json.Unmarshal(data, &result)
	if result.Sessions[0].Subject != "Unknown Subject" {
		t.Fatalf("expected 'Unknown Subject', got %q", result.Sessions[0].Subject)
	}
}

func TestExportJSONBadPath(t *testing.T) {
	if err := ToFile("/nonexistent/dir/file.json", FormatJSON, nil, nil); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestExportJSONPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.json")
	ToFile(path, FormatJSON, nil, nil)

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n") || !strings.Contains(string(data), "  ") {
		t.Fatal("JSON should be pretty-printed")
	}
}

// ============================================================
// YAML
// ============================================================

func TestExportYAML(t *testing.T) {
	logs, subjects := sampleData()
	path := filepath.Join(t.TempDir(), "test.yaml")

	if err := ToFile(path, FormatYAML, logs, subjects); err != nil {
		t.Fatalf("ToFile yaml: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result document
	if err := yaml.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if result.Count != 3 || len(result.Sessions) != 3 {
		t.Fatalf("count = %d, sessions = %d", result.Count, len(result.Sessions))
	}
	if result.Sessions[0].Subject != "Mathematics" || result.Sessions[2].Minutes != 50 {
		t.Fatalf("unexpected sessions %+v", result.Sessions)
	}
	if !strings.Contains(string(data), "exported_at:") {
		t.Fatalf("missing exported_at key:\n%s", data)
	}
}

func TestWriteYAMLToBuffer(t *testing.T) {
	var buf bytes.Buffer
	logs := []store.SessionLog{{ID: "1", SubjectID: "gone", Date: time.Now(), Duration: 2, Type: store.ModeWork}}
	if err := Write(&buf, FormatYAML, logs, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "subject: Unknown Subject") {
		t.Fatalf("unexpected YAML:\n%s", buf.String())
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes float64
		want    string
	}{
		{0, "00:00:00"},
		{1.0 / 60, "00:00:01"},
		{1, "00:01:00"},
		{12.5, "00:12:30"},
		{60, "01:00:00"},
		{61.0 + 1.0/60, "01:01:01"},
		{1440, "24:00:00"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.minutes); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
