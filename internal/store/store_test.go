package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory(nil)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// emptyStore returns a store with the seeded subjects removed.
func emptyStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	Set(s, SubjectsKey, []Subject{})
	return s
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "studycompanion.db")

	s, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	first := s.ListSubjects()
	s.Close()

	// Reopen: must not re-migrate or re-seed.
	s2, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	second := s2.ListSubjects()
	if len(second) != len(first) {
		t.Fatalf("subjects changed across reopen: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("subject %d id changed across reopen", i)
		}
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, filepath.Join("studycompanion", "studycompanion.db")) {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestSeededSubjects(t *testing.T) {
	s := newTestStore(t)
	subjects := s.ListSubjects()
	if len(subjects) != 3 {
		t.Fatalf("expected 3 seeded subjects, got %d", len(subjects))
	}
	want := []struct {
		name string
		goal int
	}{
		{"Mathematics", 120},
		{"Physics", 90},
		{"Literature", 60},
	}
	for i, w := range want {
		if subjects[i].Name != w.name || subjects[i].GoalMinutes != w.goal {
			t.Errorf("subject %d = %+v, want %s/%d", i, subjects[i], w.name, w.goal)
		}
		if subjects[i].ID == "" || subjects[i].CompletedMinutes != 0 {
			t.Errorf("subject %d not fresh: %+v", i, subjects[i])
		}
	}
}

// ============================================================
// Key-value layer
// ============================================================

func TestGetMissingReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	k := Key[int]{Name: "missing", Default: func() int { return 42 }}
	if got := Get(s, k); got != 42 {
		t.Fatalf("Get = %d, want 42", got)
	}
}

func TestGetWithoutDefaultReturnsZero(t *testing.T) {
	s := newTestStore(t)
	k := Key[string]{Name: "missing"}
	if got := Get(s, k); got != "" {
		t.Fatalf("Get = %q, want empty", got)
	}
}

func TestSetThenGet(t *testing.T) {
	s := newTestStore(t)
	k := Key[[]string]{Name: "list"}
	Set(s, k, []string{"a", "b"})
	got := Get(s, k)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Get = %v", got)
	}
}

func TestGetUndecodableReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	if err := s.save("broken", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	k := Key[TimerSettings]{Name: "broken", Default: DefaultTimerSettings}
	if got := Get(s, k); got != DefaultTimerSettings() {
		t.Fatalf("Get = %+v, want defaults", got)
	}
}

func TestGetInvalidReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	bad := TimerSettings{WorkMinutes: 0, BreakMinutes: 5, LongBreakMinutes: 15, SessionsBeforeLongBreak: 4}
	Set(s, TimerSettingsKey, bad)
	if got := s.LoadTimerSettings(); got != DefaultTimerSettings() {
		t.Fatalf("LoadTimerSettings = %+v, want defaults", got)
	}
}

func TestValuesPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	s, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	Set(s, Key[string]{Name: "greeting"}, "hello")
	s.Close()

	s2, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got := Get(s2, Key[string]{Name: "greeting"}); got != "hello" {
		t.Fatalf("Get after reopen = %q", got)
	}
}

func TestWriteFailureKeepsSessionValue(t *testing.T) {
	s := newTestStore(t)
	s.db.Close()

	k := Key[int]{Name: "counter", Default: func() int { return 0 }}
	Set(s, k, 7) // must not panic or surface the error
	if got := Get(s, k); got != 7 {
		t.Fatalf("Get after failed write = %d, want 7", got)
	}
}

func TestReadFailureReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	s.db.Close()

	k := Key[string]{Name: "never-written", Default: func() string { return "fallback" }}
	if got := Get(s, k); got != "fallback" {
		t.Fatalf("Get = %q, want fallback", got)
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	s.AppendSession(SessionLog{ID: "x", Type: ModeWork, Duration: 5})
	s.SaveTimerSettings(TimerSettings{WorkMinutes: 50, BreakMinutes: 10, LongBreakMinutes: 20, SessionsBeforeLongBreak: 2})

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if n := len(s.ListSessions()); n != 0 {
		t.Fatalf("expected no sessions after reset, got %d", n)
	}
	if n := len(s.ListSubjects()); n != 0 {
		t.Fatalf("expected no subjects after reset, got %d", n)
	}
	if got := s.LoadTimerSettings(); got != DefaultTimerSettings() {
		t.Fatalf("settings after reset = %+v", got)
	}
}

func TestResetFailureKeepsData(t *testing.T) {
	s := newTestStore(t)
	s.AppendSession(SessionLog{ID: "x", Type: ModeWork, Duration: 5})
	subjects := s.ListSubjects()
	s.db.Close()

	if err := s.Reset(); err == nil {
		t.Fatal("expected an error from a closed database")
	}
	if n := len(s.ListSessions()); n != 1 {
		t.Fatalf("sessions after failed reset = %d, want 1", n)
	}
	if n := len(s.ListSubjects()); n != len(subjects) {
		t.Fatalf("subjects after failed reset = %d, want %d", n, len(subjects))
	}
}

// ============================================================
// Timer settings and state
// ============================================================

func TestTimerSettingsValidate(t *testing.T) {
	tests := []struct {
		name string
		ts   TimerSettings
		ok   bool
	}{
		{"defaults", DefaultTimerSettings(), true},
		{"lower bounds", TimerSettings{1, 1, 5, 1}, true},
		{"upper bounds", TimerSettings{120, 30, 60, 10}, true},
		{"work zero", TimerSettings{0, 5, 15, 4}, false},
		{"work too long", TimerSettings{121, 5, 15, 4}, false},
		{"break too long", TimerSettings{25, 31, 15, 4}, false},
		{"long break too short", TimerSettings{25, 5, 4, 4}, false},
		{"sessions zero", TimerSettings{25, 5, 15, 0}, false},
		{"sessions too many", TimerSettings{25, 5, 15, 11}, false},
	}
	for _, tt := range tests {
		err := tt.ts.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: error %v does not wrap ErrInvalidInput", tt.name, err)
		}
	}
}

func TestTimerSettingsSeconds(t *testing.T) {
	ts := DefaultTimerSettings()
	if ts.Seconds(ModeWork) != 1500 || ts.Seconds(ModeBreak) != 300 || ts.Seconds(ModeLongBreak) != 900 {
		t.Fatalf("unexpected seconds: %d %d %d", ts.Seconds(ModeWork), ts.Seconds(ModeBreak), ts.Seconds(ModeLongBreak))
	}
}

func TestDefaultTimerState(t *testing.T) {
	s := newTestStore(t)
	st := s.LoadTimerState(TimerSettings{WorkMinutes: 30, BreakMinutes: 5, LongBreakMinutes: 15, SessionsBeforeLongBreak: 4})
	if st.Mode != ModeWork || st.SecondsLeft != 1800 || !st.IsPaused || st.CurrentSubjectID != nil || st.SessionsCompleted != 0 {
		t.Fatalf("unexpected default state: %+v", st)
	}
}

func TestTimerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timer.db")
	s, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	subject := "subj-1"
	settings := TimerSettings{WorkMinutes: 45, BreakMinutes: 10, LongBreakMinutes: 30, SessionsBeforeLongBreak: 3}
	state := TimerState{Mode: ModeLongBreak, SecondsLeft: 1234, IsPaused: false, CurrentSubjectID: &subject, SessionsCompleted: 6}
	s.SaveTimerSettings(settings)
	s.SaveTimerState(state)
	s.Close()

	s2, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	gotSettings := s2.LoadTimerSettings()
	if gotSettings != settings {
		t.Fatalf("settings = %+v, want %+v", gotSettings, settings)
	}
	got := s2.LoadTimerState(gotSettings)
	if got.Mode != state.Mode || got.SecondsLeft != state.SecondsLeft || got.IsPaused != state.IsPaused ||
		got.SessionsCompleted != state.SessionsCompleted {
		t.Fatalf("state = %+v, want %+v", got, state)
	}
	if got.CurrentSubjectID == nil || *got.CurrentSubjectID != subject {
		t.Fatalf("currentSubjectId = %v, want %q", got.CurrentSubjectID, subject)
	}
}

func TestTimerStateNullSubject(t *testing.T) {
	s := newTestStore(t)
	s.SaveTimerState(DefaultTimerState(DefaultTimerSettings()))
	data, ok, err := s.load("timerState")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(string(data), `"currentSubjectId":null`) {
		t.Fatalf("expected null subject in %s", data)
	}
}

func TestInvalidTimerStateFallsBack(t *testing.T) {
	s := newTestStore(t)
	s.SaveTimerState(TimerState{Mode: "nap", SecondsLeft: 10})
	st := s.LoadTimerState(DefaultTimerSettings())
	if st.Mode != ModeWork || st.SecondsLeft != 1500 {
		t.Fatalf("expected default state, got %+v", st)
	}
}

func TestNotificationPermission(t *testing.T) {
	s := newTestStore(t)
	if p := s.NotificationPermission(); p != PermissionDefault {
		t.Fatalf("initial permission = %q", p)
	}
	s.SetNotificationPermission(PermissionGranted)
	if p := s.NotificationPermission(); p != PermissionGranted {
		t.Fatalf("permission = %q", p)
	}
	s.SetNotificationPermission("maybe")
	if p := s.NotificationPermission(); p != PermissionDefault {
		t.Fatalf("invalid permission should read as default, got %q", p)
	}
}

// ============================================================
// Subjects
// ============================================================

func TestCreateAndGetSubject(t *testing.T) {
	s := emptyStore(t)
	subj, err := s.CreateSubject("  Chemistry ", "#FF0000", 45)
	if err != nil {
		t.Fatal(err)
	}
	if subj.ID == "" || subj.Name != "Chemistry" || subj.GoalMinutes != 45 || subj.CompletedMinutes != 0 {
		t.Fatalf("unexpected subject: %+v", subj)
	}
	got, err := s.GetSubject(subj.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *subj {
		t.Fatalf("GetSubject = %+v, want %+v", got, subj)
	}
}

func TestCreateSubjectValidation(t *testing.T) {
	s := emptyStore(t)
	tests := []struct {
		name, color string
		goal        int
	}{
		{"", "#000", 10},
		{"   ", "#000", 10},
		{"Bio", "", 10},
		{"Bio", "#000", 0},
		{"Bio", "#000", -5},
	}
	for _, tt := range tests {
		_, err := s.CreateSubject(tt.name, tt.color, tt.goal)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("CreateSubject(%q, %q, %d) err = %v, want ErrInvalidInput", tt.name, tt.color, tt.goal, err)
		}
	}
	if n := len(s.ListSubjects()); n != 0 {
		t.Fatalf("invalid subjects were stored: %d", n)
	}
}

func TestGetSubjectNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSubject("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateSubject(t *testing.T) {
	s := emptyStore(t)
	subj, _ := s.CreateSubject("Art", "#111111", 30)
	subj.Name = "Art History"
	subj.GoalMinutes = 90
	if err := s.UpdateSubject(*subj); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetSubject(subj.ID)
	if got.Name != "Art History" || got.GoalMinutes != 90 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.UpdateSubject(Subject{ID: "missing", Name: "x", Color: "#000", GoalMinutes: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSubjectLeavesReferences(t *testing.T) {
	s := emptyStore(t)
	subj, _ := s.CreateSubject("Music", "#222222", 30)
	if _, err := s.CreateTask("scales", subj.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateNote("theory", "# chords", subj.ID); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSubject(subj.ID); err != nil {
		t.Fatal(err)
	}
	if n := len(s.ListSubjects()); n != 0 {
		t.Fatalf("subject not deleted")
	}
	if n := len(s.ListTasks()); n != 1 {
		t.Fatalf("task should remain, got %d", n)
	}
	if n := len(s.ListNotes()); n != 1 {
		t.Fatalf("note should remain, got %d", n)
	}
	if err := s.DeleteSubject(subj.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestReportMinutes(t *testing.T) {
	s := emptyStore(t)
	a, _ := s.CreateSubject("A", "#000", 60)
	b, _ := s.CreateSubject("B", "#000", 60)

	s.ReportMinutes(a.ID, 25)
	s.ReportMinutes(a.ID, 2.5)

	gotA, _ := s.GetSubject(a.ID)
	gotB, _ := s.GetSubject(b.ID)
	if gotA.CompletedMinutes != 27.5 {
		t.Fatalf("A completed = %v, want 27.5", gotA.CompletedMinutes)
	}
	if gotB.CompletedMinutes != 0 {
		t.Fatalf("B completed = %v, want 0", gotB.CompletedMinutes)
	}
}

func TestReportMinutesExceedsGoal(t *testing.T) {
	s := emptyStore(t)
	a, _ := s.CreateSubject("A", "#000", 10)
	s.ReportMinutes(a.ID, 25)
	got, _ := s.GetSubject(a.ID)
	if got.CompletedMinutes != 25 {
		t.Fatalf("completed = %v, want 25", got.CompletedMinutes)
	}
}

func TestReportMinutesUnknownSubject(t *testing.T) {
	s := newTestStore(t)
	before := s.ListSubjects()
	s.ReportMinutes("ghost", 25)
	after := s.ListSubjects()
	if len(before) != len(after) {
		t.Fatalf("subject count changed")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("subject %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestSubjectLabel(t *testing.T) {
	subjects := []Subject{{ID: "a", Name: "Alpha", Color: "#FFF"}}
	if name, color := SubjectLabel(subjects, "a"); name != "Alpha" || color != "#FFF" {
		t.Fatalf("got %q %q", name, color)
	}
	if name, color := SubjectLabel(subjects, "zzz"); name != "Unknown Subject" || color != "#CBD5E1" {
		t.Fatalf("fallback got %q %q", name, color)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestCreateTask(t *testing.T) {
	s := newTestStore(t)
	task, err := s.CreateTask("  Chapter 5 exercises ", "subj")
	if err != nil {
		t.Fatal(err)
	}
	if task.Title != "Chapter 5 exercises" || task.Completed || task.SubjectID != "subj" {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		title, subject string
	}{
		{"", "subj"},
		{"  ", "subj"},
		{"ok", ""},
		{strings.Repeat("x", MaxTaskTitle+1), "subj"},
	}
	for _, tt := range tests {
		if _, err := s.CreateTask(tt.title, tt.subject); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("CreateTask(%q, %q) err = %v", tt.title, tt.subject, err)
		}
	}
	if _, err := s.CreateTask(strings.Repeat("x", MaxTaskTitle), "subj"); err != nil {
		t.Fatalf("title at limit rejected: %v", err)
	}
}

func TestToggleTask(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask("read", "subj")

	if err := s.ToggleTask(task.ID); err != nil {
		t.Fatal(err)
	}
	if !s.ListTasks()[0].Completed {
		t.Fatal("task should be completed")
	}
	s.ToggleTask(task.ID)
	if s.ListTasks()[0].Completed {
		t.Fatal("task should be pending again")
	}
	if err := s.ToggleTask("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask("read", "subj")
	task.Title = "read twice"
	task.SubjectID = "other"
	if err := s.UpdateTask(*task); err != nil {
		t.Fatal(err)
	}
	got := s.ListTasks()[0]
	if got.Title != "read twice" || got.SubjectID != "other" {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(task.CreatedAt) {
		t.Fatal("CreatedAt must not change on update")
	}

	if err := s.DeleteTask(task.ID); err != nil {
		t.Fatal(err)
	}
	if len(s.ListTasks()) != 0 {
		t.Fatal("task not deleted")
	}
}

func TestSplitTasks(t *testing.T) {
	tasks := []Task{{ID: "1"}, {ID: "2", Completed: true}, {ID: "3"}}
	pending, completed := SplitTasks(tasks)
	if len(pending) != 2 || pending[0].ID != "1" || pending[1].ID != "3" {
		t.Fatalf("pending = %+v", pending)
	}
	if len(completed) != 1 || completed[0].ID != "2" {
		t.Fatalf("completed = %+v", completed)
	}
}

// ============================================================
// Notes
// ============================================================

func TestCreateAndUpdateNote(t *testing.T) {
	s := newTestStore(t)
	n, err := s.CreateNote("Kinematics", "v = u + at", "phys")
	if err != nil {
		t.Fatal(err)
	}
	first := n.LastUpdated

	time.Sleep(5 * time.Millisecond)
	n.Content = "v = u + at\n\ns = ut + at^2/2"
	if err := s.UpdateNote(*n); err != nil {
		t.Fatal(err)
	}
	got := s.ListNotes()[0]
	if got.Content != n.Content {
		t.Fatalf("content = %q", got.Content)
	}
	if !got.LastUpdated.After(first) {
		t.Fatal("LastUpdated should advance on update")
	}
}

func TestNoteValidation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateNote("", "body", "subj"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.CreateNote("title", "body", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if err := s.UpdateNote(Note{ID: "missing", Title: "t", SubjectID: "s"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteNote(t *testing.T) {
	s := newTestStore(t)
	n, _ := s.CreateNote("a", "", "subj")
	if err := s.DeleteNote(n.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteNote(n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestGroupNotes(t *testing.T) {
	subjects := []Subject{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}}
	notes := []Note{
		{ID: "1", SubjectID: "b"},
		{ID: "2", SubjectID: "a"},
		{ID: "3", SubjectID: "gone"},
		{ID: "4", SubjectID: "b"},
	}
	groups := GroupNotes(subjects, notes)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].Subject.ID != "a" || len(groups[0].Notes) != 1 {
		t.Fatalf("group 0 = %+v", groups[0])
	}
	if groups[1].Subject.ID != "b" || len(groups[1].Notes) != 2 {
		t.Fatalf("group 1 = %+v", groups[1])
	}
	if groups[2].Subject.Name != "Unknown Subject" || groups[2].Notes[0].ID != "3" {
		t.Fatalf("orphan group = %+v", groups[2])
	}
}

// ============================================================
// Session logs
// ============================================================

func TestAppendSession(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	s.AppendSession(SessionLog{ID: "1", SubjectID: "a", Date: now, Duration: 25, Type: ModeWork})
	s.AppendSession(SessionLog{ID: "2", SubjectID: "a", Date: now, Duration: 12.5, Type: ModeWork})

	logs := s.ListSessions()
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].ID != "1" || logs[1].Duration != 12.5 {
		t.Fatalf("unexpected logs %+v", logs)
	}
	if !logs[0].Date.Equal(now) {
		t.Fatalf("date = %v, want %v", logs[0].Date, now)
	}
}
