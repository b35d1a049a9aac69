// Package analytics derives the read models shown on the analytics tab
// from subjects and the session log.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/sadopc/studycompanion/internal/store"
)

// DayStats summarizes the work sessions of one calendar day.
type DayStats struct {
	Minutes  float64
	Sessions int
}

// Today returns the work minutes and session count logged on now's local
// calendar day.
func Today(logs []store.SessionLog, now time.Time) DayStats {
	key := dayKey(now)
	var st DayStats
	for _, l := range logs {
		if l.Type != store.ModeWork || dayKey(l.Date.In(now.Location())) != key {
			continue
		}
		st.Minutes += l.Duration
		st.Sessions++
	}
	return st
}

// Progress is one subject's advance toward its goal.
type Progress struct {
	Subject store.Subject
	Percent int // rounded, capped at 100
}

// GoalProgress returns progress for every subject with a positive goal,
// in subject order.
func GoalProgress(subjects []store.Subject) []Progress {
	var out []Progress
	for _, s := range subjects {
		if s.GoalMinutes <= 0 {
			continue
		}
		pct := math.Min(s.CompletedMinutes/float64(s.GoalMinutes)*100, 100)
		out = append(out, Progress{Subject: s, Percent: int(math.Round(pct))})
	}
	return out
}

// Share is one subject's part of all studied time.
type Share struct {
	Subject  store.Subject
	Minutes  float64
	Fraction float64
}

// Distribution splits the total completed minutes across subjects with a
// positive goal. It returns nil when nothing has been studied yet.
func Distribution(subjects []store.Subject) []Share {
	var total float64
	for _, s := range subjects {
		if s.GoalMinutes > 0 {
			total += s.CompletedMinutes
		}
	}
	if total <= 0 {
		return nil
	}

	var out []Share
	for _, s := range subjects {
		if s.GoalMinutes <= 0 {
			continue
		}
		out = append(out, Share{Subject: s, Minutes: s.CompletedMinutes, Fraction: s.CompletedMinutes / total})
	}
	return out
}

// Day is the work sessions logged on one local calendar day.
type Day struct {
	Key     string // 2006-01-02
	Title   string // January 2, 2006
	Minutes float64
	Logs    []store.SessionLog
}

// History groups work sessions by local day, newest day first and newest
// session first within a day.
func History(logs []store.SessionLog, loc *time.Location) []Day {
	if loc == nil {
		loc = time.Local
	}

	sorted := make([]store.SessionLog, 0, len(logs))
	for _, l := range logs {
		if l.Type == store.ModeWork {
			sorted = append(sorted, l)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	var days []Day
	index := make(map[string]int)
	for _, l := range sorted {
		local := l.Date.In(loc)
		key := dayKey(local)
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, Day{Key: key, Title: local.Format("January 2, 2006")})
		}
		days[i].Minutes += l.Duration
		days[i].Logs = append(days[i].Logs, l)
	}
	return days
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
