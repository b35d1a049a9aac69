package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/sadopc/studycompanion/internal/store"
)

func writeCSV(out io.Writer, logs []store.SessionLog, subjects []store.Subject) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"ID", "Subject", "Date", "Type", "Minutes", "Duration"}); err != nil {
		return err
	}

	for _, l := range logs {
		row := []string{
			l.ID,
			subjectName(subjects, l.SubjectID),
			l.Date.Local().Format(time.RFC3339),
			string(l.Type),
			strconv.FormatFloat(l.Duration, 'f', -1, 64),
			formatDuration(l.Duration),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
