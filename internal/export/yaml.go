package export

import (
	"fmt"
	"io"

	"github.com/sadopc/studycompanion/internal/store"
	"gopkg.in/yaml.v3"
)

func writeYAML(w io.Writer, logs []store.SessionLog, subjects []store.Subject) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newExport(logs, subjects)); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return nil
}
