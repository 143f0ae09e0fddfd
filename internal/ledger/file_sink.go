package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"medication-alerts/internal/models"
)

// FileSink appends one JSON object per line to a flat file.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, event models.DoseEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal dose event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return f.Close()
}
