package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends one JSON line per operation phase to the audit log.
// A nil logger is a no-op so callers never need to guard.
type Logger struct {
	path string
	mu   sync.Mutex
}

type Event struct {
	Timestamp string `json:"timestamp"`
	Operation string `json:"operation"`
	Module    string `json:"module,omitempty"`
	Assistant string `json:"assistant,omitempty"`
	Phase     string `json:"phase"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

func New(path string) *Logger {
	return &Logger{path: path}
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(blob, '\n'))
	return err
}
