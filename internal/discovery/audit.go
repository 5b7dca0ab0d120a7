package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// LogEntry is one immutable audit record of an unknown-part resolution.
type LogEntry struct {
	SessionID       string    `json:"session_id"`
	PartNumber      string    `json:"part_number"`
	InvoiceNumber   string    `json:"invoice_number"`
	InvoiceDate     time.Time `json:"invoice_date"`
	DiscoveredPrice float64   `json:"discovered_price"`
	AuthorizedPrice float64   `json:"authorized_price,omitempty"`
	Action          string    `json:"action"`
	DecisionSource  string    `json:"decision_source"`
	Occurrences     int       `json:"occurrences"`
	Timestamp       time.Time `json:"timestamp"`
}

// AuditLog is the sink resolutions are appended to. Append failures must
// never fail validation; callers log them and move on.
type AuditLog interface {
	Append(entry LogEntry) error
}

// FileAuditLog appends entries to a JSON-lines file.
type FileAuditLog struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileAuditLog opens (or creates) the audit log file for appending.
func NewFileAuditLog(path string) (*FileAuditLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileAuditLog{f: f}, nil
}

// Append writes one entry as a JSON line.
func (l *FileAuditLog) Append(entry LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *FileAuditLog) Close() error {
	return l.f.Close()
}
