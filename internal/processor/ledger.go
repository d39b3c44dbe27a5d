package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"workorder-board/internal/types"
)

// Ledger appends one line per processed order to a monthly text log
type Ledger struct {
	dir string
	mu  sync.Mutex
}

// NewLedger returns a ledger writing into dir
func NewLedger(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Path returns the log file for the month of t, e.g. log_11_2025.txt
func (l *Ledger) Path(t time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("log_%02d_%d.txt", int(t.Month()), t.Year()))
}

// Append records a processed order
func (l *Ledger) Append(order types.ProcessedOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(l.Path(order.ProcessedAt), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s Processed: %s, RN: %s, Date: %s\n",
		order.ProcessedAt.Format(time.RFC3339), order.SourceFile, order.Number, order.Date)
	if err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}
