package state

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// FailureLog appends one block per terminally failed download. It is
// diagnostic output only; nothing in the run reads it back.
type FailureLog struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func NewFailureLog(fs afero.Fs, path string) *FailureLog {
	return &FailureLog{fs: fs, path: path}
}

// Append writes a "[timestamp] locator / Error: cause" block.
func (l *FailureLog) Append(locator string, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open failure log: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] %s\nError: %v\n\n", time.Now().Format(time.RFC3339), locator, cause)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("could not write failure log: %w", err)
	}
	return nil
}
