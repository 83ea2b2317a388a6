package logging

import (
	"fmt"
	"os"
	"sync"
)

// sizeLimitedWriter appends to path until it would exceed limit bytes, then
// shifts path.1..path.N-1 up one slot, moves path to path.1 and reopens.
// With backups == 0 the full file is truncated instead.
type sizeLimitedWriter struct {
	mu      sync.Mutex
	path    string
	limit   int64
	backups int

	f       *os.File
	written int64
}

func newSizeLimitedWriter(path string, maxMB, backups int) (*sizeLimitedWriter, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	w := &sizeLimitedWriter{path: path, limit: int64(maxMB) << 20, backups: backups}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *sizeLimitedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.written > 0 && w.written+int64(len(p)) > w.limit {
		if err := w.roll(); err != nil {
			return 0, fmt.Errorf("rotate %s: %w", w.path, err)
		}
	}
	n, err := w.f.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *sizeLimitedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

func (w *sizeLimitedWriter) closeFile() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *sizeLimitedWriter) roll() error {
	_ = w.closeFile()
	if w.backups == 0 {
		if err := os.Truncate(w.path, 0); err != nil && !os.IsNotExist(err) {
			return err
		}
		return w.open()
	}
	for i := w.backups - 1; i >= 1; i-- {
		if err := os.Rename(w.backupName(i), w.backupName(i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(w.path, w.backupName(1)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return w.open()
}

func (w *sizeLimitedWriter) backupName(i int) string {
	return fmt.Sprintf("%s.%d", w.path, i)
}

func (w *sizeLimitedWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.written = info.Size()
	return nil
}
