package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator wraps an io.Writer and keeps the backing file capped to the
// most recent maxLines lines.
type LogRotator struct {
	writer   io.Writer
	lines    []string // circular buffer of the most recent lines
	head     int
	size     int
	seen     int // lines written since the last rotation
	maxLines int
	filePath string
	mutex    sync.Mutex
}

// NewLogRotator creates a new LogRotator. A non-positive maxLines disables rotation.
func NewLogRotator(writer io.Writer, maxLines int, filePath string) *LogRotator {
	r := &LogRotator{
		writer:   writer,
		maxLines: maxLines,
		filePath: filePath,
	}
	if maxLines > 0 {
		r.lines = make([]string, maxLines)
	}

	return r
}

// Write implements io.Writer and rewrites the file once twice the cap has been written.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err := w.writer.Write(p)
	if err != nil || w.maxLines <= 0 {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.remember(line)

		if w.seen >= w.maxLines*2 {
			if err := w.rotate(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}

			w.seen = w.size
		}
	}

	return n, nil
}

// remember stores a line in the circular buffer.
func (w *LogRotator) remember(line string) {
	w.lines[w.head] = line
	w.head = (w.head + 1) % w.maxLines

	if w.size < w.maxLines {
		w.size++
	}

	w.seen++
}

// snapshot returns the buffered lines oldest first.
func (w *LogRotator) snapshot() []string {
	out := make([]string, w.size)
	start := (w.head - w.size + w.maxLines) % w.maxLines

	for i := range w.size {
		out[i] = w.lines[(start+i)%w.maxLines]
	}

	return out
}

// rotate replaces the log file with the buffered tail and reopens it for appending.
func (w *LogRotator) rotate() error {
	lines := w.snapshot()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	if _, err := temp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	temp.Close()

	if closer, ok := w.writer.(io.Closer); ok {
		closer.Close()
	}

	os.Remove(w.filePath)

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	newFile, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.writer = newFile

	return nil
}
