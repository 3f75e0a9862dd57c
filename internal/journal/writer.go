package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is one audit record of a mutation handled by the service.
type Entry struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Owner   string    `json:"owner,omitempty"`
	Profile string    `json:"profile,omitempty"`
	Detail  any       `json:"detail,omitempty"`
}

// Writer appends journal entries as JSON lines to date-organized files.
// Writes are async; a full buffer drops the entry rather than blocking.
type Writer struct {
	baseDir     string
	maxSizeMB   int
	writeCh     chan Entry
	done        chan struct{}
	wg          sync.WaitGroup
	currentDate string
	logger      *lumberjack.Logger
	mu          sync.Mutex
}

func NewWriter(baseDir string, bufferSize, maxSizeMB int) *Writer {
	w := &Writer{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan Entry, bufferSize),
		done:      make(chan struct{}),
	}

	w.wg.Add(1)
	go w.writeLoop()

	return w
}

// Append queues an entry for async writing.
func (w *Writer) Append(entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	select {
	case w.writeCh <- entry:
		return nil
	case <-w.done:
		return fmt.Errorf("journal writer is closed")
	default:
		slog.Warn("journal buffer full, dropping entry", "type", entry.Type)
		return fmt.Errorf("buffer full")
	}
}

// Close shuts down the writer and flushes pending entries.
func (w *Writer) Close() error {
	close(w.done)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case entry := <-w.writeCh:
			w.writeEntry(entry)
		case <-timeout:
			slog.Warn("journal close timeout, some entries may be lost")
			goto done
		default:
			goto done
		}
	}

done:
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		return w.logger.Close()
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case entry := <-w.writeCh:
			w.writeEntry(entry)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) writeEntry(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("failed to marshal journal entry", "error", err, "type", entry.Type)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	currentDate := time.Now().UTC().Format("2006-01-02")
	if w.logger == nil || currentDate != w.currentDate {
		w.rotateForDate(currentDate)
		if w.logger == nil {
			return
		}
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("failed to write journal entry", "error", err)
	}
}

func (w *Writer) rotateForDate(date string) {
	if w.logger != nil {
		w.logger.Close()
		w.logger = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("failed to create journal directory", "error", err, "dir", dir)
		return
	}

	w.logger = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "journal.jsonl"),
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false,
	}
	w.currentDate = date
	slog.Info("opened new journal file", "file", w.logger.Filename)
}
