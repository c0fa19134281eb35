// Package journal appends socket events to hourly zstd-compressed JSONL files.
// An event lands in the file for the UTC hour it happened in, so replaying
// the files in name order replays events in time order.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"socketcraft.ai/internal/sockets"
)

// Writer appends one JSON document per line to the file of a UTC hour.
// Switching hours closes the current file; a later write for an earlier hour
// reopens that hour's file and appends a new zstd frame to it.
type Writer struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{baseDir: baseDir, prefix: prefix, now: time.Now}
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to the file of the current hour.
func (w *Writer) Write(v any) error { return w.WriteAt(w.now(), v) }

// WriteAt appends v to the file of the hour containing at.
func (w *Writer) WriteAt(at time.Time, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := at.UTC().Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.PathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

const hourLayout = "2006-01-02-15"

// PathForHour is the file for hour (formatted 2006-01-02-15).
func (w *Writer) PathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// EventLogger records engine events under <dir>/events.
type EventLogger struct{ w *Writer }

func NewEventLogger(dir string) *EventLogger {
	return &EventLogger{w: NewWriter(filepath.Join(dir, "events"), "events")}
}

// WriteEvent files ev under the hour of its timestamp. Unstamped events use
// the writer's clock.
func (l *EventLogger) WriteEvent(ev sockets.Event) error {
	if ev.Time.IsZero() {
		return l.w.Write(ev)
	}
	return l.w.WriteAt(ev.Time, ev)
}

func (l *EventLogger) Close() error { return l.w.Close() }
