package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"socketcraft.ai/internal/sockets"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	var out []string
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestEventLogger_WritesReadableJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	l.w.now = func() time.Time { return at }

	evs := []sockets.Event{
		{Kind: sockets.EventGemAdded, Time: at, HostUUID: "Item.sword", Slot: 0, GemUUID: "Item.ruby"},
		{Kind: sockets.EventGemRemoved, Time: at, HostUUID: "Item.sword", Slot: 0},
	}
	for _, ev := range evs {
		if err := l.WriteEvent(ev); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "events", "events-2026-03-01-09.jsonl.zst"))
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	var got sockets.Event
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != sockets.EventGemAdded || got.GemUUID != "Item.ruby" {
		t.Fatalf("got %+v", got)
	}
}

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "x")
	at := time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, hour := range []string{"2026-03-01-09", "2026-03-01-10"} {
		if n := len(readLines(t, w.PathForHour(hour))); n != 1 {
			t.Fatalf("%s: lines=%d", hour, n)
		}
	}
}

func TestReadEvents_AcrossFiles(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	at := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	kinds := []sockets.EventKind{sockets.EventSlotAdded, sockets.EventGemAdded, sockets.EventGemRemoved}
	for i, k := range kinds {
		if err := l.WriteEvent(sockets.Event{Kind: k, Slot: i, Time: at}); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
		at = at.Add(time.Hour)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListFiles(filepath.Join(dir, "events"), "events")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files=%d, want 3", len(files))
	}

	var got []sockets.EventKind
	err = ReadEvents(dir, func(ev sockets.Event) error {
		got = append(got, ev.Kind)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(got) != 3 || got[0] != kinds[0] || got[2] != kinds[2] {
		t.Fatalf("got %v", got)
	}
}

func TestEventLogger_FilesByEventTime(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	l.w.now = func() time.Time { return time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC) }

	late := time.Date(2026, 3, 1, 9, 59, 30, 0, time.UTC)
	evs := []sockets.Event{
		{Kind: sockets.EventGemAdded, Time: late, HostUUID: "Item.sword"},
		{Kind: sockets.EventSlotAdded, HostUUID: "Item.sword"},
		{Kind: sockets.EventGemRemoved, Time: late.Add(10 * time.Second), HostUUID: "Item.sword"},
	}
	for _, ev := range evs {
		if err := l.WriteEvent(ev); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	nine := readLines(t, l.w.PathForHour("2026-03-01-09"))
	ten := readLines(t, l.w.PathForHour("2026-03-01-10"))
	if len(nine) != 2 || len(ten) != 1 {
		t.Fatalf("09:%d 10:%d, want 2 and 1", len(nine), len(ten))
	}
	var got sockets.Event
	if err := json.Unmarshal([]byte(nine[1]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != sockets.EventGemRemoved {
		t.Fatalf("second 09 event=%s", got.Kind)
	}
}
