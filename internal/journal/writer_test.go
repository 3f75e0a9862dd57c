package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndFlush(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 16, 10)

	if err := w.Append(Entry{Type: "script.saved", Owner: "alice", Detail: map[string]string{"id": "scr1"}}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := w.Append(Entry{Type: "drawing.committed", Profile: "prof1"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	f, err := os.Open(filepath.Join(dir, date, "journal.jsonl"))
	if err != nil {
		t.Fatalf("journal file missing: %v", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("invalid journal line %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("journal has %d entries; want 2", len(entries))
	}
	if entries[0].Type != "script.saved" || entries[0].Owner != "alice" {
		t.Fatalf("first entry = %+v; want script.saved by alice", entries[0])
	}
	if entries[0].Time.IsZero() {
		t.Fatalf("entry time not stamped")
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	w := NewWriter(t.TempDir(), 4, 10)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := w.Append(Entry{Type: "script.saved"}); err == nil {
		t.Fatalf("Append() after Close succeeded; want error")
	}
}
