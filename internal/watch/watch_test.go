package watch

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/c/a.xml", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/c/a.xml", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/c/a.xml", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/c/a.xml", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/c/a.xml", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/c/notes.txt", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/c/a.XML", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := Relevant(tt.event); got != tt.want {
			t.Errorf("Relevant(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func startWatcher(t *testing.T, dir string) <-chan Change {
	t.Helper()
	changes := make(chan Change, 10)
	w, err := New(dir, 50*time.Millisecond, func(c Change) { changes <- c })
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return changes
}

func TestWatcherCoalescesXMLChanges(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir)

	for _, name := range []string{"b.xml", "a.xml", "a.xml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<TEI/>"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case c := <-changes:
		if !reflect.DeepEqual(c.Names, []string{"a.xml", "b.xml"}) {
			t.Errorf("Names = %v", c.Names)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		t.Errorf("unexpected change %v", c.Names)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), 0, func(Change) {}); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), 0, func(Change) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
