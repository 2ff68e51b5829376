package manager

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestDebouncer_Coalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	var last atomic.Int32
	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() {
			calls.Add(1)
			last.Store(n)
		})
	}

	time.Sleep(150 * time.Millisecond)
	if calls.Load() != 1 || last.Load() != 5 {
		t.Errorf("calls=%d last=%d, want 1 call with the last callback", calls.Load(), last.Load())
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls = %d after Stop, want 0", calls.Load())
	}
}

func TestFileWatcher_ShouldProcessEvent(t *testing.T) {
	fw := &FileWatcher{config: DefaultFileWatcherConfig()}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "yaml write", event: fsnotify.Event{Name: "/p/a.yaml", Op: fsnotify.Write}, want: true},
		{name: "yml create", event: fsnotify.Event{Name: "/p/a.YML", Op: fsnotify.Create}, want: true},
		{name: "remove", event: fsnotify.Event{Name: "/p/a.yaml", Op: fsnotify.Remove}, want: true},
		{name: "chmod only", event: fsnotify.Event{Name: "/p/a.yaml", Op: fsnotify.Chmod}, want: false},
		{name: "other extension", event: fsnotify.Event{Name: "/p/a.json", Op: fsnotify.Write}, want: false},
		{name: "hidden", event: fsnotify.Event{Name: "/p/.a.yaml.swp", Op: fsnotify.Write}, want: false},
		{name: "editor temp", event: fsnotify.Event{Name: "/p/.a.yaml", Op: fsnotify.Write}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fw.shouldProcessEvent(tt.event); got != tt.want {
				t.Errorf("shouldProcessEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policies.yaml", regulatoryYAML)

	cfg := DefaultFileWatcherConfig()
	cfg.Path = path
	cfg.DebounceInterval = 20 * time.Millisecond
	fw, err := NewFileWatcher(cfg, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}

	reloads := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Watch(ctx, func() error {
		reloads <- struct{}{}
		return nil
	})
	time.Sleep(100 * time.Millisecond)

	// A sibling file must not trigger a reload.
	writeFile(t, dir, "other.yaml", acknowledgementYAML)
	select {
	case <-reloads:
		t.Fatal("reload triggered by sibling file")
	case <-time.After(150 * time.Millisecond):
	}

	writeFile(t, dir, "policies.yaml", acknowledgementYAML)
	select {
	case <-reloads:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if err := fw.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}
}
