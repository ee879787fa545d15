package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&app{})

	if cmd.Use != "watch" {
		t.Errorf("Use = %q, want 'watch'", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}

	if cmd.Flags().Lookup("lint") == nil {
		t.Error("missing --lint flag")
	}

	flag := cmd.Flags().Lookup("debounce")
	if flag == nil {
		t.Fatal("missing --debounce flag")
	}
	if flag.DefValue != "500ms" {
		t.Errorf("debounce default = %q, want '500ms'", flag.DefValue)
	}
}

func TestWatchDirs(t *testing.T) {
	root := t.TempDir()
	buildContext := filepath.Join(root, "webapp")
	if err := os.Mkdir(buildContext, 0o755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(root, "webapp.yaml")

	dirs, err := watchDirs(configPath, buildContext)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 || dirs[0] != root || dirs[1] != buildContext {
		t.Errorf("dirs = %v", dirs)
	}

	// Same directory twice is watched once; a missing context is skipped.
	dirs, err = watchDirs(filepath.Join(buildContext, "webapp.yaml"), buildContext)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 {
		t.Errorf("dirs = %v, want one", dirs)
	}

	dirs, err = watchDirs(configPath, filepath.Join(root, "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 || dirs[0] != root {
		t.Errorf("dirs = %v", dirs)
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: "webapp/app.js", Op: fsnotify.Write}, true},
		{"remove", fsnotify.Event{Name: "webapp/app.js", Op: fsnotify.Remove}, true},
		{"dockerignore", fsnotify.Event{Name: "webapp/.dockerignore", Op: fsnotify.Write}, true},
		{"chmod only", fsnotify.Event{Name: "webapp/app.js", Op: fsnotify.Chmod}, false},
		{"hidden", fsnotify.Event{Name: "webapp/.app.js.swx", Op: fsnotify.Create}, false},
		{"swap", fsnotify.Event{Name: "webapp/app.js.swp", Op: fsnotify.Write}, false},
		{"backup", fsnotify.Event{Name: "webapp.yaml~", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestShortDigest(t *testing.T) {
	if got := shortDigest(""); got != "unreadable" {
		t.Errorf("shortDigest(\"\") = %q", got)
	}
	d := "sha256:0123456789abcdef0123456789abcdef"
	if got := shortDigest(d); got != "sha256:0123456789ab" {
		t.Errorf("shortDigest = %q", got)
	}
}
