package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetGetRemove(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "local"))
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}

	if _, found, err := s.Get(ConfigKey); err != nil || found {
		t.Fatalf("Expected missing key, got found=%v err=%v", found, err)
	}

	if err := s.Set(ConfigKey, `{"theme":"DARK"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found, err := s.Get(ConfigKey)
	if err != nil || !found {
		t.Fatalf("Expected stored key, got found=%v err=%v", found, err)
	}
	if value != `{"theme":"DARK"}` {
		t.Errorf("Unexpected value %q", value)
	}

	// Overwrite keeps a single file and no temp leftovers
	if err := s.Set(ConfigKey, `{}`); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 file in storage dir, got %d", len(entries))
	}

	if err := s.Remove(ConfigKey); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Remove(ConfigKey); err != nil {
		t.Errorf("Removing a missing key should not fail: %v", err)
	}
}

func TestInvalidKeys(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}

	for _, key := range []string{"", "../escape", ".hidden", "a/b"} {
		if err := s.Set(key, "x"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Set(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestKeys(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	for _, k := range []string{MuteKey, ConfigKey, VolumeKey} {
		if err := s.Set(k, "1"); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	expected := []string{ConfigKey, MuteKey, VolumeKey}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], expected[i])
		}
	}
}

func TestVolumeAndMute(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}

	if _, ok := s.Volume(); ok {
		t.Error("Expected no stored volume")
	}
	if s.Muted() {
		t.Error("Expected not muted by default")
	}

	tests := []struct {
		in   float64
		want float64
	}{
		{0.35, 0.35},
		{1.7, 1},
		{-0.2, 0},
	}
	for _, tt := range tests {
		if err := s.SetVolume(tt.in); err != nil {
			t.Fatalf("SetVolume(%v) failed: %v", tt.in, err)
		}
		got, ok := s.Volume()
		if !ok || got != tt.want {
			t.Errorf("Volume after SetVolume(%v) = %v (ok=%v), want %v", tt.in, got, ok, tt.want)
		}
	}

	raw, _, _ := s.Get(VolumeKey)
	if raw != "0" {
		t.Errorf("Expected volume stored as text \"0\", got %q", raw)
	}

	if err := s.SetMuted(true); err != nil {
		t.Fatalf("SetMuted failed: %v", err)
	}
	if !s.Muted() {
		t.Error("Expected muted")
	}
	raw, _, _ = s.Get(MuteKey)
	if raw != "true" {
		t.Errorf("Expected mute stored as \"true\", got %q", raw)
	}

	if err := s.Set(VolumeKey, "loud"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := s.Volume(); ok {
		t.Error("Expected unparsable volume to be ignored")
	}
}

func TestWatchReportsWrites(t *testing.T) {
	dir := t.TempDir()
	writer, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open writer: %v", err)
	}
	reader, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := reader.Watch(ctx, nil)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := writer.Set(ConfigKey, `{"auto_skip":true}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case change := <-changes:
			if change.Key != ConfigKey || change.Removed {
				continue
			}
			if change.Value != `{"auto_skip":true}` {
				t.Errorf("Unexpected change value %q", change.Value)
			}
			return
		case <-timeout:
			t.Fatal("Timed out waiting for storage change")
		}
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := s.Watch(ctx, nil)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-changes:
		for ok {
			_, ok = <-changes
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected change channel to close after cancel")
	}
}
