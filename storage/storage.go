// Package storage is a directory-backed key/value store playing the role of
// browser local storage: one file per key, written atomically, with change
// notifications visible to every process sharing the directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Keys used by the skin.
const (
	ConfigKey = "config"
	VolumeKey = "volume"
	MuteKey   = "mute"
)

const tempPrefix = "."

var (
	// ErrInvalidKey is returned for keys that cannot be used as file names.
	ErrInvalidKey = errors.New("invalid storage key")

	keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

// Storage holds string values keyed by name under a directory.
type Storage struct {
	dir string
}

// Open creates the directory if needed and returns a Storage rooted at it.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

// Get returns the stored value and whether the key exists.
func (s *Storage) Get(key string) (string, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set replaces the value of key. The write goes to a temp file that is
// renamed into place, so readers never see a partial value.
func (s *Storage) Set(key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync key %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("failed to replace key %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage) Remove(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in lexical order.
func (s *Storage) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		if keyPattern.MatchString(e.Name()) {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Volume returns the stored volume fraction in [0, 1]. ok is false when
// nothing usable is stored.
func (s *Storage) Volume() (volume float64, ok bool) {
	raw, found, err := s.Get(VolumeKey)
	if err != nil || !found {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return clampVolume(v), true
}

// SetVolume stores the volume fraction as text.
func (s *Storage) SetVolume(volume float64) error {
	return s.Set(VolumeKey, strconv.FormatFloat(clampVolume(volume), 'f', -1, 64))
}

// Muted returns the stored mute flag; a missing or unreadable value is false.
func (s *Storage) Muted() bool {
	raw, found, err := s.Get(MuteKey)
	if err != nil || !found {
		return false
	}
	return strings.TrimSpace(raw) == "true"
}

// SetMuted stores the mute flag as "true" or "false".
func (s *Storage) SetMuted(muted bool) error {
	return s.Set(MuteKey, strconv.FormatBool(muted))
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
