// Package fingerprint persists the last payload the load balancer accepted,
// so unchanged schedules are not sent twice.
package fingerprint

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// DirName is the working directory below the temp root.
	DirName = "bigbluebuttonbn"
	// FileName is the fixed logical name of the record.
	FileName = "schedule.json"
)

// ErrNoFingerprint is returned by Load before the first successful transmission.
var ErrNoFingerprint = errors.New("no fingerprint recorded")

// Store manages the single fingerprint record of a deployment.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a store rooted at <tempDir>/bigbluebuttonbn.
func NewStore(fs afero.Fs, tempDir string) *Store {
	return &Store{fs: fs, dir: filepath.Join(tempDir, DirName)}
}

// Path returns the location of the record.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Prepare creates the working directory if needed.
func (s *Store) Prepare() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create fingerprint directory %s: %w", s.dir, err)
	}
	return nil
}

// Load returns the persisted record, or ErrNoFingerprint if there is none.
func (s *Store) Load() ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoFingerprint
		}
		return nil, fmt.Errorf("failed to read fingerprint %s: %w", s.Path(), err)
	}
	return data, nil
}

// Matches reports whether candidate is byte-identical to the record. A
// missing record never matches.
func (s *Store) Matches(candidate []byte) (bool, error) {
	current, err := s.Load()
	if err != nil {
		if errors.Is(err, ErrNoFingerprint) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(current, candidate), nil
}

// Save replaces the record atomically: readers see either the old or the
// new payload, never a partial write.
func (s *Store) Save(candidate []byte) error {
	if err := s.Prepare(); err != nil {
		return err
	}

	tmp, err := afero.TempFile(s.fs, s.dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp fingerprint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(candidate); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write temp fingerprint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync temp fingerprint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temp fingerprint: %w", err)
	}

	if err := s.fs.Rename(tmpName, s.Path()); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace fingerprint %s: %w", s.Path(), err)
	}
	return nil
}
