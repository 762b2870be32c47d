// Package snapshot persists completed extraction results as msgpack
// documents, so a consumer can re-fetch a result after the tracker record
// has been deleted. One document per pack, replaced on each write.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/licenselab/packscan/types"
)

// FormatVersion is the snapshot envelope version. Readers reject documents
// written by an incompatible producer instead of guessing.
const FormatVersion = 1

// ErrNotFound indicates no snapshot exists for the pack.
var ErrNotFound = errors.New("snapshot not found")

// ErrFormat indicates a snapshot with an unsupported envelope version.
var ErrFormat = errors.New("unsupported snapshot format")

// envelope wraps the payload with versioning and provenance.
type envelope struct {
	FormatVersion int                `msgpack:"format_version"`
	SavedAt       time.Time          `msgpack:"saved_at"`
	Details       *types.PackDetails `msgpack:"details"`
}

// Encode serializes a result into a versioned msgpack document.
func Encode(details *types.PackDetails) ([]byte, error) {
	body, err := msgpack.Marshal(&envelope{
		FormatVersion: FormatVersion,
		SavedAt:       time.Now().UTC(),
		Details:       details,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return body, nil
}

// Decode parses a msgpack snapshot document.
func Decode(body []byte) (*types.PackDetails, error) {
	var env envelope
	if err := msgpack.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrFormat, env.FormatVersion)
	}
	return env.Details, nil
}

// Spool stores one snapshot file per pack under a directory.
type Spool struct {
	dir string
}

// NewSpool creates the spool directory if needed.
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir %q: %w", dir, err)
	}
	return &Spool{dir: dir}, nil
}

// Path returns the snapshot file path for a pack.
func (s *Spool) Path(packName string) string {
	return filepath.Join(s.dir, sanitize(packName)+".msgpack")
}

// Write replaces the stored snapshot for the pack named in details.
func (s *Spool) Write(packName string, details *types.PackDetails) error {
	body, err := Encode(details)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(packName), body, 0o644); err != nil {
		return fmt.Errorf("write snapshot for %q: %w", packName, err)
	}
	return nil
}

// Read loads the stored snapshot for packName.
// Returns ErrNotFound when none exists.
func (s *Spool) Read(packName string) (*types.PackDetails, error) {
	body, err := os.ReadFile(s.Path(packName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pack %q: %w", packName, ErrNotFound)
		}
		return nil, fmt.Errorf("read snapshot for %q: %w", packName, err)
	}
	return Decode(body)
}

// Remove deletes the stored snapshot. No-op when absent.
func (s *Spool) Remove(packName string) error {
	err := os.Remove(s.Path(packName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot for %q: %w", packName, err)
	}
	return nil
}

// sanitize keeps pack names filesystem-safe. Pack names come from uploaded
// archive filenames and may contain separators.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		default:
			return r
		}
	}, name)
}
