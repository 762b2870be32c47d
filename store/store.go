// Package store persists packs, libraries, and license assignments.
// Implementations must make every write idempotent: the pipeline re-runs
// stages after user corrections and must not duplicate rows.
package store

import (
	"context"
	"errors"

	"github.com/licenselab/packscan/types"
)

// ErrNotFound indicates a lookup for a row that does not exist.
var ErrNotFound = errors.New("store: not found")

// License is one selectable license definition.
type License struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Store is the persistence boundary for extraction results.
//
// Upserts resolve the create-or-reuse race at the storage layer with unique
// constraints instead of a read-then-insert sequence, so concurrent runs
// against the same pack converge on one row.
type Store interface {
	// UpsertPack stores the pack identity and returns its row id.
	UpsertPack(ctx context.Context, name, version string) (int64, error)

	// UpsertLibrary stores a library identified by (name, version, type)
	// and returns its row id.
	UpsertLibrary(ctx context.Context, lib *types.Library) (int64, error)

	// LinkPackLibrary records that the pack ships the library. Idempotent.
	LinkPackLibrary(ctx context.Context, packID, libraryID int64) error

	// LibraryLicense returns the license key assigned to the library, or
	// ok=false when none has been picked yet.
	LibraryLicense(ctx context.Context, libraryID int64) (key string, ok bool, err error)

	// SetLibraryLicense assigns a license key to the library, replacing any
	// earlier pick. The key must exist in the license table.
	SetLibraryLicense(ctx context.Context, libraryID int64, key string) error

	// AddLicense registers a selectable license definition. Idempotent on key.
	AddLicense(ctx context.Context, lic License) error

	// Licenses lists all selectable license definitions ordered by key.
	Licenses(ctx context.Context) ([]License, error)

	// License returns one license definition by key.
	// Returns ErrNotFound when the key is unknown.
	License(ctx context.Context, key string) (License, error)

	// Close releases the underlying connection.
	Close() error
}
