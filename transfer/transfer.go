// Package transfer moves uploaded pack archives between the remote drop
// location and the local workspace.
package transfer

import (
	"context"
	"errors"
)

// ErrNotFound indicates the named pack archive does not exist remotely.
var ErrNotFound = errors.New("transfer: pack not found")

// Remote is the boundary to the location users upload pack archives to.
type Remote interface {
	// List returns the names of the uploaded pack archives.
	List(ctx context.Context) ([]string, error)

	// Download copies the named archive to destPath, creating parent
	// directories as needed. Returns ErrNotFound when the archive is absent.
	Download(ctx context.Context, name, destPath string) error

	// Delete removes the named archive from the remote location. Deleting
	// an absent archive is not an error.
	Delete(ctx context.Context, name string) error
}
