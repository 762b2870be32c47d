//nolint:revive // types is a common Go package naming convention
package types

// LibraryType classifies the provenance of a discovered archive entry.
type LibraryType string

// Library type constants.
const (
	// LibraryTypePlain is a plain archive discovered directly in the pack.
	LibraryTypePlain LibraryType = "archive"
	// LibraryTypeBundle is an archive whose manifest carries bundle
	// versioning metadata (OSGi-style).
	LibraryTypeBundle LibraryType = "bundle"
	// LibraryTypeNested is an archive extracted from inside another archive.
	LibraryTypeNested LibraryType = "archive_in_bundle"
)

// NoParent is the arena slot value for a library discovered at the top level.
const NoParent = -1

// FallbackVersion is assigned when no version can be derived from a filename.
const FallbackVersion = "1.0.0"

// Library is one archive entry discovered during pack extraction.
//
// Parent is a slot index into the owning PackDetails arena, never a pointer.
// A parent reference marks provenance only; it does not own the record.
type Library struct {
	// Name is the derived library name, or the raw filename stem when the
	// filename heuristic missed.
	Name string `json:"name" msgpack:"name"`
	// Version is the derived version, or FallbackVersion on a heuristic miss.
	Version string `json:"version" msgpack:"version"`
	// FileName is the raw archive filename. Always set.
	FileName string `json:"file_name" msgpack:"file_name"`
	// Path is the filesystem path of the archive at discovery time.
	// Scratch paths are transient and not valid after the run is consumed.
	Path string `json:"path" msgpack:"path"`
	// Type is the provenance classification.
	Type LibraryType `json:"type" msgpack:"type"`
	// Vendor is the manifest-derived vendor, empty when unknown.
	Vendor string `json:"vendor,omitempty" msgpack:"vendor"`
	// IsBundle is true iff the manifest declares bundle versioning metadata.
	IsBundle bool `json:"is_bundle" msgpack:"is_bundle"`
	// ValidName is true iff both name and version were derived with
	// confidence from the filename.
	ValidName bool `json:"valid_name" msgpack:"valid_name"`
	// LicenseKey is set by the license-insertion stage, empty at creation.
	LicenseKey string `json:"license_key,omitempty" msgpack:"license_key"`
	// Parent is the arena slot of the containing archive, or NoParent.
	Parent int `json:"parent" msgpack:"parent"`
}

// HasParent reports whether the library was extracted from another archive.
func (l *Library) HasParent() bool { return l.Parent != NoParent }
