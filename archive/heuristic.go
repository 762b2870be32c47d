// Package archive provides the primitives the unpacking engine is built
// from: directory walking, the filename name/version heuristic, manifest
// reading and classification, and zip extraction.
package archive

import (
	"path/filepath"
	"strings"

	"github.com/licenselab/packscan/types"
)

// DefaultExtensions is the set of filename extensions recognized as
// library archives.
var DefaultExtensions = []string{".jar", ".mar"}

// StripExtensions removes a recognized archive extension from name.
// Unrecognized extensions are left in place. Empty exts means
// DefaultExtensions, matching the walker.
func StripExtensions(name string, exts []string) string {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// SplitNameVersion derives a candidate name and version from an archive
// filename following the name-version.ext / name_version.ext convention.
//
// The stem (extension stripped) is scanned for the last occurrence of a
// '-' or '_' separator immediately followed by a digit, or by 'S' or 'r'
// (snapshot/release markers). Everything before that separator is the name,
// everything after is the version. A separator at the final character does
// not qualify; filenames with no qualifying separator do not parse, which is
// accepted behavior rather than a defect.
func SplitNameVersion(filename string, exts []string) (name, version string, ok bool) {
	stem := StripExtensions(filename, exts)

	split := -1
	for i := 0; i < len(stem)-1; i++ {
		if stem[i] != '-' && stem[i] != '_' {
			continue
		}
		next := stem[i+1]
		if (next >= '0' && next <= '9') || next == 'S' || next == 'r' {
			split = i
		}
	}
	if split <= 0 {
		return "", "", false
	}
	return stem[:split], stem[split+1:], true
}

// Describe builds a Library record for the archive at path, applying the
// filename heuristic. On a heuristic miss the record falls back to the raw
// filename stem and types.FallbackVersion with ValidName=false.
func Describe(path string, parent int, exts []string) types.Library {
	fileName := filepath.Base(path)
	lib := types.Library{
		FileName: fileName,
		Path:     path,
		Parent:   parent,
	}
	if name, version, ok := SplitNameVersion(fileName, exts); ok {
		lib.Name = name
		lib.Version = version
		lib.ValidName = true
	} else {
		lib.Name = StripExtensions(fileName, exts)
		lib.Version = types.FallbackVersion
	}
	return lib
}
