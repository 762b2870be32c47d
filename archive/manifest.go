package archive

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/licenselab/packscan/iox"
	"github.com/licenselab/packscan/types"
)

// ManifestPath is the archive entry holding the metadata block.
const ManifestPath = "META-INF/MANIFEST.MF"

// Manifest attribute keys consulted during classification.
const (
	attrBundleManifestVersion = "Bundle-ManifestVersion"
	attrBundleName            = "Bundle-Name"
	attrBundleVendor          = "Bundle-Vendor"
)

// Manifest holds the main attribute block of an archive manifest.
type Manifest map[string]string

// Get returns the attribute value, or "" when absent.
func (m Manifest) Get(key string) string { return m[key] }

// ReadManifest extracts the main attributes of the manifest entry from the
// zip archive at path. found is false when the archive carries no manifest,
// which callers treat as "drop this library" rather than an error.
func ReadManifest(path string) (m Manifest, found bool, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, false, fmt.Errorf("open archive %q: %w", path, err)
	}
	defer iox.DiscardClose(zr)

	for _, f := range zr.File {
		if f.Name != ManifestPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false, fmt.Errorf("open manifest in %q: %w", path, err)
		}
		defer iox.DiscardClose(rc)
		return parseManifest(rc), true, nil
	}
	return nil, false, nil
}

// parseManifest reads the main attribute section: "Key: Value" lines up to
// the first blank line, with 72-byte continuation lines starting with a
// single space.
func parseManifest(r io.Reader) Manifest {
	m := Manifest{}
	scanner := bufio.NewScanner(r)

	var lastKey string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break // end of main section
		}
		if strings.HasPrefix(line, " ") {
			if lastKey != "" {
				m[lastKey] += line[1:]
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		lastKey = key
		m[key] = strings.TrimPrefix(value, " ")
	}
	return m
}

// Classifier derives bundle, type and vendor attributes for a library from
// its manifest. Vendor detection is configured per deployment rather than
// hard-coded to one organisation.
type Classifier struct {
	// VendorName is the sentinel recorded when vendor ownership is detected.
	VendorName string
	// VendorPrefix is the package prefix checked against the bundle name
	// attribute and the raw archive filename.
	VendorPrefix string
	// VendorToken is the substring checked against derived version strings.
	VendorToken string
}

// Classify fills the manifest-derived fields of lib in place.
func (c *Classifier) Classify(lib *types.Library, m Manifest) {
	lib.IsBundle = m.Get(attrBundleManifestVersion) != ""

	switch {
	case lib.HasParent():
		lib.Type = types.LibraryTypeNested
	case lib.IsBundle:
		lib.Type = types.LibraryTypeBundle
	default:
		lib.Type = types.LibraryTypePlain
	}

	lib.Vendor = c.vendor(lib, m)
}

func (c *Classifier) vendor(lib *types.Library, m Manifest) string {
	if c.VendorPrefix != "" {
		if strings.HasPrefix(m.Get(attrBundleName), c.VendorPrefix) ||
			strings.HasPrefix(lib.FileName, c.VendorPrefix) {
			return c.VendorName
		}
	}
	if c.VendorToken != "" && strings.Contains(lib.Version, c.VendorToken) {
		return c.VendorName
	}
	return m.Get(attrBundleVendor)
}
