// Package license renders the LICENSE text document shipped inside a
// released pack: a preamble, a fixed-width library table, and an index of
// the license types the table references.
package license

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/licenselab/packscan/store"
)

// Entry is one resolved library row in the document table.
type Entry struct {
	Name string
	Type string
	Key  string
}

// Document is everything needed to render one pack's license file.
type Document struct {
	PackName    string
	PackVersion string
	// VendorName appears in the preamble as the party licensing the pack.
	VendorName string
	Entries    []Entry
	// Index holds the definitions of every license key the entries use.
	Index []store.License
}

const tableFormat = "%-80s%-15s%-10s\n"

// Render produces the full document text. Table rows keep entry order;
// the license index is sorted by key.
func Render(doc Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nThis product is licensed by %s under Apache License 2.0. The license\n", doc.VendorName)
	b.WriteString("can be downloaded from the following locations:\n")
	b.WriteString("\thttp://www.apache.org/licenses/LICENSE-2.0.html\n")
	b.WriteString("\thttp://www.apache.org/licenses/LICENSE-2.0.txt\n\n")
	b.WriteString("This product also contains software under different licenses. This table below\n")
	b.WriteString("all the contained libraries (jar files) and the license under which they are \n")
	b.WriteString("provided to you.\n\n")
	b.WriteString("At the bottom of this licenseText is a table that shows what each license indicated\n")
	b.WriteString("below is and where the actual text of the license can be found.\n\n")

	fmt.Fprintf(&b, tableFormat, "Name", "Type", "License")
	b.WriteString(strings.Repeat("-", 105))
	b.WriteString("\n")
	for _, e := range doc.Entries {
		fmt.Fprintf(&b, tableFormat, e.Name, e.Type, e.Key)
	}

	b.WriteString("\n\n\nThe license types used by the above libraries and their information is given below:\n\n")
	index := make([]store.License, len(doc.Index))
	copy(index, doc.Index)
	sort.Slice(index, func(i, j int) bool { return index[i].Key < index[j].Key })
	for _, lic := range index {
		fmt.Fprintf(&b, "%-15s%s\n%-15s%s\n", lic.Key, lic.Name, "", lic.URL)
	}

	return b.String()
}

// FileName returns the document file name for a pack.
func FileName(packName, packVersion string) string {
	return "LICENSE-" + packName + "-" + packVersion + ".txt"
}

// WriteFile renders the document into dir and returns the written path.
func WriteFile(dir string, doc Document) (string, error) {
	path := filepath.Join(dir, FileName(doc.PackName, doc.PackVersion))
	if err := os.WriteFile(path, []byte(Render(doc)), 0o644); err != nil {
		return "", fmt.Errorf("write license file: %w", err)
	}
	return path, nil
}
