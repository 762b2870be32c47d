// Package render is the single output path for packscan CLI commands.
//
// Every command hands its result to a Renderer instead of printing
// directly, so the format rules live in one place: a TTY gets a table,
// a pipe gets JSON, and --format overrides both. Table mode is built on
// text/tabwriter; map columns are sorted so repeated runs produce
// identical output.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/licenselab/packscan/cli/tui"
)

// Format selects how a Renderer encodes results.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat normalizes a --format value. An empty string is returned
// as-is so the caller can apply its TTY-based default.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer encodes command results onto one writer in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer builds a Renderer from the command's flags. With no
// explicit --format, stdout on a terminal gets a table and anything
// else gets JSON, so piping into jq needs no extra flags.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTerminal(os.Stdout) {
			format = FormatTable
		}
	}
	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     os.Stdout,
	}, nil
}

// NewRendererWithWriter builds a Renderer over an arbitrary writer.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Render encodes data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		return enc.Encode(data)
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI hands data to the interactive view for viewType. Only the
// read-only poll views support it; everything else is an error rather
// than a silent fallback.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

// renderTable routes slices to a header-plus-rows table and everything
// else to a key/value listing.
func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			fmt.Fprintln(w, "(no results)")
			return nil
		}
		headers := columnNames(v.Index(0))
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(w, strings.Join(rowCells(v.Index(i), headers), "\t"))
		}
		return nil
	}

	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			fmt.Fprintf(w, "%s:\t%s\n", columnName(t.Field(i)), cell(v.Field(i)))
		}
	case reflect.Map:
		type pair struct{ key, val string }
		pairs := make([]pair, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			pairs = append(pairs, pair{fmt.Sprintf("%v", iter.Key().Interface()), cell(iter.Value())})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
		for _, p := range pairs {
			fmt.Fprintf(w, "%s:\t%s\n", p.key, p.val)
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
	return nil
}

// columnNames derives the header row from one element: struct fields in
// declaration order, map keys sorted.
func columnNames(v reflect.Value) []string {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		names := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			names = append(names, columnName(t.Field(i)))
		}
		return names
	case reflect.Map:
		return sortedKeys(v)
	}
	return nil
}

func rowCells(v reflect.Value, headers []string) []string {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		cells := make([]string, 0, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			cells = append(cells, cell(v.Field(i)))
		}
		return cells
	case reflect.Map:
		cells := make([]string, 0, len(headers))
		for _, h := range headers {
			cells = append(cells, cell(v.MapIndex(reflect.ValueOf(h))))
		}
		return cells
	}
	return nil
}

// columnName is the json tag name when present, else the lowercased
// field name, matching what the JSON encoding of the same row shows.
func columnName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func sortedKeys(v reflect.Value) []string {
	keys := make([]string, 0, v.Len())
	for _, key := range v.MapKeys() {
		keys = append(keys, fmt.Sprintf("%v", key.Interface()))
	}
	sort.Strings(keys)
	return keys
}

// cell flattens one value for table display. Composite values collapse
// to a size summary; the json or yaml formats carry the full detail.
func cell(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if v.Type().String() == "time.Time" {
			return fmt.Sprintf("%v", v.Interface())
		}
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
