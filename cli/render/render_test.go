package render

import (
	"bytes"
	"strings"
	"testing"
)

// libraryRow mirrors the shape the extract and task commands render.
type libraryRow struct {
	File    string `json:"file"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"table", FormatTable, false},
		{"yaml", FormatYAML, false},
		{"", "", false},
		{"xml", "", true},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFormat_ErrorNamesTheChoices(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error should list the valid formats, got: %v", err)
	}
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, false, &buf)

	row := libraryRow{File: "lib-foo-2.1.jar", Name: "lib-foo", Version: "2.1", Status: "clean"}
	if err := r.Render(row); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, `"file": "lib-foo-2.1.jar"`) || !strings.Contains(got, `"status": "clean"`) {
		t.Errorf("JSON output missing fields: %s", got)
	}
}

func TestRenderer_YAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, false, &buf)

	if err := r.Render(map[string]string{"pack": "myproduct-3.0.0.zip"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "pack:") || !strings.Contains(got, "myproduct-3.0.0.zip") {
		t.Errorf("YAML output missing content: %s", got)
	}
}

func TestRenderer_TableSlice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	rows := []libraryRow{
		{File: "lib-foo-2.1.jar", Name: "lib-foo", Version: "2.1", Status: "clean"},
		{File: "lib-bar.mar", Name: "lib-bar", Version: "1.0.0", Status: "faulty"},
	}
	if err := r.Render(rows); err != nil {
		t.Fatalf("Render: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("table lines = %d, want header plus 2 rows:\n%s", len(lines), buf.String())
	}
	// Header uses the json tag names, in field order.
	for _, col := range []string{"file", "name", "version", "status"} {
		if !strings.Contains(lines[0], col) {
			t.Errorf("header %q missing column %q", lines[0], col)
		}
	}
	if !strings.Contains(lines[1], "lib-foo-2.1.jar") || !strings.Contains(lines[2], "faulty") {
		t.Errorf("rows out of order or incomplete:\n%s", buf.String())
	}
}

func TestRenderer_TableStruct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	row := libraryRow{File: "lib-foo-2.1.jar", Name: "lib-foo", Version: "2.1", Status: "clean"}
	if err := r.Render(row); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "file:") || !strings.Contains(got, "lib-foo-2.1.jar") {
		t.Errorf("struct table missing file line: %s", got)
	}
	if !strings.Contains(got, "version:") || !strings.Contains(got, "2.1") {
		t.Errorf("struct table missing version line: %s", got)
	}
}

func TestRenderer_TableMapIsSorted(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	if err := r.Render(map[string]int{
		"tasks_started":    3,
		"archives_scanned": 41,
		"faulty_names":     2,
	}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := buf.String()
	want := []string{"archives_scanned", "faulty_names", "tasks_started"}
	last := -1
	for _, key := range want {
		idx := strings.Index(got, key)
		if idx < 0 {
			t.Fatalf("key %q missing from output:\n%s", key, got)
		}
		if idx < last {
			t.Fatalf("keys not sorted:\n%s", got)
		}
		last = idx
	}
}

func TestRenderer_TableEmptySlice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	if err := r.Render([]libraryRow{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("empty slice output = %q, want (no results)", buf.String())
	}
}

func TestRenderer_TableCompositeCells(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	type packRow struct {
		Pack  string   `json:"pack"`
		Clean []int    `json:"clean"`
		Tags  []string `json:"tags"`
	}
	if err := r.Render(packRow{Pack: "myproduct", Clean: []int{0, 1, 2}}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "[3 items]") {
		t.Errorf("populated slice cell = %s, want size summary", got)
	}
	if !strings.Contains(got, "[]") {
		t.Errorf("empty slice cell missing: %s", got)
	}
}

func TestRenderer_NoColorLeavesEncodingsAlone(t *testing.T) {
	var plain, colored bytes.Buffer

	data := map[string]string{"pack": "myproduct-3.0.0.zip"}
	if err := NewRendererWithWriter(FormatJSON, true, &plain).Render(data); err != nil {
		t.Fatal(err)
	}
	if err := NewRendererWithWriter(FormatJSON, false, &colored).Render(data); err != nil {
		t.Fatal(err)
	}
	if plain.String() != colored.String() {
		t.Error("--no-color must not change JSON output")
	}
}
