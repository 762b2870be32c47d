package api_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/licenselab/packscan/api"
	"github.com/licenselab/packscan/archive"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/metrics"
	"github.com/licenselab/packscan/pipeline"
	"github.com/licenselab/packscan/snapshot"
	"github.com/licenselab/packscan/store"
	"github.com/licenselab/packscan/task"
	"github.com/licenselab/packscan/transfer"
	"github.com/licenselab/packscan/types"
)

const packName = "myproduct-3.0.0.zip"

func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type env struct {
	pl     *pipeline.Pipeline
	db     store.Store
	server *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dropDir := t.TempDir()
	pack := zipBytes(t, map[string][]byte{
		"lib-foo-2.1.jar": zipBytes(t, map[string][]byte{
			archive.ManifestPath: []byte("Manifest-Version: 1.0\r\n\r\n"),
		}),
		"lib-bar.mar": zipBytes(t, map[string][]byte{
			archive.ManifestPath: []byte("Manifest-Version: 1.0\r\n\r\n"),
		}),
	})
	if err := os.WriteFile(filepath.Join(dropDir, packName), pack, 0o644); err != nil {
		t.Fatal(err)
	}

	remote, err := transfer.NewLocal(dropDir)
	if err != nil {
		t.Fatal(err)
	}
	spool, err := snapshot.NewSpool(filepath.Join(t.TempDir(), "snapshots"))
	if err != nil {
		t.Fatal(err)
	}

	licenseDir := t.TempDir()
	cfg := pipeline.Config{
		WorkDir:    t.TempDir(),
		LicenseDir: licenseDir,
		VendorName: "acme",
		Workers:    2,
	}
	db := store.NewMemory()
	collector := metrics.NewCollector()
	pl := pipeline.New(cfg, task.NewTracker(), remote, db, spool, nil, collector)

	logger := log.NewPlainLogger().WithOutput(io.Discard)
	srv := api.NewServer(pl, remote, collector, logger, licenseDir)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &env{pl: pl, db: db, server: ts}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// extract drives the extraction through the HTTP surface to completion.
func (e *env) extract(t *testing.T) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/tasks", map[string]string{
		"username": "alice", "pack": packName,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start extraction status = %d", resp.StatusCode)
	}
	e.pl.Wait()
}

func TestServer_ListPacks(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/api/packs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string][]string](t, resp)
	if len(body["packs"]) != 1 || body["packs"][0] != packName {
		t.Fatalf("packs = %v", body["packs"])
	}
}

func TestServer_ExtractionAndPoll(t *testing.T) {
	e := newEnv(t)
	e.extract(t)

	resp := e.do(t, http.MethodGet, "/api/tasks/"+packName, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("poll status = %d", resp.StatusCode)
	}
	snap := decode[types.TaskSnapshot](t, resp)
	if snap.Status != types.TaskStatusComplete {
		t.Errorf("task status = %v (%s)", snap.Status, snap.Message)
	}
	if snap.Data == nil || snap.Data.PackName != "myproduct" {
		t.Errorf("task data = %+v", snap.Data)
	}
}

func TestServer_ExtractionConflict(t *testing.T) {
	e := newEnv(t)
	e.extract(t)

	resp := e.do(t, http.MethodPost, "/api/tasks", map[string]string{
		"username": "bob", "pack": packName,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestServer_ExtractionValidation(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/tasks", map[string]string{"pack": packName})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_PollAbsentTask(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/api/tasks/unknown.zip", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_FaultyAndCorrections(t *testing.T) {
	e := newEnv(t)
	e.extract(t)

	resp := e.do(t, http.MethodGet, "/api/tasks/"+packName+"/faulty", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("faulty status = %d", resp.StatusCode)
	}
	body := decode[map[string][]struct {
		Slot    int           `json:"slot"`
		Library types.Library `json:"library"`
	}](t, resp)
	faulty := body["faulty"]
	if len(faulty) != 1 || faulty[0].Library.FileName != "lib-bar.mar" {
		t.Fatalf("faulty = %+v", faulty)
	}

	resp = e.do(t, http.MethodPost, "/api/tasks/"+packName+"/names", map[string]any{
		"corrections": []pipeline.Correction{
			{Slot: faulty[0].Slot, Name: "lib-bar", Version: "0.9.1"},
		},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("corrections status = %d", resp.StatusCode)
	}
	e.pl.Wait()

	resp = e.do(t, http.MethodGet, "/api/tasks/"+packName+"/missing", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("missing status = %d", resp.StatusCode)
	}
}

func TestServer_LicenseFileFlow(t *testing.T) {
	e := newEnv(t)
	e.extract(t)

	if err := e.db.AddLicense(context.Background(), store.License{Key: "apache2", Name: "Apache License 2.0"}); err != nil {
		t.Fatal(err)
	}

	rec, _ := e.pl.Tracker().Get(packName)
	details := rec.Data()
	if err := e.pl.StartNameUpdate(packName, []pipeline.Correction{
		{Slot: details.Faulty[0], Name: "lib-bar", Version: "0.9.1"},
	}); err != nil {
		t.Fatal(err)
	}
	e.pl.Wait()
	details = rec.Data()

	var picks []pipeline.LicensePick
	for _, slot := range details.Clean {
		picks = append(picks, pipeline.LicensePick{Slot: slot, Key: "apache2"})
	}
	resp := e.do(t, http.MethodPost, "/api/tasks/"+packName+"/licenses", map[string]any{"picks": picks})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("picks status = %d", resp.StatusCode)
	}
	e.pl.Wait()

	resp = e.do(t, http.MethodPost, "/api/tasks/"+packName+"/license-file", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	generated := decode[map[string]string](t, resp)
	if generated["file"] != "LICENSE-myproduct-3.0.0.txt" {
		t.Fatalf("file = %q", generated["file"])
	}

	resp = e.do(t, http.MethodGet, "/api/tasks/"+packName+"/license-file", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	doc, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(doc), "apache2") {
		t.Error("downloaded document missing license rows")
	}

	// The spooled snapshot stays retrievable after the record is deleted.
	resp = e.do(t, http.MethodDelete, "/api/tasks/"+packName, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = e.do(t, http.MethodGet, "/api/snapshots/"+packName, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status = %d", resp.StatusCode)
	}
	stored := decode[types.PackDetails](t, resp)
	if stored.PackName != "myproduct" {
		t.Errorf("snapshot pack = %q", stored.PackName)
	}
}

func TestServer_DeleteCancelsAndForgets(t *testing.T) {
	e := newEnv(t)
	e.extract(t)

	resp := e.do(t, http.MethodDelete, "/api/tasks/"+packName, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = e.do(t, http.MethodGet, "/api/tasks/"+packName, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("poll after delete = %d, want 404", resp.StatusCode)
	}
	resp = e.do(t, http.MethodDelete, "/api/tasks/"+packName, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", resp.StatusCode)
	}
}

func TestServer_Metrics(t *testing.T) {
	e := newEnv(t)
	e.extract(t)

	resp := e.do(t, http.MethodGet, "/api/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	snap := decode[metrics.Snapshot](t, resp)
	if snap.TasksStarted != 1 || snap.ArchivesScanned == 0 {
		t.Errorf("metrics = %+v", snap)
	}
}
