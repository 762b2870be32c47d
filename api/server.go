// Package api exposes the pipeline over HTTP. Handlers translate between
// JSON and pipeline calls; no business logic lives here.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/licenselab/packscan/license"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/metrics"
	"github.com/licenselab/packscan/pipeline"
	"github.com/licenselab/packscan/snapshot"
	"github.com/licenselab/packscan/store"
	"github.com/licenselab/packscan/transfer"
	"github.com/licenselab/packscan/types"
)

// Server handles the HTTP surface of the service.
type Server struct {
	pipeline   *pipeline.Pipeline
	remote     transfer.Remote
	collector  *metrics.Collector
	logger     *log.Logger
	licenseDir string
}

// NewServer assembles the request layer.
func NewServer(pl *pipeline.Pipeline, remote transfer.Remote, collector *metrics.Collector,
	logger *log.Logger, licenseDir string) *Server {
	return &Server{
		pipeline:   pl,
		remote:     remote,
		collector:  collector,
		logger:     logger,
		licenseDir: licenseDir,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/packs", s.handleListPacks)
		r.Get("/licenses", s.handleListLicenses)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleStartExtraction)
			r.Route("/{pack}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Delete("/", s.handleDeleteTask)
				r.Get("/faulty", s.handleFaulty)
				r.Post("/names", s.handleNameUpdate)
				r.Get("/missing", s.handleMissing)
				r.Post("/licenses", s.handleLicenseUpdate)
				r.Post("/license-file", s.handleGenerateLicenseFile)
				r.Get("/license-file", s.handleDownloadLicenseFile)
			})
		})

		r.Get("/snapshots/{pack}", s.handleSnapshot)
	})

	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// fail maps pipeline errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrNoTask),
		errors.Is(err, transfer.ErrNotFound),
		errors.Is(err, snapshot.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrTaskExists):
		status = http.StatusConflict
	case errors.Is(err, pipeline.ErrNoResult):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]any{"error": err.Error()})
	}
	s.respond(w, status, errorBody{Error: err.Error()})
}

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	names, err := s.remote.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.respond(w, http.StatusOK, map[string]any{"packs": names})
}

func (s *Server) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := s.pipeline.Store().Licenses(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if licenses == nil {
		licenses = []store.License{}
	}
	s.respond(w, http.StatusOK, map[string]any{"licenses": licenses})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.collector.Snapshot())
}

type startExtractionRequest struct {
	Username string `json:"username"`
	Pack     string `json:"pack"`
}

func (s *Server) handleStartExtraction(w http.ResponseWriter, r *http.Request) {
	var req startExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.Pack == "" || req.Username == "" {
		s.respond(w, http.StatusBadRequest, errorBody{Error: "username and pack are required"})
		return
	}

	token, err := s.pipeline.StartExtraction(req.Username, req.Pack)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusAccepted, map[string]string{"token": token, "pack": req.Pack})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.pipeline.Tracker().Get(chi.URLParam(r, "pack"))
	if !ok {
		s.respond(w, http.StatusNotFound, errorBody{Error: "no task for pack"})
		return
	}
	s.respond(w, http.StatusOK, rec.Snapshot())
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	pack := chi.URLParam(r, "pack")
	rec, ok := s.pipeline.Tracker().Get(pack)
	if !ok {
		s.respond(w, http.StatusNotFound, errorBody{Error: "no task for pack"})
		return
	}
	// A running worker is asked to stop; it notices between archives.
	rec.Cancel()
	s.pipeline.Tracker().Delete(pack)
	s.respond(w, http.StatusNoContent, nil)
}

// slotLibrary pairs an arena slot with its library for correction flows.
type slotLibrary struct {
	Slot    int           `json:"slot"`
	Library types.Library `json:"library"`
}

func (s *Server) slots(details *types.PackDetails, slots []int) []slotLibrary {
	out := make([]slotLibrary, 0, len(slots))
	for _, slot := range slots {
		if lib := details.At(slot); lib != nil {
			out = append(out, slotLibrary{Slot: slot, Library: *lib})
		}
	}
	return out
}

func (s *Server) handleFaulty(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.pipeline.Tracker().Get(chi.URLParam(r, "pack"))
	if !ok {
		s.respond(w, http.StatusNotFound, errorBody{Error: "no task for pack"})
		return
	}
	details := rec.Data()
	if details == nil {
		s.respond(w, http.StatusUnprocessableEntity, errorBody{Error: "extraction has not completed"})
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"faulty": s.slots(details, details.Faulty)})
}

func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.pipeline.Tracker().Get(chi.URLParam(r, "pack"))
	if !ok {
		s.respond(w, http.StatusNotFound, errorBody{Error: "no task for pack"})
		return
	}
	details := rec.Data()
	if details == nil {
		s.respond(w, http.StatusUnprocessableEntity, errorBody{Error: "extraction has not completed"})
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"components": s.slots(details, details.MissingComponent),
		"libraries":  s.slots(details, details.MissingLibrary),
	})
}

type nameUpdateRequest struct {
	Corrections []pipeline.Correction `json:"corrections"`
}

func (s *Server) handleNameUpdate(w http.ResponseWriter, r *http.Request) {
	var req nameUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.pipeline.StartNameUpdate(chi.URLParam(r, "pack"), req.Corrections); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusAccepted, nil)
}

type licenseUpdateRequest struct {
	Picks []pipeline.LicensePick `json:"picks"`
}

func (s *Server) handleLicenseUpdate(w http.ResponseWriter, r *http.Request) {
	var req licenseUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.pipeline.StartLicenseUpdate(chi.URLParam(r, "pack"), req.Picks); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusAccepted, nil)
}

func (s *Server) handleGenerateLicenseFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.pipeline.GenerateLicenseFile(r.Context(), chi.URLParam(r, "pack"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"file": filepath.Base(path)})
}

func (s *Server) handleDownloadLicenseFile(w http.ResponseWriter, r *http.Request) {
	pack := chi.URLParam(r, "pack")

	// The document is named by pack identity, recoverable from the snapshot
	// even after the tracker record is gone.
	details, err := s.details(pack)
	if err != nil {
		s.fail(w, err)
		return
	}
	path := filepath.Join(s.licenseDir, license.FileName(details.PackName, details.PackVersion))
	if _, err := os.Stat(path); err != nil {
		s.respond(w, http.StatusNotFound, errorBody{Error: "license file has not been generated"})
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	http.ServeFile(w, r, path)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	details, err := s.pipeline.Spool().Read(chi.URLParam(r, "pack"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, details)
}

// details resolves a pack's result from the live record, falling back to
// the spooled snapshot.
func (s *Server) details(pack string) (*types.PackDetails, error) {
	if rec, ok := s.pipeline.Tracker().Get(pack); ok {
		if d := rec.Data(); d != nil {
			return d, nil
		}
	}
	return s.pipeline.Spool().Read(pack)
}
