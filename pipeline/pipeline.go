// Package pipeline orchestrates the pack processing stages: extraction,
// store update, license insertion, and license file generation. Stage jobs
// run on a bounded worker pool; each job owns exactly one tracker record.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/licenselab/packscan/adapter"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/metrics"
	"github.com/licenselab/packscan/snapshot"
	"github.com/licenselab/packscan/store"
	"github.com/licenselab/packscan/task"
	"github.com/licenselab/packscan/transfer"
	"github.com/licenselab/packscan/types"
)

var (
	// ErrTaskExists indicates a run is already tracked for the pack.
	ErrTaskExists = errors.New("pipeline: task already exists for pack")
	// ErrNoTask indicates no run is tracked for the pack.
	ErrNoTask = errors.New("pipeline: no task for pack")
	// ErrNoResult indicates the tracked run has not produced extraction
	// results yet.
	ErrNoResult = errors.New("pipeline: task has no extraction result")
)

// DefaultWorkers bounds concurrent stage jobs when Config.Workers is unset.
const DefaultWorkers = 4

// Config holds pipeline settings.
type Config struct {
	// WorkDir is the local workspace packs are downloaded and unzipped into.
	WorkDir string
	// LicenseDir receives generated license files. They outlive the pack
	// workspace, which is cleaned after generation.
	LicenseDir string
	// VendorName appears in license file preambles.
	VendorName string
	// VendorPrefix and VendorToken drive manifest vendor classification.
	VendorPrefix string
	VendorToken  string
	// Extensions recognized as archives inside packs. Empty means defaults.
	Extensions []string
	// Workers bounds concurrent stage jobs. Zero means DefaultWorkers.
	Workers int
}

// Pipeline wires the tracker, remote drop location, store, snapshot spool,
// and completion adapter into the staged processing flow.
type Pipeline struct {
	cfg       Config
	tracker   *task.Tracker
	remote    transfer.Remote
	db        store.Store
	spool     *snapshot.Spool
	bus       adapter.Adapter // nil disables completion events
	collector *metrics.Collector

	sem chan struct{}
	wg  sync.WaitGroup
}

// New assembles a pipeline. bus and collector may be nil.
func New(cfg Config, tracker *task.Tracker, remote transfer.Remote, db store.Store,
	spool *snapshot.Spool, bus adapter.Adapter, collector *metrics.Collector) *Pipeline {

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Pipeline{
		cfg:       cfg,
		tracker:   tracker,
		remote:    remote,
		db:        db,
		spool:     spool,
		bus:       bus,
		collector: collector,
		sem:       make(chan struct{}, cfg.Workers),
	}
}

// Tracker exposes the run registry for the request layer.
func (pl *Pipeline) Tracker() *task.Tracker { return pl.tracker }

// Store exposes the persistence layer for the request layer.
func (pl *Pipeline) Store() store.Store { return pl.db }

// Spool exposes the result snapshot spool.
func (pl *Pipeline) Spool() *snapshot.Spool { return pl.spool }

// Wait blocks until all in-flight stage jobs have finished. Used on
// shutdown after the request layer stops accepting work.
func (pl *Pipeline) Wait() { pl.wg.Wait() }

// stageFunc executes one pipeline stage against a live tracker record and
// returns the completion message.
type stageFunc func(ctx context.Context, logger *log.Logger) (string, error)

// spawn runs fn on the bounded pool. It owns the record's terminal
// transition, the completion event, and the run metrics; fn only mutates
// intermediate progress.
func (pl *Pipeline) spawn(rec *task.Progress, step types.TaskStep, fn stageFunc) {
	logger := log.NewLogger(log.TaskContext{
		PackName: rec.PackName(),
		Username: rec.Username(),
		Token:    rec.Token(),
	})

	pl.wg.Add(1)
	go func() {
		defer pl.wg.Done()
		pl.sem <- struct{}{}
		defer func() { <-pl.sem }()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		rec.SetCancel(cancel)

		pl.collector.IncTaskStarted()
		started := time.Now()

		message, err := fn(ctx, logger)
		if err != nil {
			rec.Fail(err.Error())
			pl.collector.IncTaskFailed()
			logger.Error("stage failed", map[string]any{"step": step.String(), "error": err.Error()})
		} else {
			rec.Complete(message)
			pl.collector.IncTaskCompleted()
			logger.Info("stage complete", map[string]any{"step": step.String()})
		}

		pl.publish(rec, started)
	}()
}

// publish sends the terminal-state event for the record. Failures are
// logged by the adapter caller contract; the run outcome stands regardless.
func (pl *Pipeline) publish(rec *task.Progress, started time.Time) {
	if pl.bus == nil {
		return
	}
	snap := rec.Snapshot()
	event := &adapter.TaskCompletedEvent{
		EventType:  adapter.EventTypeTaskCompleted,
		PackName:   snap.PackName,
		Username:   snap.Username,
		Token:      snap.Token,
		Step:       snap.Step.String(),
		Status:     string(snap.Status),
		Message:    snap.Message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DurationMs: time.Since(started).Milliseconds(),
	}
	if snap.Data != nil {
		event.PackVersion = snap.Data.PackVersion
		event.CleanCount = len(snap.Data.Clean)
		event.FaultyCount = len(snap.Data.Faulty)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = pl.bus.Publish(ctx, event)
}
