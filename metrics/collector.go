// Package metrics provides process-wide counters for the extraction
// pipeline. The Collector is a leaf package with no internal dependencies;
// pipeline stages increment it as they run and the API exposes Snapshot().
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all collected counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Task lifecycle
	TasksStarted   int64 `json:"tasks_started"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksFailed    int64 `json:"tasks_failed"`

	// Extraction
	ArchivesScanned int64 `json:"archives_scanned"`
	NestedArchives  int64 `json:"nested_archives"`
	Bundles         int64 `json:"bundles"`
	FaultyNames     int64 `json:"faulty_names"`
	MissingManifest int64 `json:"missing_manifest"`

	// Collaborators
	RemoteDownloads int64 `json:"remote_downloads"`
	StoreUpserts    int64 `json:"store_upserts"`
}

// Collector accumulates pipeline counters.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe,
// so callers can pass a nil Collector to disable metrics.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector { return &Collector{} }

func (c *Collector) add(f func(*Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	f(&c.s)
	c.mu.Unlock()
}

// IncTaskStarted records a pipeline task start.
func (c *Collector) IncTaskStarted() { c.add(func(s *Snapshot) { s.TasksStarted++ }) }

// IncTaskCompleted records a task reaching complete status.
func (c *Collector) IncTaskCompleted() { c.add(func(s *Snapshot) { s.TasksCompleted++ }) }

// IncTaskFailed records a task reaching failed status.
func (c *Collector) IncTaskFailed() { c.add(func(s *Snapshot) { s.TasksFailed++ }) }

// IncArchivesScanned records one archive popped from the work stack.
func (c *Collector) IncArchivesScanned() { c.add(func(s *Snapshot) { s.ArchivesScanned++ }) }

// AddNestedArchives records nested archives pushed onto the work stack.
func (c *Collector) AddNestedArchives(n int) {
	c.add(func(s *Snapshot) { s.NestedArchives += int64(n) })
}

// IncBundles records an archive classified as a bundle.
func (c *Collector) IncBundles() { c.add(func(s *Snapshot) { s.Bundles++ }) }

// IncFaultyNames records a library routed to the faulty-named set.
func (c *Collector) IncFaultyNames() { c.add(func(s *Snapshot) { s.FaultyNames++ }) }

// IncMissingManifest records a library dropped for lack of a manifest.
func (c *Collector) IncMissingManifest() { c.add(func(s *Snapshot) { s.MissingManifest++ }) }

// IncRemoteDownloads records a pack download from the remote store.
func (c *Collector) IncRemoteDownloads() { c.add(func(s *Snapshot) { s.RemoteDownloads++ }) }

// IncStoreUpserts records a product/library/license upsert.
func (c *Collector) IncStoreUpserts() { c.add(func(s *Snapshot) { s.StoreUpserts++ }) }

// Snapshot returns an immutable copy of the current counters.
// Nil-receiver safe; returns a zero Snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
