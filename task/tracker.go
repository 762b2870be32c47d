package task

import (
	"sync"

	"github.com/google/uuid"

	"github.com/licenselab/packscan/types"
)

// Tracker is the registry mapping pack names to Progress records.
//
// It is an explicit service object constructed once at process start and
// passed by handle, never a hidden singleton. A single shared-exclusive
// lock guards the registry map: the registry, not the record mutation path
// within one run, is the contended resource.
type Tracker struct {
	mu    sync.RWMutex
	tasks map[string]*Progress
}

// NewTracker creates an empty registry.
func NewTracker() *Tracker {
	return &Tracker{tasks: make(map[string]*Progress)}
}

// Create generates a token and stores a new running record for packName,
// returning it. Any prior record for the same key is overwritten
// (last-writer-wins): callers are expected to check Exists first, this
// layer does not enforce single-flight. An orphaned worker keeps mutating
// its old record unobserved.
func (t *Tracker) Create(username, packName string) *Progress {
	p := &Progress{
		username: username,
		token:    uuid.NewString(),
		packName: packName,
		status:   types.TaskStatusRunning,
	}
	t.mu.Lock()
	t.tasks[packName] = p
	t.mu.Unlock()
	return p
}

// Get returns the current record for packName, or (nil, false).
func (t *Tracker) Get(packName string) (*Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.tasks[packName]
	return p, ok
}

// Exists reports whether a record is tracked for packName.
func (t *Tracker) Exists(packName string) bool {
	_, ok := t.Get(packName)
	return ok
}

// Delete removes the record for packName. No-op when absent.
func (t *Tracker) Delete(packName string) {
	t.mu.Lock()
	delete(t.tasks, packName)
	t.mu.Unlock()
}
