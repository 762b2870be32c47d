// Package task tracks asynchronous pipeline runs. The Tracker is a
// process-wide registry keyed by pack name; each entry is a mutable
// Progress record owned by exactly one worker at a time.
package task

import (
	"context"
	"sync"

	"github.com/licenselab/packscan/types"
)

// Progress is the mutable record for one pipeline run. The executing worker
// updates status fields in place and publishes result aggregates whole via
// Attach; pollers read consistent snapshots. All methods are safe for
// concurrent use.
type Progress struct {
	mu       sync.RWMutex
	username string
	token    string
	packName string
	status   types.TaskStatus
	message  string
	step     types.TaskStep
	data     *types.PackDetails
	cancel   context.CancelFunc
}

// PackName returns the pack this record tracks.
func (p *Progress) PackName() string { return p.packName }

// Token returns the opaque task token generated at creation.
func (p *Progress) Token() string { return p.token }

// Username returns the user who triggered the run.
func (p *Progress) Username() string { return p.username }

// SetStep records the pipeline stage now executing and resets the status
// to running (a later stage reuses the record of the extraction run).
func (p *Progress) SetStep(step types.TaskStep, message string) {
	p.mu.Lock()
	p.step = step
	p.status = types.TaskStatusRunning
	p.message = message
	p.mu.Unlock()
}

// SetMessage updates the human-readable current-step text.
func (p *Progress) SetMessage(message string) {
	p.mu.Lock()
	p.message = message
	p.mu.Unlock()
}

// Complete transitions the record to the complete status.
func (p *Progress) Complete(message string) {
	p.mu.Lock()
	p.status = types.TaskStatusComplete
	p.message = message
	p.mu.Unlock()
}

// Fail transitions the record to the failed status with a descriptive
// message. No partial result is attached alongside a failure.
func (p *Progress) Fail(message string) {
	p.mu.Lock()
	p.status = types.TaskStatusFailed
	p.message = message
	p.mu.Unlock()
}

// Attach stores the run's result payload. The record takes ownership of
// data; the caller must not mutate it afterwards.
func (p *Progress) Attach(data *types.PackDetails) {
	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
}

// Data returns a private deep copy of the attached result, or nil before
// extraction completes. Pipeline stages mutate their copy and publish the
// updated aggregate back via Attach; pollers can encode theirs freely.
func (p *Progress) Data() *types.PackDetails {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data.Clone()
}

// Status returns the current lifecycle state.
func (p *Progress) Status() types.TaskStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// SetCancel installs the cancellation token for the executing worker.
// Replaces the previous stage's token, if any.
func (p *Progress) SetCancel(cancel context.CancelFunc) {
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
}

// Cancel requests cooperative cancellation of the executing worker.
// Best effort: a worker between cancellation checks finishes its current
// archive first. No-op when no worker is attached.
func (p *Progress) Cancel() {
	p.mu.RLock()
	cancel := p.cancel
	p.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Snapshot returns an immutable view of the record for serialization.
// Data is deep-copied so encoding never races with a stage publishing an
// updated aggregate.
func (p *Progress) Snapshot() types.TaskSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return types.TaskSnapshot{
		Username: p.username,
		Token:    p.token,
		PackName: p.packName,
		Status:   p.status,
		Message:  p.message,
		Step:     p.step,
		Data:     p.data.Clone(),
	}
}
