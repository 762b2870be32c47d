// Package extract implements the recursive unpacking engine: the work-stack
// traversal that discovers every archive inside a pack, classifies each
// entry, and produces the clean and faulty-named library sets.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/licenselab/packscan/archive"
	"github.com/licenselab/packscan/iox"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/metrics"
	"github.com/licenselab/packscan/types"
)

// RunError is a fatal extraction failure. The whole run aborts rather than
// silently skipping an entry: a partially populated result would
// misrepresent the pack's contents.
type RunError struct {
	// Op is the operation that failed (e.g. "walk", "manifest", "unzip").
	Op string
	// Path is the archive or directory involved.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *RunError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("extract %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Op, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Result is the output of one engine run.
type Result struct {
	// Details is the populated pack aggregate.
	Details *types.PackDetails
	// ScratchDir is the transient directory nested archives were extracted
	// into. The caller removes it once results are consumed.
	ScratchDir string
}

// Engine performs the recursive unpacking of one extracted pack directory.
// An Engine is stateless across runs and safe to reuse; concurrent runs are
// isolated because each run owns a distinct scratch directory.
type Engine struct {
	// Classifier derives bundle/type/vendor attributes. Required.
	Classifier *archive.Classifier
	// Extensions recognized as archives. Empty means archive.DefaultExtensions.
	Extensions []string
	// Logger receives per-archive progress. Required.
	Logger *log.Logger
	// Collector records extraction counters. Nil disables metrics.
	Collector *metrics.Collector
}

// Run walks the pack rooted at root and produces its PackDetails.
//
// The work stack is seeded with every top-level archive. Each popped archive
// is classified via its manifest and routed into the clean or faulty set;
// archives containing nested archives are physically extracted into a fresh
// token-named scratch subdirectory and their children pushed with the
// current archive as parent. Termination follows from bounded nesting: each
// push strictly increases depth.
//
// Cancellation is cooperative and checked between archives.
func (e *Engine) Run(ctx context.Context, root string) (res *Result, err error) {
	walker := &archive.Walker{Extensions: e.Extensions}

	seeds, err := walker.Walk(root)
	if err != nil {
		return nil, &RunError{Op: "walk", Path: root, Err: err}
	}

	details := &types.PackDetails{}
	folder := filepath.Base(root)
	if name, version, ok := archive.SplitNameVersion(folder, e.Extensions); ok {
		details.PackName = name
		details.PackVersion = version
	} else {
		details.PackName = folder
	}

	// One scratch root per run, next to the pack, named by a unique token so
	// concurrent runs never collide.
	scratch := filepath.Join(filepath.Dir(root), uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, &RunError{Op: "scratch", Path: scratch, Err: err}
	}
	// An aborted run returns no ScratchDir handle, so reclaim it here.
	defer func() {
		if err != nil {
			iox.DiscardRemove(scratch)
		}
	}()

	var stack []int
	for _, path := range seeds {
		details.Libraries = append(details.Libraries, archive.Describe(path, types.NoParent, e.Extensions))
		stack = append(stack, len(details.Libraries)-1)
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, &RunError{Op: "run", Err: err}
		}

		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		path := details.Libraries[idx].Path
		e.Collector.IncArchivesScanned()

		manifest, found, err := archive.ReadManifest(path)
		if err != nil {
			return nil, &RunError{Op: "manifest", Path: path, Err: err}
		}
		if found {
			lib := &details.Libraries[idx]
			e.Classifier.Classify(lib, manifest)
			if lib.IsBundle {
				e.Collector.IncBundles()
			}
			if lib.ValidName {
				details.Clean = append(details.Clean, idx)
			} else {
				details.Faulty = append(details.Faulty, idx)
				e.Collector.IncFaultyNames()
			}
		} else {
			// No metadata block: the entry is dropped from both sets but
			// stays in the arena as a possible parent.
			e.Collector.IncMissingManifest()
			e.Logger.Debug("archive has no manifest, dropped", map[string]any{"path": path})
		}

		nested, err := archive.ContainsArchive(path, e.Extensions)
		if err != nil {
			return nil, &RunError{Op: "probe", Path: path, Err: err}
		}
		if !nested {
			continue
		}

		extractTo := filepath.Join(scratch, uuid.NewString())
		if err := os.MkdirAll(extractTo, 0o755); err != nil {
			return nil, &RunError{Op: "scratch", Path: extractTo, Err: err}
		}
		if err := archive.Unzip(path, extractTo); err != nil {
			return nil, &RunError{Op: "unzip", Path: path, Err: err}
		}
		children, err := walker.Walk(extractTo)
		if err != nil {
			return nil, &RunError{Op: "walk", Path: extractTo, Err: err}
		}
		for _, child := range children {
			details.Libraries = append(details.Libraries, archive.Describe(child, idx, e.Extensions))
			stack = append(stack, len(details.Libraries)-1)
		}
		e.Collector.AddNestedArchives(len(children))
		e.Logger.Debug("extracted nested archives", map[string]any{
			"archive": details.Libraries[idx].FileName,
			"count":   len(children),
		})
	}

	return &Result{Details: details, ScratchDir: scratch}, nil
}
