package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/licenselab/packscan/archive"
	"github.com/licenselab/packscan/extract"
	"github.com/licenselab/packscan/iox"
	"github.com/licenselab/packscan/license"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/store"
	"github.com/licenselab/packscan/task"
	"github.com/licenselab/packscan/types"
)

// Correction is a user-supplied name/version fix for one faulty library,
// addressed by its arena slot.
type Correction struct {
	Slot    int    `json:"slot"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// LicensePick assigns a license key to one library, addressed by its arena
// slot.
type LicensePick struct {
	Slot int    `json:"slot"`
	Key  string `json:"key"`
}

// StartExtraction begins the extraction stage for an uploaded pack and
// returns the task token. Returns ErrTaskExists when a run is already
// tracked for the pack; the caller polls or deletes that one first.
func (pl *Pipeline) StartExtraction(username, packName string) (string, error) {
	if pl.tracker.Exists(packName) {
		return "", fmt.Errorf("pack %q: %w", packName, ErrTaskExists)
	}
	rec := pl.tracker.Create(username, packName)

	pl.spawn(rec, types.StepExtraction, func(ctx context.Context, logger *log.Logger) (string, error) {
		rec.SetStep(types.StepExtraction, "downloading pack")
		packPath := filepath.Join(pl.cfg.WorkDir, packName)
		if err := pl.remote.Download(ctx, packName, packPath); err != nil {
			return "", fmt.Errorf("download pack: %w", err)
		}
		pl.collector.IncRemoteDownloads()

		rec.SetMessage("unzipping pack")
		root := pl.unpackRoot(packName)
		if err := archive.Unzip(packPath, root); err != nil {
			return "", fmt.Errorf("unzip pack: %w", err)
		}

		rec.SetMessage("scanning archives")
		engine := &extract.Engine{
			Classifier: &archive.Classifier{
				VendorName:   pl.cfg.VendorName,
				VendorPrefix: pl.cfg.VendorPrefix,
				VendorToken:  pl.cfg.VendorToken,
			},
			Extensions: pl.cfg.Extensions,
			Logger:     logger,
			Collector:  pl.collector,
		}
		res, err := engine.Run(ctx, root)
		if err != nil {
			return "", err
		}
		iox.DiscardRemove(res.ScratchDir)

		res.Details.Faulty = extract.RemoveDuplicates(res.Details, res.Details.Faulty)
		rec.Attach(res.Details)
		return fmt.Sprintf("extraction complete: %d clean, %d faulty",
			len(res.Details.Clean), len(res.Details.Faulty)), nil
	})

	return rec.Token(), nil
}

// StartNameUpdate applies the user's corrections to the faulty set, promotes
// everything into the clean set, persists the pack and its libraries, and
// computes the license-missing split. Asynchronous; poll the task for the
// outcome.
func (pl *Pipeline) StartNameUpdate(packName string, corrections []Correction) error {
	rec, details, err := pl.tracked(packName)
	if err != nil {
		return err
	}

	pl.spawn(rec, types.StepDatabaseUpdate, func(ctx context.Context, logger *log.Logger) (string, error) {
		rec.SetStep(types.StepDatabaseUpdate, "applying name corrections")
		for _, c := range corrections {
			lib := details.At(c.Slot)
			if lib == nil {
				return "", fmt.Errorf("correction addresses unknown slot %d", c.Slot)
			}
			if c.Name != "" {
				lib.Name = c.Name
			}
			if c.Version != "" {
				lib.Version = c.Version
			}
			lib.ValidName = true
		}
		details.PromoteAll()

		rec.SetMessage("persisting libraries")
		packID, err := pl.db.UpsertPack(ctx, details.PackName, details.PackVersion)
		if err != nil {
			return "", err
		}
		details.PackID = packID

		details.MissingComponent = nil
		details.MissingLibrary = nil
		for _, slot := range details.Clean {
			lib := details.At(slot)
			libID, err := pl.db.UpsertLibrary(ctx, lib)
			if err != nil {
				return "", err
			}
			pl.collector.IncStoreUpserts()
			if err := pl.db.LinkPackLibrary(ctx, packID, libID); err != nil {
				return "", err
			}

			key, ok, err := pl.db.LibraryLicense(ctx, libID)
			if err != nil {
				return "", err
			}
			if ok {
				lib.LicenseKey = key
				continue
			}
			// Vendor-built artifacts and third-party libraries are fixed by
			// different teams, so the missing set is split by origin.
			if lib.Vendor != "" {
				details.MissingComponent = append(details.MissingComponent, slot)
			} else {
				details.MissingLibrary = append(details.MissingLibrary, slot)
			}
		}

		rec.Attach(details)
		return fmt.Sprintf("database update complete: %d licenses missing",
			len(details.MissingComponent)+len(details.MissingLibrary)), nil
	})

	return nil
}

// StartLicenseUpdate persists the user's license picks for libraries in the
// missing sets. Asynchronous; poll the task for the outcome.
func (pl *Pipeline) StartLicenseUpdate(packName string, picks []LicensePick) error {
	rec, details, err := pl.tracked(packName)
	if err != nil {
		return err
	}

	pl.spawn(rec, types.StepLicenseInsertion, func(ctx context.Context, logger *log.Logger) (string, error) {
		rec.SetStep(types.StepLicenseInsertion, "persisting license picks")
		for _, pick := range picks {
			lib := details.At(pick.Slot)
			if lib == nil {
				return "", fmt.Errorf("license pick addresses unknown slot %d", pick.Slot)
			}
			libID, err := pl.db.UpsertLibrary(ctx, lib)
			if err != nil {
				return "", err
			}
			if err := pl.db.SetLibraryLicense(ctx, libID, pick.Key); err != nil {
				return "", err
			}
			lib.LicenseKey = pick.Key
		}

		// Rebuild the missing sets from what is still unassigned.
		missingComponents, missingLibraries := details.MissingComponent, details.MissingLibrary
		details.MissingComponent = nil
		details.MissingLibrary = nil
		for _, slot := range missingComponents {
			if details.At(slot).LicenseKey == "" {
				details.MissingComponent = append(details.MissingComponent, slot)
			}
		}
		for _, slot := range missingLibraries {
			if details.At(slot).LicenseKey == "" {
				details.MissingLibrary = append(details.MissingLibrary, slot)
			}
		}

		rec.Attach(details)
		return fmt.Sprintf("license insertion complete: %d still missing",
			len(details.MissingComponent)+len(details.MissingLibrary)), nil
	})

	return nil
}

// GenerateLicenseFile renders the license document for a completed run,
// spools the result snapshot, and cleans the pack's local workspace and
// remote upload. Synchronous: the document is small and the caller wants
// the path. Returns the written file path.
func (pl *Pipeline) GenerateLicenseFile(ctx context.Context, packName string) (string, error) {
	_, details, err := pl.tracked(packName)
	if err != nil {
		return "", err
	}

	doc := license.Document{
		PackName:    details.PackName,
		PackVersion: details.PackVersion,
		VendorName:  pl.cfg.VendorName,
	}
	seen := map[string]bool{}
	for _, slot := range details.Clean {
		lib := details.At(slot)
		if lib.LicenseKey == "" {
			// Unresolved libraries are not listed. The missing sets tell the
			// user what still needs a pick.
			continue
		}
		doc.Entries = append(doc.Entries, license.Entry{
			Name: lib.FileName,
			Type: string(lib.Type),
			Key:  lib.LicenseKey,
		})
		if seen[lib.LicenseKey] {
			continue
		}
		seen[lib.LicenseKey] = true
		lic, err := pl.db.License(ctx, lib.LicenseKey)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				lic = store.License{Key: lib.LicenseKey}
			} else {
				return "", err
			}
		}
		doc.Index = append(doc.Index, lic)
	}

	path, err := license.WriteFile(pl.cfg.LicenseDir, doc)
	if err != nil {
		return "", err
	}

	if pl.spool != nil {
		if err := pl.spool.Write(packName, details); err != nil {
			return "", err
		}
	}

	// Local workspace and the remote upload are finished with.
	iox.DiscardRemove(pl.unpackRoot(packName))
	_ = os.Remove(filepath.Join(pl.cfg.WorkDir, packName))
	if err := pl.remote.Delete(ctx, packName); err != nil {
		return "", err
	}

	return path, nil
}

// unpackRoot is the directory a pack is unzipped into. Roots live under a
// dedicated subdirectory so an upload named without an extension never
// collides with its own downloaded file, and the directory base keeps the
// name-version stem the extraction engine reads the pack identity from.
func (pl *Pipeline) unpackRoot(packName string) string {
	return filepath.Join(pl.cfg.WorkDir, "unpacked", strings.TrimSuffix(packName, ".zip"))
}

// tracked resolves the record and a private copy of the attached result for
// packName. Stages mutate the copy and publish it back with Attach.
func (pl *Pipeline) tracked(packName string) (*task.Progress, *types.PackDetails, error) {
	rec, ok := pl.tracker.Get(packName)
	if !ok {
		return nil, nil, fmt.Errorf("pack %q: %w", packName, ErrNoTask)
	}
	details := rec.Data()
	if details == nil {
		return nil, nil, fmt.Errorf("pack %q: %w", packName, ErrNoResult)
	}
	return rec, details, nil
}
