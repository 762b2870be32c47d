package types

// PackDetails is the aggregate result of one extraction run.
//
// Libraries is an arena: every discovered Library lives here exactly once
// and all other fields reference records by slot index. Clean and Faulty are
// disjoint and together cover every record with a readable manifest; records
// without one stay in the arena (they may be parents) but are indexed by
// neither set.
type PackDetails struct {
	// PackName and PackVersion are derived from the top-level folder name.
	PackName    string `json:"pack_name" msgpack:"pack_name"`
	PackVersion string `json:"pack_version" msgpack:"pack_version"`
	// PackID is assigned by the persistence stage, zero at creation.
	PackID int64 `json:"pack_id,omitempty" msgpack:"pack_id"`
	// Libraries is the arena of discovered libraries.
	Libraries []Library `json:"libraries" msgpack:"libraries"`
	// Clean holds arena slots of cleanly named libraries.
	Clean []int `json:"clean" msgpack:"clean"`
	// Faulty holds arena slots of libraries whose name/version could not be
	// derived from the filename.
	Faulty []int `json:"faulty" msgpack:"faulty"`
	// MissingComponent holds arena slots of vendor-owned libraries with no
	// known license. Filled by the database-update stage.
	MissingComponent []int `json:"missing_component,omitempty" msgpack:"missing_component"`
	// MissingLibrary holds arena slots of third-party libraries with no
	// known license. Filled by the database-update stage.
	MissingLibrary []int `json:"missing_library,omitempty" msgpack:"missing_library"`
}

// Clone returns a deep copy of the aggregate. Pipeline stages mutate a
// private clone and publish it whole, so readers never observe in-place
// writes.
func (p *PackDetails) Clone() *PackDetails {
	if p == nil {
		return nil
	}
	c := *p
	c.Libraries = append([]Library(nil), p.Libraries...)
	c.Clean = append([]int(nil), p.Clean...)
	c.Faulty = append([]int(nil), p.Faulty...)
	c.MissingComponent = append([]int(nil), p.MissingComponent...)
	c.MissingLibrary = append([]int(nil), p.MissingLibrary...)
	return &c
}

// At returns the library at the given arena slot, or nil when out of range.
func (p *PackDetails) At(slot int) *Library {
	if slot < 0 || slot >= len(p.Libraries) {
		return nil
	}
	return &p.Libraries[slot]
}

// ParentOf returns the containing archive of the library at slot, or nil for
// a top-level library.
func (p *PackDetails) ParentOf(slot int) *Library {
	lib := p.At(slot)
	if lib == nil || !lib.HasParent() {
		return nil
	}
	return p.At(lib.Parent)
}

// CleanLibs resolves the clean slot list to library records.
func (p *PackDetails) CleanLibs() []*Library { return p.resolve(p.Clean) }

// FaultyLibs resolves the faulty slot list to library records.
func (p *PackDetails) FaultyLibs() []*Library { return p.resolve(p.Faulty) }

func (p *PackDetails) resolve(slots []int) []*Library {
	libs := make([]*Library, 0, len(slots))
	for _, s := range slots {
		if lib := p.At(s); lib != nil {
			libs = append(libs, lib)
		}
	}
	return libs
}

// PromoteAll moves every faulty slot into the Clean list. Called once the
// database-update stage has applied user-supplied name corrections.
func (p *PackDetails) PromoteAll() {
	p.Clean = append(p.Clean, p.Faulty...)
	p.Faulty = nil
}
