package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/licenselab/packscan/types"
)

// Memory is an in-process Store used by tests and one-shot CLI runs.
type Memory struct {
	mu        sync.Mutex
	nextID    int64
	packs     map[[2]string]int64    // (name, version) -> id
	libraries map[[3]string]int64    // (name, version, type) -> id
	links     map[[2]int64]struct{}  // (pack id, library id)
	picks     map[int64]string       // library id -> license key
	licenses  map[string]License
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		nextID:    1,
		packs:     make(map[[2]string]int64),
		libraries: make(map[[3]string]int64),
		links:     make(map[[2]int64]struct{}),
		picks:     make(map[int64]string),
		licenses:  make(map[string]License),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) UpsertPack(_ context.Context, name, version string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{name, version}
	if id, ok := m.packs[key]; ok {
		return id, nil
	}
	id := m.nextID
	m.nextID++
	m.packs[key] = id
	return id, nil
}

func (m *Memory) UpsertLibrary(_ context.Context, lib *types.Library) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [3]string{lib.Name, lib.Version, string(lib.Type)}
	if id, ok := m.libraries[key]; ok {
		return id, nil
	}
	id := m.nextID
	m.nextID++
	m.libraries[key] = id
	return id, nil
}

func (m *Memory) LinkPackLibrary(_ context.Context, packID, libraryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[[2]int64{packID, libraryID}] = struct{}{}
	return nil
}

func (m *Memory) LibraryLicense(_ context.Context, libraryID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.picks[libraryID]
	return key, ok, nil
}

func (m *Memory) SetLibraryLicense(_ context.Context, libraryID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.licenses[key]; !ok {
		return fmt.Errorf("license %q: %w", key, ErrNotFound)
	}
	m.picks[libraryID] = key
	return nil
}

func (m *Memory) AddLicense(_ context.Context, lic License) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.licenses[lic.Key] = lic
	return nil
}

func (m *Memory) Licenses(_ context.Context) ([]License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]License, 0, len(m.licenses))
	for _, lic := range m.licenses {
		out = append(out, lic)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) License(_ context.Context, key string) (License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lic, ok := m.licenses[key]
	if !ok {
		return License{}, fmt.Errorf("license %q: %w", key, ErrNotFound)
	}
	return lic, nil
}
