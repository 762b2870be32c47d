package extract_test

import (
	"testing"

	"github.com/licenselab/packscan/extract"
	"github.com/licenselab/packscan/types"
)

func dedupeFixture() *types.PackDetails {
	return &types.PackDetails{
		Libraries: []types.Library{
			{Name: "lib-bar", FileName: "lib-bar.mar", Parent: types.NoParent},
			{Name: "lib-baz", FileName: "lib-baz.jar", Parent: types.NoParent},
			{Name: "lib-bar", FileName: "lib-bar.jar", Parent: 0},
			{Name: "lib-qux", FileName: "lib-qux.jar", Parent: types.NoParent},
		},
		Faulty: []int{0, 1, 2, 3},
	}
}

func TestRemoveDuplicates_FirstOccurrenceWins(t *testing.T) {
	p := dedupeFixture()

	got := extract.RemoveDuplicates(p, p.Faulty)
	want := []int{0, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("result = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result = %v, want %v", got, want)
		}
	}
}

func TestRemoveDuplicates_Idempotent(t *testing.T) {
	p := dedupeFixture()

	once := extract.RemoveDuplicates(p, p.Faulty)
	twice := extract.RemoveDuplicates(p, once)
	if len(once) != len(twice) {
		t.Fatalf("not idempotent: %v then %v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("not idempotent: %v then %v", once, twice)
		}
	}
}

func TestRemoveDuplicates_UniqueNames(t *testing.T) {
	p := dedupeFixture()

	got := extract.RemoveDuplicates(p, p.Faulty)
	if len(got) > len(p.Faulty) {
		t.Fatalf("output larger than input: %v", got)
	}
	seen := map[string]bool{}
	for _, slot := range got {
		name := p.At(slot).Name
		if seen[name] {
			t.Fatalf("duplicate name %q in output %v", name, got)
		}
		seen[name] = true
	}
}

func TestRemoveDuplicates_Empty(t *testing.T) {
	p := &types.PackDetails{}
	if got := extract.RemoveDuplicates(p, nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
