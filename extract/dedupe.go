package extract

import "github.com/licenselab/packscan/types"

// RemoveDuplicates collapses faulty-named slots that resolved to the same
// derived name, keeping the first occurrence. Used before presenting the
// faulty set for user correction, so the same logical library is not
// corrected twice.
//
// Pure with respect to the arena, stable with respect to input order, and
// idempotent.
func RemoveDuplicates(details *types.PackDetails, slots []int) []int {
	seen := make(map[string]bool, len(slots))
	unique := make([]int, 0, len(slots))
	for _, slot := range slots {
		lib := details.At(slot)
		if lib == nil || seen[lib.Name] {
			continue
		}
		seen[lib.Name] = true
		unique = append(unique, slot)
	}
	return unique
}
