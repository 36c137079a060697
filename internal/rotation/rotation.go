// Package rotation estimates where the live match sits inside a server's
// map rotation. CRCON reports only the current and next map names, never a
// rotation index, and since U13 a map may appear in a rotation more than
// once — so the position is a guess, and sometimes an ambiguous one. The
// estimator returns every plausible index instead of picking a single one.
package rotation

import "github.com/hlltools/server-status/internal/gamemap"

// CurrentPositions returns the candidate rotation indexes for the current
// map.
//
// While the server is between matches there is no meaningful position and
// the result is empty. If the current map occurs exactly once the answer is
// exact. Otherwise every occurrence of the next map nominates the index
// just before it (wrapping from 0 to the end) as a candidate; a repeated
// next map yields several candidates, which is genuine ambiguity the caller
// must render as such.
func CurrentPositions(rot []gamemap.Map, current, next gamemap.Map) []int {
	if current.IsBetweenMatches() {
		return nil
	}

	count := 0
	only := -1
	for i, m := range rot {
		if m.Raw() == current.Raw() {
			count++
			only = i
		}
	}
	if count == 1 {
		return []int{only}
	}

	var positions []int
	for i, m := range rot {
		if m.Raw() != next.Raw() {
			continue
		}
		if i == 0 {
			positions = append(positions, len(rot)-1)
		} else {
			positions = append(positions, i-1)
		}
	}
	return positions
}

// NextPositions maps each candidate current position to the index that
// follows it, wrapping from the last rotation slot back to 0.
func NextPositions(current []int, rotationLen int) []int {
	positions := make([]int, 0, len(current))
	for _, p := range current {
		if p == rotationLen-1 {
			positions = append(positions, 0)
		} else {
			positions = append(positions, p+1)
		}
	}
	return positions
}
