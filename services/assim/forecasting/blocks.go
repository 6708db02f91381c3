// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package forecasting

// block is one unit of the forecast pass: the context variables used to
// measure distance between states, and the target variables whose
// forecast columns this pass writes. Blocks write disjoint target
// columns, so they are independent of each other.
type block struct {
	// context holds the variable indices used for neighbor distance.
	context []int

	// target holds the variable indices being forecast.
	// In global mode target == context (all variables); in local mode
	// it is a single variable.
	target []int
}

// blocks expands the neighborhood into the ordered list of forecast
// blocks. Global mode yields a single block covering all variables.
// Local mode yields one block per variable, in index order, with the
// variable's neighborhood row as context.
func (nb *Neighborhood) blocks() []block {
	n := nb.Dim()
	if nb.IsGlobal() {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return []block{{context: all, target: all}}
	}

	out := make([]block, n)
	for i := 0; i < n; i++ {
		out[i] = block{
			context: nb.contextVars(i),
			target:  []int{i},
		}
	}
	return out
}
