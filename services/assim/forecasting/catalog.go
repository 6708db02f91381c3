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

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/analog/pkg/validation"
)

// Catalog is the paired collection of historical analogs and their
// observed one-step-ahead successors. It is the read-only reference set
// of the forecast; a Catalog is never mutated after construction.
//
// Thread Safety: Safe for concurrent use.
type Catalog struct {
	analogs    *mat.Dense // M x n historical states
	successors *mat.Dense // M x n observed next states, row-paired
}

// NewCatalog builds a catalog from an analog/successor matrix pair.
//
// Inputs:
//   - analogs: M x n matrix of historical states.
//   - successors: M x n matrix where row i is the state observed
//     immediately after analogs row i.
//
// Outputs:
//   - *Catalog: The validated catalog.
//   - error: Non-nil if the matrices are nil, empty, or have mismatched
//     shapes. The error is reported before any forecasting begins.
func NewCatalog(analogs, successors *mat.Dense) (*Catalog, error) {
	if err := validation.ValidateCatalogPair(analogs, successors); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &Catalog{analogs: analogs, successors: successors}, nil
}

// Len returns the number of analog/successor pairs M.
func (c *Catalog) Len() int {
	rows, _ := c.analogs.Dims()
	return rows
}

// Dim returns the number of state variables n.
func (c *Catalog) Dim() int {
	_, cols := c.analogs.Dims()
	return cols
}

// analogAt returns analog row i restricted to the given variables.
func (c *Catalog) analogAt(i int, vars []int) []float64 {
	out := make([]float64, len(vars))
	for j, v := range vars {
		out[j] = c.analogs.At(i, v)
	}
	return out
}

// successorAt returns successor row i restricted to the given variables.
func (c *Catalog) successorAt(i int, vars []int) []float64 {
	out := make([]float64, len(vars))
	for j, v := range vars {
		out[j] = c.successors.At(i, v)
	}
	return out
}

// Neighborhood declares, for each state variable, which variables form
// its local context. It wraps an n x n binary adjacency matrix: entry
// (i,j) == 1 means variable j participates in variable i's context.
//
// The all-ones matrix selects global mode, in which every variable is
// forecast jointly in a single pass using the full state as context.
// Any other pattern selects local mode, one variable per pass.
//
// Thread Safety: Safe for concurrent use.
type Neighborhood struct {
	adj    *mat.Dense
	global bool
}

// NewNeighborhood builds a neighborhood from an adjacency matrix.
//
// Inputs:
//   - adj: n x n binary matrix; row i is variable i's context mask.
//
// Outputs:
//   - *Neighborhood: The validated neighborhood.
//   - error: Non-nil if the matrix is nil, non-square, non-binary, or
//     has a row with no context variables.
func NewNeighborhood(adj *mat.Dense) (*Neighborhood, error) {
	if err := validation.ValidateNeighborhood(adj, 0); err != nil {
		return nil, fmt.Errorf("invalid neighborhood: %w", err)
	}
	return &Neighborhood{adj: adj, global: allOnes(adj)}, nil
}

// GlobalNeighborhood returns the all-ones neighborhood over n variables.
//
// Inputs:
//   - n: The state dimension. Must be >= 1.
//
// Outputs:
//   - *Neighborhood: Neighborhood selecting global mode.
func GlobalNeighborhood(n int) *Neighborhood {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 1
	}
	return &Neighborhood{adj: mat.NewDense(n, n, data), global: true}
}

// Dim returns the state dimension n.
func (nb *Neighborhood) Dim() int {
	rows, _ := nb.adj.Dims()
	return rows
}

// IsGlobal reports whether the neighborhood selects global mode.
func (nb *Neighborhood) IsGlobal() bool { return nb.global }

// contextVars returns the indices of the variables in variable i's
// context, in ascending order.
func (nb *Neighborhood) contextVars(i int) []int {
	_, cols := nb.adj.Dims()
	vars := make([]int, 0, cols)
	for j := 0; j < cols; j++ {
		if nb.adj.At(i, j) == 1 {
			vars = append(vars, j)
		}
	}
	return vars
}

func allOnes(m *mat.Dense) bool {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if m.At(i, j) != 1 {
				return false
			}
		}
	}
	return true
}
