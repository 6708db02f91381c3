// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for caller-supplied
// numeric data.
//
// The forecasting engine consumes matrices built by external
// collaborators (catalog loaders, the outer assimilation loop). These
// validators reject malformed inputs at the API boundary so that no
// partially processed output is ever produced from inconsistent shapes.
package validation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ValidateEnsemble validates a state ensemble matrix.
//
// An ensemble is an N x n matrix of N members over n state variables.
// All entries must be finite.
//
// Inputs:
//   - x: The ensemble matrix.
//   - dim: The required number of state variables n (0 skips the check).
//
// Outputs:
//   - error: Non-nil if the ensemble is nil, empty, of the wrong width,
//     or contains NaN/Inf entries.
func ValidateEnsemble(x *mat.Dense, dim int) error {
	if x == nil {
		return fmt.Errorf("ensemble cannot be nil")
	}
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("ensemble cannot be empty: got %dx%d", rows, cols)
	}
	if dim > 0 && cols != dim {
		return fmt.Errorf("ensemble has %d state variables, want %d", cols, dim)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := x.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("ensemble entry (%d,%d) is not finite: %v", i, j, v)
			}
		}
	}
	return nil
}

// ValidateCatalogPair validates the analog/successor matrix pair.
//
// Both matrices must be non-nil, non-empty and share the same shape:
// successors[i] is defined as the one-step-ahead outcome of analogs[i],
// so the pairing is row-by-row and the state dimension must agree.
//
// Inputs:
//   - analogs: M x n matrix of historical states.
//   - successors: M x n matrix of observed next states.
//
// Outputs:
//   - error: Non-nil on nil, empty, or mismatched matrices.
func ValidateCatalogPair(analogs, successors *mat.Dense) error {
	if analogs == nil || successors == nil {
		return fmt.Errorf("catalog matrices cannot be nil")
	}
	ar, ac := analogs.Dims()
	sr, sc := successors.Dims()
	if ar == 0 || ac == 0 {
		return fmt.Errorf("catalog cannot be empty: got %dx%d analogs", ar, ac)
	}
	if ar != sr {
		return fmt.Errorf("catalog row mismatch: %d analogs vs %d successors", ar, sr)
	}
	if ac != sc {
		return fmt.Errorf("catalog column mismatch: %d analog variables vs %d successor variables", ac, sc)
	}
	return nil
}

// ValidateNeighborCount validates the neighbor count k against the
// catalog size: a query for k nearest analogs needs 1 <= k <= M.
//
// Inputs:
//   - k: Requested neighbor count.
//   - catalogSize: Number of analog rows M.
//
// Outputs:
//   - error: Non-nil if k is outside [1, catalogSize].
func ValidateNeighborCount(k, catalogSize int) error {
	if k < 1 || k > catalogSize {
		return fmt.Errorf("k=%d outside [1, %d]", k, catalogSize)
	}
	return nil
}

// ValidateNeighborhood validates a neighborhood adjacency matrix.
//
// The matrix must be square n x n and strictly binary. Row i declares
// which variables participate in variable i's local context, so every
// row must contain at least one 1 (a variable always has a context).
//
// Inputs:
//   - nb: The n x n adjacency matrix.
//   - dim: The required state dimension n (0 skips the check).
//
// Outputs:
//   - error: Non-nil if the matrix is nil, non-square, non-binary, of
//     the wrong size, or has an empty row.
func ValidateNeighborhood(nb *mat.Dense, dim int) error {
	if nb == nil {
		return fmt.Errorf("neighborhood cannot be nil")
	}
	rows, cols := nb.Dims()
	if rows != cols {
		return fmt.Errorf("neighborhood must be square: got %dx%d", rows, cols)
	}
	if dim > 0 && rows != dim {
		return fmt.Errorf("neighborhood is %dx%d, want %dx%d", rows, cols, dim, dim)
	}
	for i := 0; i < rows; i++ {
		nonZero := 0
		for j := 0; j < cols; j++ {
			switch nb.At(i, j) {
			case 0:
			case 1:
				nonZero++
			default:
				return fmt.Errorf("neighborhood entry (%d,%d) must be 0 or 1: got %v", i, j, nb.At(i, j))
			}
		}
		if nonZero == 0 {
			return fmt.Errorf("neighborhood row %d has no context variables", i)
		}
	}
	return nil
}
