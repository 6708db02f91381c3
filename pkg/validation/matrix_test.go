// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestValidateEnsemble_Valid(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	if err := ValidateEnsemble(x, 2); err != nil {
		t.Errorf("ValidateEnsemble() = %v, want nil", err)
	}
	// dim 0 skips the width check
	if err := ValidateEnsemble(x, 0); err != nil {
		t.Errorf("ValidateEnsemble(dim=0) = %v, want nil", err)
	}
}

func TestValidateEnsemble_Nil(t *testing.T) {
	if err := ValidateEnsemble(nil, 2); err == nil {
		t.Error("expected error for nil ensemble")
	}
}

func TestValidateEnsemble_WrongWidth(t *testing.T) {
	x := mat.NewDense(3, 2, nil)
	err := ValidateEnsemble(x, 5)
	if err == nil {
		t.Fatal("expected error for wrong width")
	}
	if !strings.Contains(err.Error(), "want 5") {
		t.Errorf("error should name the wanted width: %v", err)
	}
}

func TestValidateEnsemble_NonFinite(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := mat.NewDense(2, 2, []float64{1, 2, tt.value, 4})
			if err := ValidateEnsemble(x, 2); err == nil {
				t.Errorf("expected error for %s entry", tt.name)
			}
		})
	}
}

func TestValidateCatalogPair_Valid(t *testing.T) {
	analogs := mat.NewDense(4, 3, nil)
	successors := mat.NewDense(4, 3, nil)
	if err := ValidateCatalogPair(analogs, successors); err != nil {
		t.Errorf("ValidateCatalogPair() = %v, want nil", err)
	}
}

func TestValidateCatalogPair_Nil(t *testing.T) {
	if err := ValidateCatalogPair(nil, mat.NewDense(1, 1, nil)); err == nil {
		t.Error("expected error for nil analogs")
	}
	if err := ValidateCatalogPair(mat.NewDense(1, 1, nil), nil); err == nil {
		t.Error("expected error for nil successors")
	}
}

func TestValidateCatalogPair_RowMismatch(t *testing.T) {
	err := ValidateCatalogPair(mat.NewDense(4, 3, nil), mat.NewDense(5, 3, nil))
	if err == nil {
		t.Fatal("expected error for mismatched rows")
	}
	if !strings.Contains(err.Error(), "row mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCatalogPair_ColumnMismatch(t *testing.T) {
	err := ValidateCatalogPair(mat.NewDense(4, 3, nil), mat.NewDense(4, 2, nil))
	if err == nil {
		t.Fatal("expected error for mismatched columns")
	}
	if !strings.Contains(err.Error(), "column mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateNeighborhood_Valid(t *testing.T) {
	nb := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		1, 1, 1,
		0, 1, 1,
	})
	if err := ValidateNeighborhood(nb, 3); err != nil {
		t.Errorf("ValidateNeighborhood() = %v, want nil", err)
	}
}

func TestValidateNeighborhood_NonSquare(t *testing.T) {
	if err := ValidateNeighborhood(mat.NewDense(3, 2, nil), 0); err == nil {
		t.Error("expected error for non-square matrix")
	}
}

func TestValidateNeighborhood_NonBinary(t *testing.T) {
	nb := mat.NewDense(2, 2, []float64{1, 0.5, 0, 1})
	err := ValidateNeighborhood(nb, 2)
	if err == nil {
		t.Fatal("expected error for non-binary entry")
	}
	if !strings.Contains(err.Error(), "must be 0 or 1") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateNeighborhood_EmptyRow(t *testing.T) {
	nb := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	err := ValidateNeighborhood(nb, 2)
	if err == nil {
		t.Fatal("expected error for empty context row")
	}
	if !strings.Contains(err.Error(), "no context variables") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateNeighborhood_WrongDim(t *testing.T) {
	nb := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	if err := ValidateNeighborhood(nb, 3); err == nil {
		t.Error("expected error for wrong dimension")
	}
}

func TestValidateNeighborCount(t *testing.T) {
	tests := []struct {
		name        string
		k           int
		catalogSize int
		wantErr     bool
	}{
		{"minimum", 1, 10, false},
		{"maximum", 10, 10, false},
		{"zero", 0, 10, true},
		{"negative", -2, 10, true},
		{"exceeds catalog", 11, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNeighborCount(tt.k, tt.catalogSize)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
