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
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// sampleMember draws one forecast state from a member's estimated
// distribution, dispatching on the configured sampling strategy.
//
// Inputs:
//   - est: The member's forecast distribution for the current block.
//   - src: The member's private random source (see sampleSource).
//
// Outputs:
//   - []float64: One sample over the block's target variables.
//   - error: ErrUnknownSampling for an unrecognized strategy, or
//     ErrCovarianceFactorization if the Gaussian covariance cannot be
//     decomposed.
func (f *Forecaster) sampleMember(est estimate, src rand.Source) ([]float64, error) {
	switch f.config.Sampling {
	case SamplingGaussian:
		return sampleGaussian(est.mean, est.cov, src)
	case SamplingMultinomial:
		return sampleMultinomial(est.candidates, est.samplingWeights, src), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSampling, f.config.Sampling)
	}
}

// sampleGaussian draws from N(mean, cov).
//
// The fast path is a Cholesky-backed multivariate normal. A positive
// semi-definite but rank-deficient covariance (fewer neighbors than
// target variables, or a k=1 point mass) fails Cholesky, so it falls
// back to spectral sampling with negative eigenvalues clamped to zero,
// matching the distribution's degenerate limit. A zero covariance
// returns the mean itself.
func sampleGaussian(mean []float64, cov *mat.SymDense, src rand.Source) ([]float64, error) {
	t := len(mean)

	if isZeroSym(cov) {
		out := make([]float64, t)
		copy(out, mean)
		return out, nil
	}

	if normal, ok := distmv.NewNormal(mean, cov, src); ok {
		return normal.Rand(nil), nil
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("%w: eigendecomposition did not converge", ErrCovarianceFactorization)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	std := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	z := make([]float64, t)
	for i, v := range vals {
		if v > 0 {
			z[i] = math.Sqrt(v) * std.Rand()
		}
	}

	out := make([]float64, t)
	copy(out, mean)
	for i := 0; i < t; i++ {
		for j := 0; j < t; j++ {
			out[i] += vecs.At(i, j) * z[j]
		}
	}
	return out, nil
}

// sampleMultinomial draws one candidate row according to the sampling
// weights. The output is always one of the k candidate forecasts, never
// an interpolated value.
func sampleMultinomial(candidates *mat.Dense, weights []float64, src rand.Source) []float64 {
	cat := distuv.NewCategorical(weights, src)
	idx := int(cat.Rand())

	_, t := candidates.Dims()
	out := make([]float64, t)
	copy(out, candidates.RawRowView(idx))
	return out
}

// sampleSource derives a member's private random source from the
// forecast seed, the block index, and the member index. Each member
// gets an independent deterministic stream, so results under a fixed
// seed do not depend on whether the member stage runs serial or
// parallel.
func sampleSource(seed uint64, blockIdx, member int) rand.Source {
	h := seed
	h ^= (uint64(blockIdx) + 1) * 0x9E3779B97F4A7C15
	h ^= (uint64(member) + 1) * 0xBF58476D1CE4E5B9
	// splitmix64 finalizer
	h ^= h >> 30
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 27
	h *= 0x94D049BB133111EB
	h ^= h >> 31
	return rand.NewSource(h)
}

func isZeroSym(m *mat.SymDense) bool {
	n := m.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}
