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
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// covarianceEpsilon bounds 1 - sum(w^2) and the effective
// degrees-of-freedom denominator away from zero.
const covarianceEpsilon = 1e-12

// pcThreshold is the fraction of the total singular-value mass a
// principal component must carry to be kept in the local-linear basis.
const pcThreshold = 0.01

// estimate is the per-member forecast distribution for one block.
//
// SamplingWeights is an explicit output of the regression step rather
// than a mutation of the kernel weights: the local-linear branch has
// already absorbed the nonuniform weighting into the regression, so it
// hands uniform 1/k weights to the sampler, while the other branches
// pass the kernel weights through unchanged.
type estimate struct {
	// mean is the forecast mean over the block's target variables.
	mean []float64

	// cov is the forecast covariance over the target variables.
	cov *mat.SymDense

	// candidates holds the k per-neighbor forecast values (k x targets),
	// the support of a multinomial draw.
	candidates *mat.Dense

	// samplingWeights is the row-stochastic distribution over candidates
	// used by multinomial sampling.
	samplingWeights []float64
}

// kernelBandwidth returns the kernel normalization lambda: the median of
// the whole block's member-by-neighbor distance matrix. It is computed
// once per block, not per member. An even count takes the mean of the
// two middle values.
func kernelBandwidth(dists *mat.Dense) float64 {
	rows, cols := dists.Dims()
	all := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		all = append(all, dists.RawRowView(i)...)
	}
	sort.Float64s(all)
	m := len(all)
	if m%2 == 1 {
		return all[m/2]
	}
	return 0.5 * (all[m/2-1] + all[m/2])
}

// kernelWeights turns the distance matrix into row-stochastic kernel
// weights w ~ exp(-d^2/lambda). Every row sums to 1. With k == 1 the
// weight is trivially 1, and a degenerate bandwidth (all distances zero)
// or a fully underflowed row falls back to the uniform limit.
func kernelWeights(dists *mat.Dense, lambda float64) *mat.Dense {
	rows, cols := dists.Dims()
	weights := mat.NewDense(rows, cols, nil)

	if cols == 1 {
		for i := 0; i < rows; i++ {
			weights.Set(i, 0, 1)
		}
		return weights
	}

	for i := 0; i < rows; i++ {
		row := weights.RawRowView(i)
		var sum float64
		for j := 0; j < cols; j++ {
			d := dists.At(i, j)
			if lambda > 0 {
				row[j] = math.Exp(-d * d / lambda)
			}
			sum += row[j]
		}
		if sum > 0 {
			floats.Scale(1/sum, row)
		} else {
			for j := range row {
				row[j] = 1 / float64(cols)
			}
		}
	}
	return weights
}

// estimateMember computes the forecast distribution for one member and
// one block, dispatching on the configured regression strategy.
//
// Inputs:
//   - b: Current block (context and target variable subsets).
//   - x: The member's full current state row.
//   - neighbors: Catalog rows of the member's k nearest analogs.
//   - weights: The member's row-stochastic kernel weights (length k).
//
// Outputs:
//   - estimate: Forecast mean, covariance, candidates, sampling weights.
//   - error: ErrUnknownRegression for an unrecognized strategy, or
//     ErrSingularGram from the local-linear branch.
func (f *Forecaster) estimateMember(b block, x []float64, neighbors []int, weights []float64) (estimate, error) {
	switch f.config.Regression {
	case RegressionLocallyConstant:
		return f.locallyConstant(b, neighbors, weights), nil
	case RegressionIncrement:
		return f.increment(b, x, neighbors, weights), nil
	case RegressionLocalLinear:
		return f.localLinear(b, x, neighbors, weights)
	default:
		return estimate{}, fmt.Errorf("%w: %d", ErrUnknownRegression, f.config.Regression)
	}
}

// locallyConstant forecasts the weighted average of the neighbors'
// successors; the covariance is the weighted sample covariance of the
// successors around that mean.
func (f *Forecaster) locallyConstant(b block, neighbors []int, weights []float64) estimate {
	k := len(neighbors)
	t := len(b.target)

	candidates := mat.NewDense(k, t, nil)
	for j, row := range neighbors {
		candidates.SetRow(j, f.catalog.successorAt(row, b.target))
	}

	mean, cov := weightedMoments(candidates, weights)
	return estimate{mean: mean, cov: cov, candidates: candidates, samplingWeights: weights}
}

// increment forecasts around the member's own state: each candidate is
// the current value plus the neighbor's successor-minus-analog increment.
func (f *Forecaster) increment(b block, x []float64, neighbors []int, weights []float64) estimate {
	k := len(neighbors)
	t := len(b.target)

	candidates := mat.NewDense(k, t, nil)
	for j, row := range neighbors {
		succ := f.catalog.successorAt(row, b.target)
		anlg := f.catalog.analogAt(row, b.target)
		cand := make([]float64, t)
		for i, v := range b.target {
			cand[i] = x[v] + succ[i] - anlg[i]
		}
		candidates.SetRow(j, cand)
	}

	mean, cov := weightedMoments(candidates, weights)
	return estimate{mean: mean, cov: cov, candidates: candidates, samplingWeights: weights}
}

// weightedMoments returns the weighted mean and bias-corrected weighted
// sample covariance of the candidate rows. The normalizer is
// 1/(1 - sum(w^2)); when that denominator degenerates (k == 1, or all
// weight on a single neighbor) the covariance collapses to zero.
func weightedMoments(candidates *mat.Dense, weights []float64) ([]float64, *mat.SymDense) {
	k, t := candidates.Dims()

	mean := make([]float64, t)
	for j := 0; j < k; j++ {
		floats.AddScaled(mean, weights[j], candidates.RawRowView(j))
	}

	cov := mat.NewSymDense(t, nil)
	denom := 1 - floats.Dot(weights, weights)
	if denom < covarianceEpsilon {
		return mean, cov
	}

	centered := mat.NewDense(k, t, nil)
	for j := 0; j < k; j++ {
		row := centered.RawRowView(j)
		floats.SubTo(row, candidates.RawRowView(j), mean)
	}
	for a := 0; a < t; a++ {
		for b := a; b < t; b++ {
			var sum float64
			for j := 0; j < k; j++ {
				sum += weights[j] * centered.At(j, a) * centered.At(j, b)
			}
			cov.SetSym(a, b, sum/denom)
		}
	}
	return mean, cov
}

// localLinear fits a weighted linear regression of the successors on the
// analog context values over a truncated principal-component basis, and
// predicts at the member's own centered, projected context value. The
// residual covariance is corrected for the effective degrees of freedom
// consumed by the regression and inflated for the leverage of the
// prediction point. Sampling weights collapse to uniform 1/k: the
// nonuniform kernel weighting is already inside the fit.
func (f *Forecaster) localLinear(b block, x []float64, neighbors []int, weights []float64) (estimate, error) {
	k := len(neighbors)
	c := len(b.context)
	t := len(b.target)

	X := mat.NewDense(k, c, nil)
	Y := mat.NewDense(k, t, nil)
	for j, row := range neighbors {
		X.SetRow(j, f.catalog.analogAt(row, b.context))
		Y.SetRow(j, f.catalog.successorAt(row, b.target))
	}

	// Weighted mean of the context values, then center.
	xm := make([]float64, c)
	for j := 0; j < k; j++ {
		floats.AddScaled(xm, weights[j], X.RawRowView(j))
	}
	Xc := mat.NewDense(k, c, nil)
	for j := 0; j < k; j++ {
		floats.SubTo(Xc.RawRowView(j), X.RawRowView(j), xm)
	}

	// Principal components of the centered context cloud; keep only
	// components above the singular-value threshold.
	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return estimate{}, fmt.Errorf("%w: SVD of centered context failed", ErrSingularGram)
	}
	sv := svd.Values(nil)
	total := floats.Sum(sv)
	var keep []int
	for i, s := range sv {
		if total > 0 && s/total > pcThreshold {
			keep = append(keep, i)
		}
	}
	var v mat.Dense
	svd.VTo(&v)
	proj := mat.NewDense(c, len(keep), nil)
	for i, col := range keep {
		for r := 0; r < c; r++ {
			proj.Set(r, i, v.At(r, col))
		}
	}

	// Design matrix on the truncated basis, with an intercept column.
	p := 1 + len(keep)
	Xr := mat.NewDense(k, p, nil)
	for j := 0; j < k; j++ {
		Xr.Set(j, 0, 1)
	}
	if len(keep) > 0 {
		var scores mat.Dense
		scores.Mul(Xc, proj)
		for j := 0; j < k; j++ {
			for i := 0; i < len(keep); i++ {
				Xr.Set(j, 1+i, scores.At(j, i))
			}
		}
	}

	// Weighted second moments and the cross moment.
	wXr := mat.NewDense(k, p, nil)
	w2Xr := mat.NewDense(k, p, nil)
	for j := 0; j < k; j++ {
		floats.ScaleTo(wXr.RawRowView(j), weights[j], Xr.RawRowView(j))
		floats.ScaleTo(w2Xr.RawRowView(j), weights[j]*weights[j], Xr.RawRowView(j))
	}
	var cxx, cxx2, cxy mat.Dense
	cxx.Mul(Xr.T(), wXr)
	cxx2.Mul(Xr.T(), w2Xr)
	cxy.Mul(Y.T(), wXr)

	var inv mat.Dense
	if err := inv.Inverse(&cxx); err != nil {
		return estimate{}, fmt.Errorf("%w: %v", ErrSingularGram, err)
	}

	// Weighted least-squares coefficients.
	var beta mat.Dense
	beta.Mul(&inv, cxy.T())

	// Prediction at the member's centered, projected context value.
	x0 := make([]float64, c)
	for i, vidx := range b.context {
		x0[i] = x[vidx] - xm[i]
	}
	x0r := mat.NewDense(1, p, nil)
	x0r.Set(0, 0, 1)
	if len(keep) > 0 {
		var score mat.Dense
		score.Mul(mat.NewDense(1, c, x0), proj)
		for i := 0; i < len(keep); i++ {
			x0r.Set(0, 1+i, score.At(0, i))
		}
	}
	var meanRow mat.Dense
	meanRow.Mul(x0r, &beta)
	mean := make([]float64, t)
	copy(mean, meanRow.RawRowView(0))

	// Residuals of the fit.
	var pred mat.Dense
	pred.Mul(Xr, &beta)
	res := mat.NewDense(k, t, nil)
	res.Sub(Y, &pred)

	// Residual covariance, corrected for the effective degrees of
	// freedom consumed by the regression.
	var dof mat.Dense
	dof.Mul(&cxx2, &inv)
	denom := 1 - mat.Trace(&dof)
	if denom < covarianceEpsilon {
		return estimate{}, fmt.Errorf("%w: effective degrees of freedom exhausted (k=%d, components=%d)", ErrSingularGram, k, len(keep))
	}
	wRes := mat.NewDense(k, t, nil)
	for j := 0; j < k; j++ {
		floats.ScaleTo(wRes.RawRowView(j), weights[j], res.RawRowView(j))
	}
	var covRaw mat.Dense
	covRaw.Mul(res.T(), wRes)

	// Leverage of the new prediction point:
	// 1 + tr(Cxx2 * inv * x0r' * x0r * inv) = 1 + u' * Cxx2 * u
	// with u = inv * x0r'.
	var u, cu, levM mat.Dense
	u.Mul(&inv, x0r.T())
	cu.Mul(&cxx2, &u)
	levM.Mul(u.T(), &cu)
	leverage := 1 + levM.At(0, 0)

	scale := leverage / denom
	cov := mat.NewSymDense(t, nil)
	for a := 0; a < t; a++ {
		for bcol := a; bcol < t; bcol++ {
			// Symmetrize: the raw product is symmetric up to roundoff.
			cov.SetSym(a, bcol, scale*0.5*(covRaw.At(a, bcol)+covRaw.At(bcol, a)))
		}
	}

	// Candidates are the prediction plus each neighbor's residual.
	candidates := mat.NewDense(k, t, nil)
	for j := 0; j < k; j++ {
		floats.AddTo(candidates.RawRowView(j), mean, res.RawRowView(j))
	}

	uniform := make([]float64, k)
	for j := range uniform {
		uniform[j] = 1 / float64(k)
	}
	return estimate{mean: mean, cov: cov, candidates: candidates, samplingWeights: uniform}, nil
}
