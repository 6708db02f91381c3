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

import "errors"

// Sentinel errors for the forecasting engine.
var (
	// ErrUnknownRegression indicates an unrecognized regression strategy.
	ErrUnknownRegression = errors.New("unknown regression strategy")

	// ErrUnknownSampling indicates an unrecognized sampling strategy.
	ErrUnknownSampling = errors.New("unknown sampling strategy")

	// ErrNeighborCount indicates k is not in [1, catalog size].
	ErrNeighborCount = errors.New("neighbor count out of range")

	// ErrSingularGram indicates the weighted Gram matrix in the
	// local-linear regression could not be inverted. Increasing k
	// relative to the number of kept principal components usually
	// resolves this.
	ErrSingularGram = errors.New("singular weighted Gram matrix (try increasing k)")

	// ErrCovarianceFactorization indicates the forecast covariance could
	// not be factorized for Gaussian sampling.
	ErrCovarianceFactorization = errors.New("forecast covariance factorization failed (try increasing k)")
)
