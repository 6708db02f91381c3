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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func forEachForecaster(t *testing.T, parallel bool) *Forecaster {
	t.Helper()
	catalog := lineCatalog(t)
	config := DefaultConfig()
	config.K = 2
	config.Parallel.Enabled = parallel
	config.Parallel.MaxConcurrency = 2
	return newTestForecaster(t, catalog, config)
}

func TestForEachMember_SerialVisitsInOrder(t *testing.T) {
	f := forEachForecaster(t, false)

	var visited []int
	err := f.forEachMember(context.Background(), 5, func(i int) error {
		visited = append(visited, i)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range visited {
		if v != i {
			t.Fatalf("visited = %v, want ascending order", visited)
		}
	}
}

func TestForEachMember_SerialStopsOnError(t *testing.T) {
	f := forEachForecaster(t, false)

	boom := errors.New("boom")
	var calls int
	err := f.forEachMember(context.Background(), 10, func(i int) error {
		calls++
		if i == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestForEachMember_ParallelVisitsAll(t *testing.T) {
	f := forEachForecaster(t, true)

	var mu sync.Mutex
	seen := make(map[int]bool)
	err := f.forEachMember(context.Background(), 20, func(i int) error {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 20 {
		t.Errorf("visited %d members, want 20", len(seen))
	}
}

func TestForEachMember_ParallelRespectsLimit(t *testing.T) {
	f := forEachForecaster(t, true)

	var inFlight, peak atomic.Int64
	err := f.forEachMember(context.Background(), 30, func(i int) error {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestForEachMember_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, parallel := range []bool{false, true} {
		f := forEachForecaster(t, parallel)
		err := f.forEachMember(ctx, 5, func(i int) error { return nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("parallel=%v: error = %v, want context.Canceled", parallel, err)
		}
	}
}
