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
	"container/heap"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/AleutianAI/analog/pkg/validation"
)

// analogPoint is one catalog analog restricted to a block's context
// variables, keeping its catalog row for successor lookup.
type analogPoint struct {
	row   int
	coord []float64
}

// Compare implements the kdtree.Comparable interface.
func (p analogPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(analogPoint)
	return p.coord[d] - q.coord[d]
}

// Dims returns the context dimension.
func (p analogPoint) Dims() int { return len(p.coord) }

// Distance returns the squared Euclidean distance between two points.
func (p analogPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(analogPoint)
	var sum float64
	for i := range p.coord {
		d := p.coord[i] - q.coord[i]
		sum += d * d
	}
	return sum
}

// analogPoints is a collection of analogPoint satisfying kdtree.Interface.
type analogPoints []analogPoint

func (p analogPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p analogPoints) Len() int                              { return len(p) }
func (p analogPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method.
func (p analogPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(analogPlane{analogPoints: p, Dim: d}, kdtree.MedianOfRandoms(analogPlane{analogPoints: p, Dim: d}, 100))
}

// analogPlane implements sort.Interface and kdtree.SortSlicer for analogPoints.
type analogPlane struct {
	analogPoints
	kdtree.Dim
}

func (p analogPlane) Less(i, j int) bool {
	return p.analogPoints[i].coord[p.Dim] < p.analogPoints[j].coord[p.Dim]
}

func (p analogPlane) Slice(start, end int) kdtree.SortSlicer {
	return analogPlane{analogPoints: p.analogPoints[start:end], Dim: p.Dim}
}

func (p analogPlane) Swap(i, j int) {
	p.analogPoints[i], p.analogPoints[j] = p.analogPoints[j], p.analogPoints[i]
}

// neighborIndex is the spatial index over the catalog analogs restricted
// to a block's context variables. It is built once per block and shared
// read-only by the per-member stage.
//
// Thread Safety: Safe for concurrent nearest queries.
type neighborIndex struct {
	tree *kdtree.Tree
	k    int
}

// newNeighborIndex builds the kd-tree over analogs[:, context].
//
// Inputs:
//   - cat: The catalog.
//   - context: Context variable indices for this block.
//   - k: Number of neighbors per query.
//
// Outputs:
//   - *neighborIndex: Index ready for queries.
//   - error: ErrNeighborCount if k is not in [1, cat.Len()].
func newNeighborIndex(cat *Catalog, context []int, k int) (*neighborIndex, error) {
	if err := validation.ValidateNeighborCount(k, cat.Len()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNeighborCount, err)
	}

	points := make(analogPoints, cat.Len())
	for i := 0; i < cat.Len(); i++ {
		points[i] = analogPoint{row: i, coord: cat.analogAt(i, context)}
	}
	return &neighborIndex{tree: kdtree.New(points, true), k: k}, nil
}

// nearest returns the catalog rows and Euclidean distances of the k
// analogs nearest to x, ordered by increasing distance with ties broken
// by ascending catalog row.
//
// Inputs:
//   - x: Query coordinates over the block's context variables.
//
// Outputs:
//   - []int: Catalog row indices of the k nearest analogs.
//   - []float64: Matching Euclidean distances.
func (ni *neighborIndex) nearest(x []float64) ([]int, []float64) {
	keeper := kdtree.NewNKeeper(ni.k)
	ni.tree.NearestSet(keeper, analogPoint{row: -1, coord: x})

	type hit struct {
		row  int
		dist float64
	}
	hits := make([]hit, 0, ni.k)
	for keeper.Len() > 0 {
		item := heap.Pop(keeper).(kdtree.ComparableDist)
		p, ok := item.Comparable.(analogPoint)
		if !ok {
			continue // keeper sentinel
		}
		// Distance() returns squared distance
		hits = append(hits, hit{row: p.row, dist: math.Sqrt(item.Dist)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].row < hits[j].row
	})

	rows := make([]int, len(hits))
	dists := make([]float64, len(hits))
	for i, h := range hits {
		rows[i] = h.row
		dists[i] = h.dist
	}
	return rows, dists
}
