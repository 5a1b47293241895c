package eval

import (
	"testing"

	"github.com/promptseg/promptseg/pkg/geom"
	"github.com/stretchr/testify/require"
)

func boxPoly(x, y, w, h float32) geom.Polygon {
	return geom.Polygon{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

func boxInstance(x, y, w, h, score float32) Instance {
	return Instance{Polygon: boxPoly(x, y, w, h).Flat(), Score: score}
}

func TestMatchOneToOne(t *testing.T) {
	gt := []GroundTruth{
		{ID: 1, Polygon: boxPoly(0, 0, 100, 100)},
		{ID: 2, Polygon: boxPoly(200, 0, 100, 100)},
	}
	instances := []Instance{
		boxInstance(0, 0, 100, 100, 0.9),   // exact hit on gt 1
		boxInstance(205, 0, 100, 100, 0.8), // near hit on gt 2
		boxInstance(500, 500, 50, 50, 0.7), // spurious
	}
	result := MatchInstances(7, gt, instances, 0.5)
	require.Equal(t, int64(7), result.ImageID)
	require.Len(t, result.Pairs, 2)
	require.Equal(t, int64(1), result.Pairs[0].GroundTruthID)
	require.Equal(t, 0, result.Pairs[0].PredIndex)
	require.Equal(t, float32(1), result.Pairs[0].IoU)
	require.Equal(t, int64(2), result.Pairs[1].GroundTruthID)
	require.Equal(t, 1, result.Pairs[1].PredIndex)
	require.Empty(t, result.UnmatchedGT)
	require.Equal(t, []int{2}, result.UnmatchedPred)
}

func TestMatchAgainstLaterGroundTruth(t *testing.T) {
	// The prediction covers only the last of several far-apart ground
	// truths, so the spatial filter returns a single non-prefix item.
	// The candidate must be scored against that item, not against
	// whatever sits at position 0 of the filtered list.
	gt := []GroundTruth{
		{ID: 1, Polygon: boxPoly(0, 0, 100, 100)},
		{ID: 2, Polygon: boxPoly(1000, 0, 100, 100)},
		{ID: 3, Polygon: boxPoly(2000, 0, 100, 100)},
	}
	instances := []Instance{boxInstance(2000, 0, 100, 100, 0.9)}
	result := MatchInstances(1, gt, instances, 0.5)
	require.Len(t, result.Pairs, 1)
	require.Equal(t, int64(3), result.Pairs[0].GroundTruthID)
	require.Equal(t, 0, result.Pairs[0].PredIndex)
	require.Equal(t, float32(1), result.Pairs[0].IoU)
	require.Equal(t, []int64{1, 2}, result.UnmatchedGT)
	require.Empty(t, result.UnmatchedPred)
}

func TestMatchBelowThreshold(t *testing.T) {
	gt := []GroundTruth{{ID: 1, Polygon: boxPoly(0, 0, 100, 100)}}
	// Overlap is 50x100 of 150x100 union: IoU 1/3, below 0.5.
	instances := []Instance{boxInstance(50, 0, 100, 100, 0.9)}
	result := MatchInstances(1, gt, instances, 0.5)
	require.Empty(t, result.Pairs)
	require.Equal(t, []int64{1}, result.UnmatchedGT)
	require.Equal(t, []int{0}, result.UnmatchedPred)
}

func TestMatchTieBreakByConfidence(t *testing.T) {
	// Two identical predictions over one ground truth: the more
	// confident one wins the match.
	gt := []GroundTruth{{ID: 1, Polygon: boxPoly(0, 0, 100, 100)}}
	instances := []Instance{
		boxInstance(0, 0, 100, 100, 0.3),
		boxInstance(0, 0, 100, 100, 0.9),
	}
	result := MatchInstances(1, gt, instances, 0.5)
	require.Len(t, result.Pairs, 1)
	require.Equal(t, 1, result.Pairs[0].PredIndex)
	require.Equal(t, []int{0}, result.UnmatchedPred)
}

func TestMatchGreedyDescendingIoU(t *testing.T) {
	// One prediction overlaps two ground truths. The higher-IoU pair
	// is taken first; the other ground truth becomes a false negative.
	gt := []GroundTruth{
		{ID: 1, Polygon: boxPoly(0, 0, 100, 100)},
		{ID: 2, Polygon: boxPoly(40, 0, 100, 100)},
	}
	instances := []Instance{boxInstance(10, 0, 100, 100, 0.9)}
	result := MatchInstances(1, gt, instances, 0.5)
	require.Len(t, result.Pairs, 1)
	require.Equal(t, int64(1), result.Pairs[0].GroundTruthID)
	require.Equal(t, []int64{2}, result.UnmatchedGT)
}

func TestBestIoUPerPred(t *testing.T) {
	gt := []GroundTruth{{ID: 1, Polygon: boxPoly(0, 0, 100, 100)}}
	instances := []Instance{
		boxInstance(0, 0, 100, 100, 0.9),
		boxInstance(400, 400, 10, 10, 0.9),
	}
	best := BestIoUPerPred(gt, instances)
	require.Equal(t, []float32{1, 0}, best)
}
