package eval

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/promptseg/promptseg/pkg/geom"
)

const DefaultIoUThreshold = 0.5

// GroundTruth is one ground-truth instance on an image.
type GroundTruth struct {
	ID      int64
	Polygon geom.Polygon
}

// MatchPair pairs one predicted instance with one ground-truth instance.
type MatchPair struct {
	GroundTruthID int64
	PredIndex     int
	IoU           float32
}

// MatchResult is the per-image outcome of matching. Unmatched ground
// truth is a false negative; an unmatched prediction is a false
// positive. Transient, produced and discarded within one evaluation run.
type MatchResult struct {
	ImageID       int64
	Pairs         []MatchPair
	UnmatchedGT   []int64
	UnmatchedPred []int
}

// MatchInstances greedily matches predicted instances to ground truth,
// one-to-one, in descending IoU order, keeping only pairs with IoU at or
// above the threshold. Ties are broken by higher prediction confidence,
// then by lower ground-truth id, so results are deterministic.
// Candidate pairs are pruned with a spatial index over ground-truth
// bounding boxes before any polygon IoU is computed.
func MatchInstances(imageID int64, gt []GroundTruth, instances []Instance, iouThreshold float32) MatchResult {
	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}

	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(gt))
	for _, g := range gt {
		b := g.Polygon.Bounds()
		fb.Add(b.X, b.Y, b.X2(), b.Y2())
	}
	fb.Finish()

	type candidate struct {
		gtIndex   int
		predIndex int
		iou       float32
	}
	candidates := []candidate{}
	predPolys := make([]geom.Polygon, len(instances))
	for p := range instances {
		predPolys[p] = instances[p].Poly()
		if len(predPolys[p]) < 3 {
			continue
		}
		b := predPolys[p].Bounds()
		for _, g := range fb.Search(b.X, b.Y, b.X2(), b.Y2()) {
			iou := geom.PolygonIOU(gt[g].Polygon, predPolys[p])
			if iou >= iouThreshold {
				candidates = append(candidates, candidate{gtIndex: g, predIndex: p, iou: iou})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.iou != b.iou {
			return a.iou > b.iou
		}
		if instances[a.predIndex].Score != instances[b.predIndex].Score {
			return instances[a.predIndex].Score > instances[b.predIndex].Score
		}
		return gt[a.gtIndex].ID < gt[b.gtIndex].ID
	})

	result := MatchResult{ImageID: imageID}
	gtMatched := make([]bool, len(gt))
	predMatched := make([]bool, len(instances))
	for _, c := range candidates {
		if gtMatched[c.gtIndex] || predMatched[c.predIndex] {
			continue
		}
		gtMatched[c.gtIndex] = true
		predMatched[c.predIndex] = true
		result.Pairs = append(result.Pairs, MatchPair{
			GroundTruthID: gt[c.gtIndex].ID,
			PredIndex:     c.predIndex,
			IoU:           c.iou,
		})
	}
	for g := range gt {
		if !gtMatched[g] {
			result.UnmatchedGT = append(result.UnmatchedGT, gt[g].ID)
		}
	}
	for p := range instances {
		if !predMatched[p] {
			result.UnmatchedPred = append(result.UnmatchedPred, p)
		}
	}
	return result
}

// BestIoUPerPred returns, for each predicted instance, the highest IoU
// it achieved against any ground-truth instance, ignoring the matching
// threshold and the one-to-one constraint. Used as the mask-quality
// signal by the hard-example selector.
func BestIoUPerPred(gt []GroundTruth, instances []Instance) []float32 {
	best := make([]float32, len(instances))
	for p := range instances {
		poly := instances[p].Poly()
		if len(poly) < 3 {
			continue
		}
		for g := range gt {
			if iou := geom.PolygonIOU(gt[g].Polygon, poly); iou > best[p] {
				best[p] = iou
			}
		}
	}
	return best
}
