package eval

import (
	"sort"

	"github.com/promptseg/promptseg/pkg/saco"
	"github.com/promptseg/promptseg/pkg/stats"
	"gonum.org/v1/gonum/stat"
)

// FalsePositiveImage describes one negative image that drew detections.
type FalsePositiveImage struct {
	ImageID    int64   `json:"image_id"`
	FileName   string  `json:"file_name"`
	Detections int     `json:"detections"`
	AvgScore   float64 `json:"avg_score"`
	MaxScore   float64 `json:"max_score"`
}

// FalsePositiveReport summarizes detections on negative images, where
// every detection is by definition spurious.
type FalsePositiveReport struct {
	NegativeImages           int                  `json:"negative_images"`
	NegativesWithDetections  int                  `json:"negatives_with_detections"`
	TotalSpuriousDetections  int                  `json:"total_spurious_detections"`
	MeanScore                float64              `json:"mean_score"`
	MedianScore              float64              `json:"median_score"`
	MinScore                 float64              `json:"min_score"`
	MaxScore                 float64              `json:"max_score"`
	Images                   []FalsePositiveImage `json:"images"`
}

// FalseNegativeImage describes one positive image with fewer detections
// than ground-truth instances.
type FalseNegativeImage struct {
	ImageID     int64  `json:"image_id"`
	FileName    string `json:"file_name"`
	GroundTruth int    `json:"ground_truth"`
	Detections  int    `json:"detections"`
	Missed      int    `json:"missed"`
}

// FalseNegativeReport summarizes missed instances on positive images.
type FalseNegativeReport struct {
	PositiveImages    int                  `json:"positive_images"`
	ImagesWithMisses  int                  `json:"images_with_misses"`
	TotalMissed       int                  `json:"total_missed"`
	Images            []FalseNegativeImage `json:"images"`
}

// PerImageRow is one row of the per-image performance table.
type PerImageRow struct {
	ImageID     int64   `json:"image_id"`
	FileName    string  `json:"file_name"`
	GroundTruth int     `json:"ground_truth"`
	Detections  int     `json:"detections"`
	Matched     int     `json:"matched"`
	AvgScore    float64 `json:"avg_score"`
	MaxScore    float64 `json:"max_score"`
	IsPositive  bool    `json:"is_positive"`
}

// Summary bundles the metric scalars with the detail reports. The whole
// structure is JSON-serializable and written atomically.
type Summary struct {
	Metrics        *Metrics             `json:"metrics"`
	FalsePositives *FalsePositiveReport `json:"false_positives"`
	FalseNegatives *FalseNegativeReport `json:"false_negatives"`
	PerImage       []PerImageRow        `json:"per_image"`
}

// BuildSummary computes the metric suite and all detail reports for one
// evaluation run.
func BuildSummary(ds *saco.Dataset, preds []Prediction, params *MetricParams) (*Summary, error) {
	metrics, matches, err := Evaluate(ds, preds, params)
	if err != nil {
		return nil, err
	}

	annsByImage := ds.AnnotationsByImage()
	predsByImage := PredictionsByImage(preds)
	matchByImage := map[int64]*MatchResult{}
	for i := range matches {
		matchByImage[matches[i].ImageID] = &matches[i]
	}

	fp := &FalsePositiveReport{Images: []FalsePositiveImage{}}
	fn := &FalseNegativeReport{Images: []FalseNegativeImage{}}
	perImage := []PerImageRow{}
	negativeScores := []float64{}

	for i := range ds.Images {
		img := &ds.Images[i]
		numGT := len(annsByImage[img.ID])
		var instances []Instance
		if pred := predsByImage[img.ID]; pred != nil {
			instances = pred.Instances
		}
		scores := make([]float32, 0, len(instances))
		for _, ins := range instances {
			scores = append(scores, ins.Score)
		}
		matched := 0
		if match := matchByImage[img.ID]; match != nil {
			matched = len(match.Pairs)
		}

		perImage = append(perImage, PerImageRow{
			ImageID:     img.ID,
			FileName:    img.FileName,
			GroundTruth: numGT,
			Detections:  len(instances),
			Matched:     matched,
			AvgScore:    stats.Mean(scores),
			MaxScore:    float64(stats.Max(scores)),
			IsPositive:  numGT > 0,
		})

		if numGT == 0 {
			fp.NegativeImages++
			if len(instances) > 0 {
				fp.NegativesWithDetections++
				fp.TotalSpuriousDetections += len(instances)
				fp.Images = append(fp.Images, FalsePositiveImage{
					ImageID:    img.ID,
					FileName:   img.FileName,
					Detections: len(instances),
					AvgScore:   stats.Mean(scores),
					MaxScore:   float64(stats.Max(scores)),
				})
				for _, s := range scores {
					negativeScores = append(negativeScores, float64(s))
				}
			}
		} else {
			fn.PositiveImages++
			if len(instances) < numGT {
				fn.ImagesWithMisses++
				fn.TotalMissed += numGT - len(instances)
				fn.Images = append(fn.Images, FalseNegativeImage{
					ImageID:     img.ID,
					FileName:    img.FileName,
					GroundTruth: numGT,
					Detections:  len(instances),
					Missed:      numGT - len(instances),
				})
			}
		}
	}

	if len(negativeScores) > 0 {
		sort.Float64s(negativeScores)
		fp.MeanScore = stat.Mean(negativeScores, nil)
		fp.MedianScore = stat.Quantile(0.5, stat.Empirical, negativeScores, nil)
		fp.MinScore = stats.Min(negativeScores)
		fp.MaxScore = stats.Max(negativeScores)
	}

	return &Summary{
		Metrics:        metrics,
		FalsePositives: fp,
		FalseNegatives: fn,
		PerImage:       perImage,
	}, nil
}

// Save writes the summary artifact atomically.
func (s *Summary) Save(filename string) error {
	return saco.WriteJSONAtomic(filename, s)
}
