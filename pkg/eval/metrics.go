package eval

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/promptseg/promptseg/pkg/saco"
)

// ErrEmptyDataset is returned when the metric engine is invoked with
// zero images. Any other odd or partial dataset still produces a
// (possibly degenerate) result, because such datasets are expected
// during iterative development.
var ErrEmptyDataset = errors.New("Dataset has no images")

const DefaultPresenceThreshold = 0.5

// PresencePolicy selects how the predicted-presence boolean for IL_MCC
// is derived. The source material references both the raw presence
// score and the survival of matched instances, so this is configurable
// rather than guessed.
type PresencePolicy int

const (
	// Presence score >= threshold.
	PresenceByScore PresencePolicy = iota
	// At least one instance survived matching.
	PresenceByMatch
	// Either of the above.
	PresenceByEither
)

type MetricParams struct {
	IoUThreshold      float32        `json:"iouThreshold"`
	PresenceThreshold float32        `json:"presenceThreshold"`
	Policy            PresencePolicy `json:"policy"`
	// Matching workers. Zero means NumCPU.
	Workers int `json:"workers"`
}

// NewMetricParams returns the default evaluation parameters.
func NewMetricParams() *MetricParams {
	return &MetricParams{
		IoUThreshold:      DefaultIoUThreshold,
		PresenceThreshold: DefaultPresenceThreshold,
		Policy:            PresenceByScore,
	}
}

// LoadMetricParams reads evaluation parameters from a JSON file.
// Omitted thresholds fall back to the defaults.
func LoadMetricParams(filename string) (*MetricParams, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	params := NewMetricParams()
	if err := json.Unmarshal(b, params); err != nil {
		return nil, fmt.Errorf("Error loading %v as JSON: %w", filename, err)
	}
	return params, nil
}

// Confusion is the image-level presence/absence confusion matrix.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Metrics is the evaluation summary.
//
// PmF1 is computed only over images with at least one ground-truth
// instance: negative-only images are excluded from its denominators
// entirely, not counted as zero.
//
// CGF1 is exactly PmF1 x ILMCC and is reported as-is; it may be
// negative, since ILMCC ranges over [-1,1]. Scaled presentation
// ("x100, clamped at 0") is a reporting concern, not a core semantic.
type Metrics struct {
	PmF1  float64 `json:"pmF1"`
	ILMCC float64 `json:"IL_MCC"`
	CGF1  float64 `json:"CGF1"`

	Confusion Confusion `json:"confusion"`

	// pmF1 inputs, over positive images only.
	MatchedInstances int `json:"matchedInstances"`
	TotalPredictions int `json:"totalPredictions"`
	TotalGroundTruth int `json:"totalGroundTruth"`
	PositiveImages   int `json:"positiveImages"`
	NegativeImages   int `json:"negativeImages"`
}

// Evaluate matches predictions against the dataset's ground truth and
// computes the metric suite. Matching runs in parallel across images;
// the returned match results are in dataset image order.
func Evaluate(ds *saco.Dataset, preds []Prediction, params *MetricParams) (*Metrics, []MatchResult, error) {
	if len(ds.Images) == 0 {
		return nil, nil, ErrEmptyDataset
	}
	if params == nil {
		params = NewMetricParams()
	}

	annsByImage := ds.AnnotationsByImage()
	predsByImage := PredictionsByImage(preds)

	gtByImage := make([][]GroundTruth, len(ds.Images))
	matches := make([]MatchResult, len(ds.Images))

	nWorkers := params.Workers
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}
	jobs := make(chan int, len(ds.Images))
	for i := range ds.Images {
		jobs <- i
	}
	close(jobs)
	workerDone := make(chan bool, nWorkers)
	for w := 0; w < nWorkers; w++ {
		go func() {
			for i := range jobs {
				img := &ds.Images[i]
				gtByImage[i] = groundTruthOf(annsByImage[img.ID])
				var instances []Instance
				if pred := predsByImage[img.ID]; pred != nil {
					instances = pred.Instances
				}
				matches[i] = MatchInstances(img.ID, gtByImage[i], instances, params.IoUThreshold)
			}
			workerDone <- true
		}()
	}
	for w := 0; w < nWorkers; w++ {
		<-workerDone
	}

	m := &Metrics{}
	for i := range ds.Images {
		img := &ds.Images[i]
		gt := gtByImage[i]
		match := matches[i]

		var instances []Instance
		presenceScore := float32(0)
		if pred := predsByImage[img.ID]; pred != nil {
			instances = pred.Instances
			presenceScore = pred.Score
		}

		gtPresent := len(gt) > 0
		if gtPresent {
			m.PositiveImages++
			m.MatchedInstances += len(match.Pairs)
			m.TotalPredictions += len(instances)
			m.TotalGroundTruth += len(gt)
		} else {
			m.NegativeImages++
		}

		predPresent := false
		switch params.Policy {
		case PresenceByScore:
			predPresent = presenceScore >= params.PresenceThreshold
		case PresenceByMatch:
			predPresent = len(match.Pairs) > 0
		case PresenceByEither:
			predPresent = presenceScore >= params.PresenceThreshold || len(match.Pairs) > 0
		}

		switch {
		case gtPresent && predPresent:
			m.Confusion.TP++
		case gtPresent && !predPresent:
			m.Confusion.FN++
		case !gtPresent && predPresent:
			m.Confusion.FP++
		default:
			m.Confusion.TN++
		}
	}

	m.PmF1 = positiveMicroF1(m.MatchedInstances, m.TotalPredictions, m.TotalGroundTruth)
	m.ILMCC = matthews(m.Confusion)
	m.CGF1 = m.PmF1 * m.ILMCC
	return m, matches, nil
}

func groundTruthOf(anns []*saco.Annotation) []GroundTruth {
	gt := make([]GroundTruth, 0, len(anns))
	for _, ann := range anns {
		poly := ann.Polygon()
		if len(poly) < 3 {
			continue
		}
		gt = append(gt, GroundTruth{ID: ann.ID, Polygon: poly})
	}
	return gt
}

// positiveMicroF1 is the harmonic mean of precision and recall over the
// matched instances of positive images.
func positiveMicroF1(matched, totalPred, totalGT int) float64 {
	if totalPred == 0 || totalGT == 0 {
		return 0
	}
	precision := float64(matched) / float64(totalPred)
	recall := float64(matched) / float64(totalGT)
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// matthews computes the Matthews Correlation Coefficient of the
// presence confusion matrix. A zero denominator (all images in one
// class, or a degenerate prediction column) yields exactly 0.
func matthews(c Confusion) float64 {
	tp := float64(c.TP)
	fp := float64(c.FP)
	tn := float64(c.TN)
	fn := float64(c.FN)
	denom := (tp + fp) * (tp + fn) * (tn + fp) * (tn + fn)
	if denom == 0 {
		return 0
	}
	return (tp*tn - fp*fn) / math.Sqrt(denom)
}
