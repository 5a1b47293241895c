package eval

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/promptseg/promptseg/pkg/geom"
)

// Package eval matches predicted instances against ground truth and
// computes the composite evaluation metrics: mask-quality F1 on
// positive images (pmF1), image-level presence MCC (IL_MCC), and their
// product (CGF1).

// Instance is one predicted instance mask. Score is the final instance
// confidence, presence_score x local_score, computed by the producing
// model and consumed here as given.
type Instance struct {
	Polygon []float32 `json:"polygon"`
	Score   float32   `json:"score"`
}

// Prediction is the model output for one image: a global presence score
// in [0,1] plus zero or more instances. Transient within an evaluation
// run, never persisted by this package.
type Prediction struct {
	ImageID   int64      `json:"image_id"`
	Score     float32    `json:"score"`
	Instances []Instance `json:"instances"`
}

func (ins *Instance) Poly() geom.Polygon {
	p, err := geom.PolygonFromFlat(ins.Polygon)
	if err != nil {
		return nil
	}
	return p
}

// LoadPredictions reads a prediction file: a JSON array of Prediction
// records.
func LoadPredictions(filename string) ([]Prediction, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	preds := []Prediction{}
	if err := json.Unmarshal(b, &preds); err != nil {
		return nil, fmt.Errorf("Error loading %v as JSON: %w", filename, err)
	}
	return preds, nil
}

// PredictionsByImage groups predictions by image id. Multiple records
// for the same image are merged: max presence score, concatenated
// instances.
func PredictionsByImage(preds []Prediction) map[int64]*Prediction {
	byImage := map[int64]*Prediction{}
	for i := range preds {
		p := &preds[i]
		existing, ok := byImage[p.ImageID]
		if !ok {
			cp := *p
			byImage[p.ImageID] = &cp
			continue
		}
		if p.Score > existing.Score {
			existing.Score = p.Score
		}
		existing.Instances = append(existing.Instances, p.Instances...)
	}
	return byImage
}
