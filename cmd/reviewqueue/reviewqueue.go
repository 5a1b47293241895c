package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/promptseg/promptseg/pkg/eval"
	"github.com/promptseg/promptseg/pkg/review"
	"github.com/promptseg/promptseg/pkg/saco"
	"github.com/promptseg/promptseg/pkg/stats"
)

func main() {
	logger, err := logs.NewLog()
	if err != nil {
		panic(err)
	}

	parser := argparse.NewParser("reviewqueue", "Flag ambiguous inference results for human review")
	predsFile := parser.String("p", "predictions", &argparse.Options{Help: "Predictions JSON file", Required: true})
	datasetFile := parser.String("d", "dataset", &argparse.Options{Help: "Dataset JSON file, enables the mask-quality rule", Required: false, Default: ""})
	output := parser.String("o", "output", &argparse.Options{Help: "Output queue JSON file", Required: true})
	bandLow := parser.Float("", "bandlow", &argparse.Options{Help: "Lower bound of the ambiguity band", Required: false, Default: float64(review.DefaultBandLow)})
	bandHigh := parser.Float("", "bandhigh", &argparse.Options{Help: "Upper bound of the ambiguity band", Required: false, Default: float64(review.DefaultBandHigh)})
	lowIoU := parser.Float("", "lowiou", &argparse.Options{Help: "Low mask-quality IoU threshold", Required: false, Default: float64(review.DefaultLowIoU)})
	minPresence := parser.Float("", "minpresence", &argparse.Options{Help: "Minimum presence for the mask-quality rule", Required: false, Default: float64(review.DefaultMinPresence)})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	preds, err := eval.LoadPredictions(*predsFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	var ds *saco.Dataset
	if *datasetFile != "" {
		ds, err = saco.LoadDataset(*datasetFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	}

	signals := buildSignals(ds, preds)

	params := &review.Params{
		BandLow:     float32(*bandLow),
		BandHigh:    float32(*bandHigh),
		LowIoU:      float32(*lowIoU),
		MinPresence: float32(*minPresence),
	}
	queue := review.Select(signals, params)
	logger.Infof("Flagged %v of %v images for review", len(queue), len(signals))

	if err := saco.WriteJSONAtomic(*output, queue); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("Wrote %v", *output)
}

// buildSignals derives the selector inputs from the prediction batch,
// attaching a best-IoU mask-quality signal when ground truth is
// available.
func buildSignals(ds *saco.Dataset, preds []eval.Prediction) []review.ImageSignal {
	var annsByImage map[int64][]*saco.Annotation
	fileNames := map[int64]string{}
	if ds != nil {
		annsByImage = ds.AnnotationsByImage()
		for i := range ds.Images {
			fileNames[ds.Images[i].ID] = ds.Images[i].FileName
		}
	}

	signals := []review.ImageSignal{}
	for imageID, pred := range eval.PredictionsByImage(preds) {
		sig := review.ImageSignal{
			ImageID:  imageID,
			FileName: fileNames[imageID],
			Presence: pred.Score,
			BestIoU:  -1,
		}
		if ds != nil && len(pred.Instances) > 0 {
			gt := []eval.GroundTruth{}
			for _, ann := range annsByImage[imageID] {
				if poly := ann.Polygon(); len(poly) >= 3 {
					gt = append(gt, eval.GroundTruth{ID: ann.ID, Polygon: poly})
				}
			}
			if len(gt) > 0 {
				sig.BestIoU = stats.Max(eval.BestIoUPerPred(gt, pred.Instances))
			}
		}
		signals = append(signals, sig)
	}
	return signals
}
