package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/promptseg/promptseg/pkg/eval"
	"github.com/promptseg/promptseg/pkg/saco"
)

func main() {
	logger, err := logs.NewLog()
	if err != nil {
		panic(err)
	}

	parser := argparse.NewParser("evalset", "Evaluate model predictions against a concept-segmentation dataset")
	datasetFile := parser.String("d", "dataset", &argparse.Options{Help: "Dataset JSON file", Required: true})
	predsFile := parser.String("p", "predictions", &argparse.Options{Help: "Predictions JSON file", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output summary JSON file", Required: false, Default: ""})
	iouThreshold := parser.Float("", "iou", &argparse.Options{Help: "Matching IoU threshold", Required: false, Default: float64(eval.DefaultIoUThreshold)})
	presenceThreshold := parser.Float("", "presence", &argparse.Options{Help: "Presence decision threshold", Required: false, Default: float64(eval.DefaultPresenceThreshold)})
	policy := parser.Selector("", "policy", []string{"score", "match", "either"}, &argparse.Options{Help: "Predicted-presence policy", Required: false, Default: "score"})
	paramsFile := parser.String("", "params", &argparse.Options{Help: "Evaluation parameter JSON file (overrides threshold/policy flags)", Required: false, Default: ""})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	ds, err := saco.LoadDataset(*datasetFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	preds, err := eval.LoadPredictions(*predsFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	var params *eval.MetricParams
	if *paramsFile != "" {
		params, err = eval.LoadMetricParams(*paramsFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	} else {
		params = eval.NewMetricParams()
		params.IoUThreshold = float32(*iouThreshold)
		params.PresenceThreshold = float32(*presenceThreshold)
		switch *policy {
		case "match":
			params.Policy = eval.PresenceByMatch
		case "either":
			params.Policy = eval.PresenceByEither
		}
	}

	summary, err := eval.BuildSummary(ds, preds, params)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	m := summary.Metrics
	logger.Infof("pmF1:   %.4f  (matched %v of %v predictions, %v ground truth, on %v positive images)",
		m.PmF1, m.MatchedInstances, m.TotalPredictions, m.TotalGroundTruth, m.PositiveImages)
	logger.Infof("IL_MCC: %.4f  (TP %v, FP %v, TN %v, FN %v)",
		m.ILMCC, m.Confusion.TP, m.Confusion.FP, m.Confusion.TN, m.Confusion.FN)
	logger.Infof("CGF1:   %.4f", m.CGF1)
	logger.Infof("False positives: %v spurious detections on %v of %v negative images",
		summary.FalsePositives.TotalSpuriousDetections, summary.FalsePositives.NegativesWithDetections, summary.FalsePositives.NegativeImages)
	logger.Infof("False negatives: %v missed instances on %v of %v positive images",
		summary.FalseNegatives.TotalMissed, summary.FalseNegatives.ImagesWithMisses, summary.FalseNegatives.PositiveImages)

	if *output != "" {
		if err := summary.Save(*output); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		logger.Infof("Wrote %v", *output)
	}
}
