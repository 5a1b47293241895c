package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/promptseg/promptseg/pkg/labels"
	"github.com/promptseg/promptseg/pkg/saco"
)

func main() {
	logger, err := logs.NewLog()
	if err != nil {
		panic(err)
	}

	parser := argparse.NewParser("buildset", "Convert raw annotation sources into a concept-segmentation dataset")
	imagesDir := parser.String("i", "images", &argparse.Options{Help: "Directory of source images", Required: true})
	labelsDir := parser.String("l", "labels", &argparse.Options{Help: "Directory of LabelMe .json / YOLO .txt label files", Required: false, Default: ""})
	manifest := parser.String("", "negatives", &argparse.Options{Help: "Manifest file listing explicit negative images", Required: false, Default: ""})
	mappingFile := parser.String("m", "mapping", &argparse.Options{Help: "Label mapping JSON file (default synonyms when omitted)", Required: false, Default: ""})
	classesFile := parser.String("", "classes", &argparse.Options{Help: "YOLO classes file, one raw label per line", Required: false, Default: ""})
	concept := parser.String("c", "concept", &argparse.Options{Help: "Target concept, eg 'chicken'", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output dataset file (train/val suffixes added when splitting)", Required: true})
	valFraction := parser.Float("", "valfraction", &argparse.Options{Help: "Validation fraction for the stratified split (0 = no split)", Required: false, Default: 0.2})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Split shuffle seed", Required: false, Default: 42})
	workers := parser.Int("w", "workers", &argparse.Options{Help: "Per-image workers (0 = NumCPU)", Required: false, Default: 0})
	skipFileCheck := parser.Flag("", "skip-file-check", &argparse.Options{Help: "Skip image file existence validation (CI)", Required: false})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	params := saco.NewBuildParams(*concept)
	params.NumWorkers = *workers
	if *mappingFile != "" {
		table, err := labels.LoadTable(*mappingFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		params.Table = table
	}
	if *classesFile != "" {
		classes, err := labels.LoadClassList(*classesFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		params.Classes = classes
	}

	sources, err := saco.ScanSources(*imagesDir, *labelsDir, *manifest)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		logger.Errorf("%v in '%v'", saco.ErrNoSources, *imagesDir)
		os.Exit(1)
	}
	logger.Infof("Found %v source images", len(sources))

	assembler := saco.NewAssembler(logger, params)
	ds, summary, err := assembler.Build(sources)
	if err != nil {
		if errors.Is(err, labels.ErrUnmappedLabel) {
			logger.Errorf("Aborting: %v. Add it to the mapping file or declare it ambiguous.", err)
		} else {
			logger.Errorf("%v", err)
		}
		os.Exit(1)
	}

	vparams := &saco.ValidateParams{
		Concept:    *concept,
		CheckFiles: !*skipFileCheck,
		Root:       *imagesDir,
	}
	if err := saco.Validate(ds, vparams); err != nil {
		logger.Errorf("Refusing to publish dataset:\n%v", err)
		os.Exit(1)
	}

	if *valFraction > 0 {
		train, val := saco.Split(ds, *valFraction, int64(*seed))
		trainFile := withSuffix(*output, "_train")
		valFile := withSuffix(*output, "_val")
		if err := train.Save(trainFile); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		if err := val.Save(valFile); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		logger.Infof("Wrote %v (%v images) and %v (%v images)", trainFile, len(train.Images), valFile, len(val.Images))
	} else {
		if err := ds.Save(*output); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		logger.Infof("Wrote %v (%v images)", *output, len(ds.Images))
	}

	// The exclusion summary is part of a successful run, not just of
	// failures.
	logger.Infof("Summary: %v positive, %v negative, %v excluded, %v annotations skipped",
		summary.Positives, summary.Negatives, summary.Excluded, summary.SkippedAnnotations)
	for reason, count := range summary.ExcludedReasons {
		logger.Infof("  excluded (%v): %v", reason, count)
	}
}

func withSuffix(filename, suffix string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx] + suffix + filename[idx:]
	}
	return filename + suffix
}
