package saco

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/promptseg/promptseg/pkg/geom"
	"github.com/promptseg/promptseg/pkg/labels"
)

// Exclusion reasons reported in BuildSummary.
const (
	ExcludeAmbiguousClass   = "ambiguous class"
	ExcludeUnreadableImage  = "unreadable image"
	ExcludeUnreadableLabels = "unreadable labels"
	ExcludeNoLabelSource    = "no label source"
	ExcludeAllFailed        = "all conversions failed"
)

// BuildParams configures dataset assembly.
type BuildParams struct {
	// The target concept. Becomes text_input on every image and the
	// single category name.
	Concept string
	// Synonym table for label normalization.
	Table *labels.Table
	// YOLO class index -> raw label. Only needed for YOLO sources.
	Classes []string
	// Number of per-image workers. Zero means NumCPU.
	NumWorkers int
	// ProbeImage returns the pixel dimensions of an image file.
	// Nil means decode with cimg. Replaceable for tests.
	ProbeImage func(path string) (width, height int, err error)
}

func NewBuildParams(concept string) *BuildParams {
	return &BuildParams{
		Concept: concept,
		Table:   labels.DefaultTable(concept),
	}
}

// BuildSummary is the always-emitted account of what happened to every
// source image, including the full excluded-image breakdown.
type BuildSummary struct {
	Total              int            `json:"total"`
	Positives          int            `json:"positives"`
	Negatives          int            `json:"negatives"`
	Excluded           int            `json:"excluded"`
	ExcludedReasons    map[string]int `json:"excludedReasons"`
	SkippedAnnotations int            `json:"skippedAnnotations"`
}

// Assembler turns scanned source images into a validated-ready Dataset.
type Assembler struct {
	log    logs.Log
	params *BuildParams
}

func NewAssembler(log logs.Log, params *BuildParams) *Assembler {
	return &Assembler{
		log:    log,
		params: params,
	}
}

// Per-image outcome, produced by the workers and merged by the single
// writer that assigns ids.
type imageResult struct {
	class    Classification
	reason   string
	width    int
	height   int
	polygons []geom.Polygon
	skipped  int
	fatal    error
}

// Build classifies every source image as positive, explicit negative or
// excluded, converts annotations, and assembles the dataset with
// monotonically increasing ids. Images are processed in parallel; the
// merge step walks them in source order, so output ids are deterministic.
// An unmapped raw label aborts the whole run.
func (a *Assembler) Build(sources []SourceImage) (*Dataset, *BuildSummary, error) {
	nWorkers := a.params.NumWorkers
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}

	results := make([]imageResult, len(sources))
	jobs := make(chan int, len(sources))
	for i := range sources {
		jobs <- i
	}
	close(jobs)

	workerDone := make(chan bool, nWorkers)
	for w := 0; w < nWorkers; w++ {
		go func() {
			for i := range jobs {
				results[i] = a.buildOne(&sources[i])
			}
			workerDone <- true
		}()
	}
	for w := 0; w < nWorkers; w++ {
		<-workerDone
	}

	summary := &BuildSummary{
		Total:           len(sources),
		ExcludedReasons: map[string]int{},
	}
	ds := &Dataset{
		Images:      []Image{},
		Annotations: []Annotation{},
		Categories:  []Category{{ID: 1, Name: a.params.Concept}},
	}
	nextImageID := int64(1)
	nextAnnotationID := int64(1)

	for i := range results {
		res := &results[i]
		if res.fatal != nil {
			return nil, nil, res.fatal
		}
		summary.SkippedAnnotations += res.skipped
		switch res.class {
		case SourceExcluded:
			summary.Excluded++
			summary.ExcludedReasons[res.reason]++
			a.log.Warnf("Excluding image %v: %v", sources[i].FileName, res.reason)
			continue
		case SourcePositive:
			summary.Positives++
		case SourceNegative:
			summary.Negatives++
		}
		img := Image{
			ID:                   nextImageID,
			FileName:             sources[i].FileName,
			TextInput:            a.params.Concept,
			Height:               res.height,
			Width:                res.width,
			IsInstanceExhaustive: true,
		}
		nextImageID++
		ds.Images = append(ds.Images, img)
		for _, poly := range res.polygons {
			bounds := poly.Bounds()
			ds.Annotations = append(ds.Annotations, Annotation{
				ID:           nextAnnotationID,
				ImageID:      img.ID,
				CategoryID:   1,
				Segmentation: [][]float32{poly.Flat()},
				BBox:         [4]float32{bounds.X, bounds.Y, bounds.Width, bounds.Height},
				Area:         poly.Area(),
				IsCrowd:      0,
			})
			nextAnnotationID++
		}
	}

	a.log.Infof("Assembled dataset: %v positive, %v negative, %v excluded (of %v sources), %v annotations skipped",
		summary.Positives, summary.Negatives, summary.Excluded, summary.Total, summary.SkippedAnnotations)
	for reason, count := range summary.ExcludedReasons {
		a.log.Infof("  excluded (%v): %v", reason, count)
	}
	return ds, summary, nil
}

func (a *Assembler) buildOne(src *SourceImage) imageResult {
	width, height, err := a.probe(src.Path)
	if err != nil {
		a.log.Warnf("Cannot read image %v: %v", src.FileName, err)
		return imageResult{class: SourceExcluded, reason: ExcludeUnreadableImage}
	}

	raw, err := src.ReadAnnotations()
	if err != nil {
		a.log.Warnf("Cannot read labels of %v: %v", src.FileName, err)
		return imageResult{class: SourceExcluded, reason: ExcludeUnreadableLabels}
	}

	if len(raw) == 0 {
		// Zero annotations is only a negative when the absence is
		// demonstrably intentional: the image is in the negative
		// manifest, or its label file exists and is empty.
		if src.InNegativeManifest || src.Kind != LabelNone {
			return imageResult{class: SourceNegative, width: width, height: height}
		}
		return imageResult{class: SourceExcluded, reason: ExcludeNoLabelSource}
	}

	// Resolve raw labels first. Any ambiguous class excludes the whole
	// image; an unmapped label is fatal for the run.
	resolved := make([]string, len(raw))
	for i := range raw {
		label, ok := a.rawLabel(&raw[i])
		if !ok {
			// Unresolvable YOLO class index. Counts as a conversion
			// failure for this annotation, below.
			continue
		}
		if a.params.Table.IsAmbiguous(label) {
			return imageResult{class: SourceExcluded, reason: ExcludeAmbiguousClass, width: width, height: height}
		}
		canonical, err := a.params.Table.Normalize(label)
		if err != nil {
			return imageResult{fatal: fmt.Errorf("Image %v: %w", src.FileName, err)}
		}
		resolved[i] = canonical
	}

	result := imageResult{width: width, height: height}
	for i := range raw {
		if resolved[i] == "" {
			a.log.Warnf("Skipping annotation %v of %v: unresolvable class '%v'", i, src.FileName, raw[i].Label)
			result.skipped++
			continue
		}
		if resolved[i] != a.params.Concept {
			a.log.Warnf("Skipping annotation %v of %v: class '%v' is not the target concept", i, src.FileName, resolved[i])
			result.skipped++
			continue
		}
		poly, err := convertShape(&raw[i], width, height)
		if err != nil {
			a.log.Warnf("Skipping annotation %v of %v: %v", i, src.FileName, err)
			result.skipped++
			continue
		}
		result.polygons = append(result.polygons, poly)
	}

	if len(result.polygons) == 0 {
		// Every annotation failed conversion. A negative must be an
		// intentional, reviewed absence, not a conversion accident, so
		// the image is excluded rather than demoted to negative.
		result.class = SourceExcluded
		result.reason = ExcludeAllFailed
		return result
	}
	result.class = SourcePositive
	return result
}

// convertShape is the single dispatch point from the tagged source
// variant into an absolute pixel polygon.
func convertShape(sa *SourceAnnotation, width, height int) (geom.Polygon, error) {
	if sa.Box != nil {
		return geom.BoxToPolygon(sa.Box.CX, sa.Box.CY, sa.Box.W, sa.Box.H, width, height)
	}
	if err := sa.Points.Validate(); err != nil {
		return nil, err
	}
	return sa.Points, nil
}

// rawLabel resolves the raw label string of a source annotation. For
// YOLO sources the label is a class index into params.Classes.
func (a *Assembler) rawLabel(sa *SourceAnnotation) (string, bool) {
	if sa.Points != nil {
		return sa.Label, sa.Label != ""
	}
	idx, err := strconv.Atoi(sa.Label)
	if err != nil || idx < 0 || idx >= len(a.params.Classes) {
		return "", false
	}
	return a.params.Classes[idx], true
}

func (a *Assembler) probe(path string) (int, int, error) {
	if a.params.ProbeImage != nil {
		return a.params.ProbeImage(path)
	}
	img, err := cimg.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	return img.Width, img.Height, nil
}

// ErrNoSources is returned by Build callers that require at least one
// source image.
var ErrNoSources = errors.New("No source images found")
