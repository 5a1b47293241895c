package saco

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefectKind classifies a structural defect found by Validate.
type DefectKind string

const (
	DefectBadID         DefectKind = "bad id"
	DefectBadDimension  DefectKind = "bad dimension"
	DefectBadPrompt     DefectKind = "bad prompt"
	DefectNotExhaustive DefectKind = "not exhaustive"
	DefectDanglingRef   DefectKind = "dangling reference"
	DefectMissingFile   DefectKind = "missing file"
	DefectBadGeometry   DefectKind = "bad geometry"
)

type Defect struct {
	Kind    DefectKind `json:"kind"`
	Message string     `json:"message"`
}

// ValidationError carries every defect found in one pass. Validation
// never fails fast: a single run yields the complete defect list.
type ValidationError struct {
	Defects []Defect
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Defects)+1)
	lines = append(lines, fmt.Sprintf("Dataset has %v structural defects:", len(e.Defects)))
	for _, d := range e.Defects {
		lines = append(lines, fmt.Sprintf("  [%v] %v", d.Kind, d.Message))
	}
	return strings.Join(lines, "\n")
}

// ValidateParams configures dataset validation.
type ValidateParams struct {
	// The expected concept prompt. Empty skips the prompt check.
	Concept string
	// Check that every image file resolves on disk, relative to Root.
	// Off in CI, where image files are not present.
	CheckFiles bool
	// Root directory that image file names are relative to.
	Root string
}

// Validate checks the dataset's structural integrity and returns a
// *ValidationError listing every violation, or nil when clean.
func Validate(ds *Dataset, params *ValidateParams) error {
	defects := []Defect{}
	addf := func(kind DefectKind, format string, args ...any) {
		defects = append(defects, Defect{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	imageByID := map[int64]*Image{}
	for i := range ds.Images {
		img := &ds.Images[i]
		if img.ID < 0 {
			addf(DefectBadID, "Image %v: negative id %v", i, img.ID)
		}
		if _, dup := imageByID[img.ID]; dup {
			addf(DefectBadID, "Image %v: duplicate id %v", i, img.ID)
		}
		imageByID[img.ID] = img
		if img.Width <= 0 || img.Height <= 0 {
			addf(DefectBadDimension, "Image %v: dimensions %vx%v are not positive", img.ID, img.Width, img.Height)
		}
		if params.Concept != "" && img.TextInput != params.Concept {
			addf(DefectBadPrompt, "Image %v: text_input '%v' is not the target concept '%v'", img.ID, img.TextInput, params.Concept)
		}
		if !img.IsInstanceExhaustive {
			addf(DefectNotExhaustive, "Image %v: is_instance_exhaustive is not set", img.ID)
		}
		if params.CheckFiles {
			path := img.FileName
			if params.Root != "" {
				path = filepath.Join(params.Root, img.FileName)
			}
			if st, err := os.Stat(path); err != nil || st.IsDir() {
				addf(DefectMissingFile, "Image %v: file '%v' does not resolve", img.ID, path)
			}
		}
	}

	annIDs := map[int64]bool{}
	for i := range ds.Annotations {
		ann := &ds.Annotations[i]
		if ann.ID < 0 {
			addf(DefectBadID, "Annotation %v: negative id %v", i, ann.ID)
		}
		if annIDs[ann.ID] {
			addf(DefectBadID, "Annotation %v: duplicate id %v", i, ann.ID)
		}
		annIDs[ann.ID] = true
		img, ok := imageByID[ann.ImageID]
		if !ok {
			addf(DefectDanglingRef, "Annotation %v: image_id %v does not exist", ann.ID, ann.ImageID)
		}
		if ann.Area <= 0 {
			addf(DefectBadGeometry, "Annotation %v: area %v is not positive", ann.ID, ann.Area)
		}
		for ringIdx, ring := range ann.Segmentation {
			if len(ring) < 6 || len(ring)%2 != 0 {
				addf(DefectBadGeometry, "Annotation %v: segmentation ring %v has %v coordinates", ann.ID, ringIdx, len(ring))
			}
		}
		if ok {
			x, y, w, h := ann.BBox[0], ann.BBox[1], ann.BBox[2], ann.BBox[3]
			if w <= 0 || h <= 0 {
				addf(DefectBadGeometry, "Annotation %v: bbox %vx%v is not positive", ann.ID, w, h)
			} else if x < 0 || y < 0 || x+w > float32(img.Width) || y+h > float32(img.Height) {
				addf(DefectBadGeometry, "Annotation %v: bbox [%v %v %v %v] exceeds %vx%v image bounds", ann.ID, x, y, w, h, img.Width, img.Height)
			}
		}
	}

	if len(defects) != 0 {
		return &ValidationError{Defects: defects}
	}
	return nil
}
