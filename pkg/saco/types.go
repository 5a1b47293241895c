package saco

import (
	"github.com/promptseg/promptseg/pkg/geom"
)

// Package saco builds and validates concept-segmentation datasets in
// the SA-Co schema: a single JSON document with images, annotations and
// categories. An image with an empty annotations list is a deliberate
// negative training sample, never an omission.

// Image is one image record in the dataset artifact.
type Image struct {
	ID int64 `json:"id"`
	// Path of the image file, relative to the dataset root.
	FileName string `json:"file_name"`
	// The concept prompt. Always the literal target concept, for
	// positive and negative images alike.
	TextInput string `json:"text_input"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
	// True means every true instance of the concept is annotated, so
	// unannotated regions are true background. Always true in datasets
	// we produce.
	IsInstanceExhaustive bool `json:"is_instance_exhaustive"`
}

// Annotation is one instance mask in the dataset artifact.
type Annotation struct {
	ID         int64 `json:"id"`
	ImageID    int64 `json:"image_id"`
	CategoryID int64 `json:"category_id"`
	// One or more flat polygons [x1,y1,x2,y2,...] in absolute pixels.
	Segmentation [][]float32 `json:"segmentation"`
	// [x, y, width, height]
	BBox [4]float32 `json:"bbox"`
	Area float32    `json:"area"`
	// Always 0 for individual instances.
	IsCrowd int `json:"iscrowd"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Dataset is the persisted artifact. Immutable once validated; dataset
// evolution produces a new artifact rather than mutating in place.
type Dataset struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Polygon returns the first segmentation ring as a geom.Polygon.
func (a *Annotation) Polygon() geom.Polygon {
	if len(a.Segmentation) == 0 {
		return nil
	}
	p, err := geom.PolygonFromFlat(a.Segmentation[0])
	if err != nil {
		return nil
	}
	return p
}

// AnnotationsByImage groups annotations by their owning image id.
func (d *Dataset) AnnotationsByImage() map[int64][]*Annotation {
	byImage := map[int64][]*Annotation{}
	for i := range d.Annotations {
		ann := &d.Annotations[i]
		byImage[ann.ImageID] = append(byImage[ann.ImageID], ann)
	}
	return byImage
}

// Classification is the typed three-state intent of a source image,
// derived once during scanning/assembly instead of re-deriving it from
// file-system state.
type Classification int

const (
	// One or more concept instances.
	SourcePositive Classification = iota
	// Deliberately included with zero instances. The absence is the
	// training signal.
	SourceNegative
	// Dropped from the dataset (ambiguous class, unreadable image,
	// all conversions failed, or unknown intent).
	SourceExcluded
)

func (c Classification) String() string {
	switch c {
	case SourcePositive:
		return "positive"
	case SourceNegative:
		return "negative"
	case SourceExcluded:
		return "excluded"
	}
	return "unknown"
}

// SourceAnnotation is the tagged variant consumed by the single
// conversion dispatch point. Exactly one of Box or Points is set.
type SourceAnnotation struct {
	// Raw label as found in the source file, before normalization.
	Label string
	// Normalized center box from a YOLO line.
	Box *YoloBox
	// Absolute-pixel points from a LabelMe shape.
	Points geom.Polygon
}

// YoloBox is a normalized center box: all fields in [0,1].
type YoloBox struct {
	CX float32
	CY float32
	W  float32
	H  float32
}
