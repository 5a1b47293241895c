package saco

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/promptseg/promptseg/pkg/geom"
)

// Supported source image extensions (lowercase).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// LabelKind says which kind of label source was found for an image.
type LabelKind int

const (
	LabelNone LabelKind = iota
	LabelMeJSON
	LabelYoloText
)

// SourceImage is one image discovered during scanning, with its label
// source resolved and its negative-manifest membership recorded.
type SourceImage struct {
	// Path of the image file, relative to the scan root.
	FileName string
	// Absolute path of the image file.
	Path string
	// Absolute path of the label file ("" when Kind is LabelNone).
	LabelPath string
	Kind      LabelKind
	// Listed in the negative manifest.
	InNegativeManifest bool
}

// ScanSources walks imagesDir for images and pairs each with a LabelMe
// .json or YOLO .txt file of the same stem from labelsDir. A LabelMe
// file wins when both exist. The result is sorted by FileName so that
// downstream id assignment is deterministic.
func ScanSources(imagesDir, labelsDir, negativeManifest string) ([]SourceImage, error) {
	negative := map[string]bool{}
	if negativeManifest != "" {
		names, err := readManifest(negativeManifest)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			negative[n] = true
		}
	}

	sources := []SourceImage{}
	err := filepath.WalkDir(imagesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(imagesDir, path)
		if err != nil {
			return err
		}
		src := SourceImage{
			FileName:           rel,
			Path:               path,
			InNegativeManifest: negative[rel] || negative[filepath.Base(rel)],
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if labelsDir != "" {
			if p := filepath.Join(labelsDir, stem+".json"); fileExists(p) {
				src.LabelPath = p
				src.Kind = LabelMeJSON
			} else if p := filepath.Join(labelsDir, stem+".txt"); fileExists(p) {
				src.LabelPath = p
				src.Kind = LabelYoloText
			}
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Error scanning images in '%v': %w", imagesDir, err)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].FileName < sources[j].FileName
	})
	return sources, nil
}

// ReadAnnotations parses the label source of an image into the tagged
// SourceAnnotation variant. A missing label source yields nil, nil.
func (s *SourceImage) ReadAnnotations() ([]SourceAnnotation, error) {
	switch s.Kind {
	case LabelMeJSON:
		return readLabelMe(s.LabelPath)
	case LabelYoloText:
		return readYolo(s.LabelPath)
	}
	return nil, nil
}

// labelMeFile is the subset of the LabelMe schema that we consume.
type labelMeFile struct {
	Shapes []struct {
		Label  string      `json:"label"`
		Points [][]float32 `json:"points"`
	} `json:"shapes"`
}

func readLabelMe(filename string) ([]SourceAnnotation, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		// Present but empty. Zero annotations is a valid, deliberate state.
		return nil, nil
	}
	file := labelMeFile{}
	if err := json.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("Error loading %v as JSON: %w", filename, err)
	}
	anns := []SourceAnnotation{}
	for _, shape := range file.Shapes {
		label := strings.TrimSpace(shape.Label)
		points := make(geom.Polygon, 0, len(shape.Points))
		for _, pt := range shape.Points {
			if len(pt) < 2 {
				continue
			}
			points = append(points, geom.Point{X: pt[0], Y: pt[1]})
		}
		anns = append(anns, SourceAnnotation{Label: label, Points: points})
	}
	return anns, nil
}

// readYolo parses a YOLO label file: one "class_id cx cy w h" line per
// instance, all values normalized to [0,1]. The raw label stays the
// numeric class id string; the assembler resolves it against the class
// list before normalization.
func readYolo(filename string) ([]SourceAnnotation, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	defer f.Close()
	anns := []SourceAnnotation{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		ann := SourceAnnotation{Label: parts[0]}
		if len(parts) == 5 {
			vals := [4]float32{}
			ok := true
			for i, part := range parts[1:] {
				v, err := strconv.ParseFloat(part, 32)
				if err != nil || v < 0 || v > 1 {
					ok = false
					break
				}
				vals[i] = float32(v)
			}
			if ok {
				ann.Box = &YoloBox{CX: vals[0], CY: vals[1], W: vals[2], H: vals[3]}
			}
		}
		// A malformed line still produces an annotation (with Box nil),
		// so that the per-annotation failure accounting sees it.
		anns = append(anns, ann)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Error reading %v: %w", filename, err)
	}
	return anns, nil
}

// readManifest loads a negative manifest: one image file name per line,
// blank lines and #-comments ignored.
func readManifest(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading negative manifest %v: %w", filename, err)
	}
	defer f.Close()
	names := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
