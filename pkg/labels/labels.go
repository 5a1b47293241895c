package labels

import (
	"errors"
	"fmt"
)

// Package labels maps raw annotation labels (as found in source files)
// to canonical concept names. Matching is case-sensitive and exact:
// callers are expected to populate the table exhaustively.

// ErrUnmappedLabel means a raw label was neither in the synonym table
// nor declared ambiguous. This aborts the whole conversion run.
var ErrUnmappedLabel = errors.New("Raw label is not in the synonym table")

// ErrAmbiguousLabel means a raw label is declared ambiguous. The image
// carrying it is excluded from the dataset, but the run continues.
var ErrAmbiguousLabel = errors.New("Raw label is declared ambiguous")

// Table maps raw labels to canonical concept names. Many raw labels may
// map to one canonical name. Labels in Ambiguous are intentionally
// excluded classes: they are not an error, but any image containing one
// is dropped from the dataset.
type Table struct {
	Canonical map[string]string `json:"mapping"`
	Ambiguous []string          `json:"ambiguous"`
}

// DefaultTable returns a table that maps the common synonyms and plural
// forms of 'concept' onto the concept itself, with the usual
// uncertainty markers declared ambiguous.
func DefaultTable(concept string) *Table {
	t := &Table{
		Canonical: map[string]string{
			concept: concept,
		},
		Ambiguous: []string{
			"unknown",
			"ambiguous",
			"unclear",
			"unidentified",
			"uncertain",
			"maybe",
			"possibly",
			"questionable",
			"unsure",
		},
	}
	if concept == "chicken" {
		for _, syn := range []string{"chickens", "rooster", "chick", "hen", "cock", "roosters", "chicks", "hens", "cocks"} {
			t.Canonical[syn] = concept
		}
	}
	return t
}

// Normalize returns the canonical concept name for a raw label.
func (t *Table) Normalize(raw string) (string, error) {
	if canonical, ok := t.Canonical[raw]; ok {
		return canonical, nil
	}
	if t.IsAmbiguous(raw) {
		return "", fmt.Errorf("%w: '%v'", ErrAmbiguousLabel, raw)
	}
	return "", fmt.Errorf("%w: '%v'", ErrUnmappedLabel, raw)
}

func (t *Table) IsAmbiguous(raw string) bool {
	for _, a := range t.Ambiguous {
		if a == raw {
			return true
		}
	}
	return false
}
