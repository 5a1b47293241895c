package saco

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSONAtomic writes v as indented JSON to filename via a temp file
// and a rename, so a crashed or cancelled run can never leave a partial
// artifact behind that looks valid.
func WriteJSONAtomic(filename string, v any) error {
	tempFile := filename + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("Failed to create '%v': %w", tempFile, err)
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		f.Close()
		os.Remove(tempFile)
		return fmt.Errorf("Failed to write '%v': %w", tempFile, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}
	return os.Rename(tempFile, filename)
}

// Save publishes the dataset artifact atomically.
func (d *Dataset) Save(filename string) error {
	return WriteJSONAtomic(filename, d)
}

// LoadDataset reads a dataset artifact from a JSON file.
func LoadDataset(filename string) (*Dataset, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	ds := &Dataset{}
	if err := json.Unmarshal(b, ds); err != nil {
		return nil, fmt.Errorf("Error loading %v as JSON: %w", filename, err)
	}
	return ds, nil
}
