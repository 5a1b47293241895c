package labels

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadTable loads a synonym table from a JSON file of the form
// {"mapping": {"hen": "chicken", ...}, "ambiguous": ["unknown", ...]}.
func LoadTable(filename string) (*Table, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading label mapping %v: %w", filename, err)
	}
	table := &Table{}
	if err := json.Unmarshal(b, table); err != nil {
		return nil, fmt.Errorf("Error loading label mapping %v as JSON: %w", filename, err)
	}
	if table.Canonical == nil {
		table.Canonical = map[string]string{}
	}
	return table, nil
}

// LoadClassList loads a text file with one raw class name per line
// (YOLO classes.txt). Line order defines the class index.
func LoadClassList(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading class list %v: %w", filename, err)
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	return classes, scanner.Err()
}

// SaveTable writes a synonym table as indented JSON.
func SaveTable(filename string, t *Table) error {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}
