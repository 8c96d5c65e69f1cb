package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReferenceData lists the neighborhoods and property types created at
// start-up.
type ReferenceData struct {
	Neighborhoods []string `json:"neighborhoods"`
	PropertyTypes []string `json:"property_types"`
}

// LoadReferenceData reads a reference data file. Blank and repeated names
// are dropped.
func LoadReferenceData(path string) (*ReferenceData, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference data file: %w", err)
	}

	var ref ReferenceData
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("failed to parse reference data: %w", err)
	}

	ref.Neighborhoods = uniqueNames(ref.Neighborhoods)
	ref.PropertyTypes = uniqueNames(ref.PropertyTypes)
	return &ref, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
