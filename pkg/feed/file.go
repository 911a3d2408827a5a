package feed

import (
	"encoding/json"
	"fmt"
	"os"

	"waterfall/pkg/waterfall"
)

// LoadFile reads a JSON array of items.
func LoadFile(path string) ([]waterfall.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []waterfall.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}

// SaveFile writes items as an indented JSON array.
func SaveFile(path string, items []waterfall.Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
