package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadHeaders reads extra request headers from a JSON file mapping
// header names to values. An empty path yields nil without error.
func LoadHeaders(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers file: %w", err)
	}

	var headers map[string]string
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("failed to parse headers file: %w", err)
	}

	return headers, nil
}
