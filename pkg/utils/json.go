package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSONFile marshals data with two-space indentation and writes it atomically
func WriteJSONFile(filePath string, data interface{}, perm os.FileMode) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return AtomicWriteFile(filePath, jsonData, perm)
}

// ReadJSONFile reads a JSON file into target. A missing file is reported
// with an error satisfying os.IsNotExist.
func ReadJSONFile(filePath string, target interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from %s: %w", filePath, err)
	}

	return nil
}

// MarshalJSONString marshals a Go object to a JSON string
func MarshalJSONString(data interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(jsonBytes), nil
}
