package output

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// Diff returns a unified diff between the YAML renderings of two values,
// or "" when they are equal
func Diff(oldObj, newObj interface{}, resourceName string) (string, error) {
	oldYAML, err := toYAML(oldObj)
	if err != nil {
		return "", fmt.Errorf("failed to marshal old object: %w", err)
	}

	newYAML, err := toYAML(newObj)
	if err != nil {
		return "", fmt.Errorf("failed to marshal new object: %w", err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldYAML),
		B:        difflib.SplitLines(newYAML),
		FromFile: fmt.Sprintf("current/%s", resourceName),
		ToFile:   fmt.Sprintf("updated/%s", resourceName),
		Context:  3,
	}

	diffText, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to generate diff: %w", err)
	}
	return diffText, nil
}

func toYAML(value interface{}) (string, error) {
	generic, err := Generic(value)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
