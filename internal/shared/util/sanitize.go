package util

import (
	"errors"
	"strings"
)

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// SanitizeFileName flattens path separators in an uploaded file name and
// rejects names carrying traversal sequences.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	cleaned := pathSeparators.Replace(strings.TrimSpace(name))
	if cleaned == "" {
		return "", errors.New("invalid file name")
	}
	return cleaned, nil
}
