// Package filex contains small filesystem helpers for on-device case
// artifacts (captured photos, downloaded PDFs, temporary exports).
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates (if needed) and returns a subdirectory of root.
func EnsureSubDir(root, name string) (string, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// CaseArtifactDir returns the directory holding on-device artifacts for a
// case, creating it if it does not exist yet.
func CaseArtifactDir(root, caseID string) (string, error) {
	return EnsureSubDir(filepath.Join(root, "cases"), caseID)
}

// RemoveCaseArtifacts deletes every on-device artifact belonging to the
// given case. A case that never had artifacts is not an error.
func RemoveCaseArtifacts(root, caseID string) error {
	dir := filepath.Join(root, "cases", caseID)
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifacts %s: %w", dir, err)
	}
	return nil
}
