package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateLocalPath rejects paths with directory traversal components.
// Used for config and database paths taken from flags or config files.
func ValidateLocalPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}

// ValidateObjectKey checks that a blob-store key stays inside the bucket
// namespace: relative, traversal-free, forward slashes only.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("object key must be relative: %s", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("object key contains invalid segment: %s", key)
		}
	}
	return nil
}
