package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects paths with traversal components or embedded NUL
// bytes. Used for the config file and database paths taken from flags and
// environment variables. Absolute paths are allowed; the deployment decides
// where state lives.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains NUL byte")
	}

	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}
