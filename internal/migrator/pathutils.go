package migrator

import (
	"fmt"
	"path/filepath"
	"strings"
)

// normalizePath приводит путь к виду file://<абсолютный путь>.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fmt.Sprintf("file://%s", filepath.ToSlash(path))
}
