package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/gst-bills/constants"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return constants.NormalizeExt(ext)
}

// AllowedExt checks if a file extension is in the allowed set (jpg/jpeg/png).
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
