package constants

import "strings"

// AllowedExtensions holds the allowed file extensions for logbook ingestion.
// The upstream export service only produces PDF.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
