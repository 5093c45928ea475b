package server

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFilenameBytes = 255

// SanitizeFilename strips path components and control characters so the
// name is safe to store and to echo in Content-Disposition.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}

	filename = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	filename = strings.Trim(filename, " .")

	if len(filename) > maxFilenameBytes {
		ext := filepath.Ext(filename)
		if len(ext) > 16 {
			ext = ""
		}
		base := filename[:maxFilenameBytes-len(ext)]
		for !utf8.ValidString(base) {
			base = base[:len(base)-1]
		}
		filename = base + ext
	}

	if filename == "" {
		filename = "unnamed"
	}
	return filename
}
