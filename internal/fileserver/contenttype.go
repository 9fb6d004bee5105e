package fileserver

import (
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
}

// ContentType returns the MIME type for a video container path.
func ContentType(path string) string {
	if ct, ok := videoContentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return defaultContentType
}
