package static

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultMimeType = "application/octet-stream"

// builtinTypes pins the common web types so responses do not depend on the
// host's mime.types.
var builtinTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".wasm": "application/wasm",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
}

// MimeTypeForExtension returns the content type for ext, with or without the
// leading dot. Unknown extensions give "".
func MimeTypeForExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	if t, ok := builtinTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return ""
}

// ContentType picks the type for a file: by extension first, then by
// sniffing data.
func ContentType(path string, data []byte) string {
	if t := MimeTypeForExtension(filepath.Ext(path)); t != "" {
		return t
	}
	if len(data) == 0 {
		return defaultMimeType
	}
	return mimetype.Detect(data).String()
}
