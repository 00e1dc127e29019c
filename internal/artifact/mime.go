package artifact

import (
	"path"
	"strings"
)

// DefaultExtension is used for unknown or absent MIME types.
const DefaultExtension = ".bin"

// DefaultContentType is used when an extension is not in the table.
const DefaultContentType = "application/octet-stream"

var extensionByMIME = map[string]string{
	"image/jpeg":       ".jpg",
	"image/jpg":        ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/bmp":        ".bmp",
	"image/svg+xml":    ".svg",
	"application/pdf":  ".pdf",
	"text/plain":       ".txt",
	"application/json": ".json",
	"application/xml":  ".xml",
	"text/xml":         ".xml",
}

var contentTypeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".json": "application/json",
	".xml":  "application/xml",
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
}

// ExtensionForMIME maps a MIME type to its canonical extension. Parameters
// such as "; charset=utf-8" are ignored.
func ExtensionForMIME(mimeType string) string {
	mt := normalizeMIME(mimeType)
	if ext, ok := extensionByMIME[mt]; ok {
		return ext
	}
	return DefaultExtension
}

// ContentTypeForName maps a file or object name to a content type by its
// extension.
func ContentTypeForName(name string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	if ct, ok := contentTypeByExtension[ext]; ok {
		return ct
	}
	return DefaultContentType
}

// ExtensionFromURL returns the extension of a URL path when it looks like one
// (at most five characters including the dot), else the extension for
// contentType.
func ExtensionFromURL(rawURL, contentType string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if ext := path.Ext(p); ext != "" && len(ext) <= 5 && !strings.Contains(ext, "/") {
		return strings.ToLower(ext)
	}
	if strings.TrimSpace(contentType) != "" {
		return ExtensionForMIME(contentType)
	}
	return DefaultExtension
}

func normalizeMIME(mimeType string) string {
	mt := strings.TrimSpace(mimeType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
