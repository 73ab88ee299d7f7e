package mediatypes

import (
	"path/filepath"
	"strings"
)

const (
	// Folder is the type reported for directories in listings.
	Folder = "folder"
	// Image is the format of files the captioning service accepts.
	Image = "image"
	// Unknown is the format of files without an extension.
	Unknown = "unknown"
)

// ImageExtensions lists the extensions classified as Image, without the dot.
var ImageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// MimeTypes maps lowercase extensions (with the leading dot) to MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",

	// Documents
	".txt":  "text/plain; charset=utf-8",
	".pdf":  "application/pdf",
	".json": "application/json",
}

// uploadExtensions maps accepted upload MIME types to the extension used for
// the stored file.
var uploadExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Extension returns the lowercase extension of name without the leading dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Classify returns the record format for a file name: Image for jpg, jpeg,
// png and webp, otherwise the lowercase extension, or Unknown when there is
// none.
func Classify(name string) string {
	ext := Extension(name)
	switch {
	case ext == "":
		return Unknown
	case ImageExtensions[ext]:
		return Image
	default:
		return ext
	}
}

// IsImage reports whether name would be sent to the captioning service.
func IsImage(name string) bool {
	return Classify(name) == Image
}

// GetMimeType returns the MIME type for a file name.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(name string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// UploadExtension returns the extension to store an upload of the given MIME
// type under, and false if uploads of that type are not accepted.
func UploadExtension(mimeType string) (string, bool) {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	ext, ok := uploadExtensions[strings.ToLower(strings.TrimSpace(mimeType))]
	return ext, ok
}
