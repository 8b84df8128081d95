package resolver

import (
	"mime"
	"strings"
)

// Long-form extensions normalized to the short format names the image
// pipeline uses.
var extensionMap = map[string]string{
	"jpeg": "jpg",
	"tiff": "tif",
}

var formatsByMediaType = map[string]string{
	"image/jpeg":      "jpg",
	"image/tiff":      "tif",
	"image/png":       "png",
	"image/jp2":       "jp2",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"application/pdf": "pdf",
}

var mediaTypesByFormat = map[string]string{
	"jpg":  "image/jpeg",
	"tif":  "image/tiff",
	"png":  "image/png",
	"jp2":  "image/jp2",
	"webp": "image/webp",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
}

// FormatFromIdent derives a format from the identifier's trailing
// extension. Extensions of 5+ characters are assumed to be part of the
// name rather than a real extension. Short extensions not in the
// normalization table pass through lowercased.
func FormatFromIdent(ident string) (string, error) {
	dot := strings.LastIndex(ident, ".")
	if dot != -1 {
		extension := ident[dot+1:]
		if len(extension) > 0 && len(extension) < 5 {
			extension = strings.ToLower(extension)
			if format, ok := extensionMap[extension]; ok {
				return format, nil
			}
			return extension, nil
		}
	}
	return "", errFormatUndetermined(ident)
}

// formatFromMediaType maps a content-type header value (parameters
// stripped) to a format name.
func formatFromMediaType(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	format, ok := formatsByMediaType[strings.ToLower(mediaType)]
	return format, ok
}

// MediaType returns the content type for a format name, or
// application/octet-stream for formats it does not know.
func MediaType(format string) string {
	if mediaType, ok := mediaTypesByFormat[format]; ok {
		return mediaType
	}
	return "application/octet-stream"
}
