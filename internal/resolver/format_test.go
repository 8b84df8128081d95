package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromIdent(t *testing.T) {
	tests := []struct {
		ident  string
		format string
	}{
		{"img.tiff", "tif"},
		{"img.JPEG", "jpg"},
		{"img.jpg", "jpg"},
		{"img.jp2", "jp2"},
		{"some/path/img.PNG", "png"},
		{"img.webp", "webp"},
		// Unrecognized short extensions pass through lowercased.
		{"img.BMP", "bmp"},
	}
	for _, tt := range tests {
		format, err := FormatFromIdent(tt.ident)
		require.NoError(t, err, tt.ident)
		assert.Equal(t, tt.format, format, tt.ident)
	}
}

func TestFormatFromIdentUndetermined(t *testing.T) {
	for _, ident := range []string{"noext", "archive.tar.backup", "trailing."} {
		_, err := FormatFromIdent(ident)
		require.Error(t, err, ident)

		var resErr *Error
		require.True(t, errors.As(err, &resErr), ident)
		assert.Equal(t, KindFormatUndetermined, resErr.Kind)
	}
}

func TestFormatFromMediaType(t *testing.T) {
	format, ok := formatFromMediaType("image/jpeg")
	require.True(t, ok)
	assert.Equal(t, "jpg", format)

	format, ok = formatFromMediaType("image/tiff; charset=binary")
	require.True(t, ok)
	assert.Equal(t, "tif", format)

	_, ok = formatFromMediaType("text/html")
	assert.False(t, ok)
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MediaType("jpg"))
	assert.Equal(t, "image/jp2", MediaType("jp2"))
	assert.Equal(t, "application/octet-stream", MediaType("xyz"))
}
