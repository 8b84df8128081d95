package resolver

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strings"
)

// decodeIdent percent-decodes an identifier. Decoding happens before any
// filesystem join or hashing so encoded and unencoded spellings of the
// same resource share one cache entry. Malformed escapes are passed
// through untouched rather than rejected.
func decodeIdent(ident string) string {
	decoded, err := url.PathUnescape(ident)
	if err != nil {
		return ident
	}
	return decoded
}

// cacheKeyPath derives the cache directory for a decoded identifier,
// relative to the cache root.
//
// Identifiers with colon-delimited pidspace prefixes (Fedora Commons
// style, "space:sub:id") get one literal subdirectory per prefix
// segment; http(s) URIs get the literal root "http". The remainder of
// the path is the MD5 of the re-encoded identifier, split into a 2-char
// head and 3-char tail segments to bound per-directory fan-out.
func cacheKeyPath(ident string) string {
	var subroot string
	switch {
	case strings.HasPrefix(ident, "http:/") || strings.HasPrefix(ident, "https:/"):
		subroot = "http"
	case strings.Contains(ident, ":"):
		segments := strings.Split(ident, ":")
		subroot = filepath.Join(segments[:len(segments)-1]...)
	}

	sum := md5.Sum([]byte(url.QueryEscape(ident)))
	digest := hex.EncodeToString(sum[:])

	chain := []string{digest[:2]}
	for i := 2; i < len(digest); i += 3 {
		end := min(i+3, len(digest))
		chain = append(chain, digest[i:end])
	}

	return filepath.Join(subroot, filepath.Join(chain...))
}
