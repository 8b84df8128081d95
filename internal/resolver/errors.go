package resolver

import "fmt"

// Kind classifies resolution failures. Every kind maps to a not-found
// outcome for callers; only configuration problems (reported as plain
// errors from the constructors) are fatal.
type Kind int

const (
	KindNotFound Kind = iota
	KindSourceNotFound
	KindFormatUndetermined
	KindBadRequest
)

// Error is a resolution failure with two messages: PublicMessage is safe
// to show to clients (it never contains source URLs), while Error()
// returns the detailed variant intended for logs.
type Error struct {
	Kind          Kind
	PublicMessage string
	LogMessage    string
}

func (e *Error) Error() string {
	if e.LogMessage != "" {
		return e.LogMessage
	}
	return e.PublicMessage
}

func errNotFound(ident string) *Error {
	msg := fmt.Sprintf("source image not found for identifier: %s", ident)
	return &Error{Kind: KindNotFound, PublicMessage: msg}
}

func errSourceNotFound(ident, url string, status int) *Error {
	return &Error{
		Kind:          KindSourceNotFound,
		PublicMessage: fmt.Sprintf("source image not found for identifier: %s (status: %d)", ident, status),
		LogMessage:    fmt.Sprintf("source image not found at %s for identifier: %s (status: %d)", url, ident, status),
	}
}

func errFormatUndetermined(ident string) *Error {
	msg := fmt.Sprintf("format could not be determined for: %s", ident)
	return &Error{Kind: KindFormatUndetermined, PublicMessage: msg}
}

func errBadRequest(ident string) *Error {
	msg := fmt.Sprintf("bad URL request made for identifier: %s", ident)
	return &Error{Kind: KindBadRequest, PublicMessage: msg}
}
