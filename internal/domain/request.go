package domain

import (
	"io"
	"net/url"
)

// ErrorCode mirrors the failure codes a browser url-request job understands.
type ErrorCode int

const (
	NoError ErrorCode = iota
	URLNotFound
	URLInvalid
	RequestAborted
	RequestDenied
	RequestFailed
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "no_error"
	case URLNotFound:
		return "url_not_found"
	case URLInvalid:
		return "url_invalid"
	case RequestAborted:
		return "request_aborted"
	case RequestDenied:
		return "request_denied"
	case RequestFailed:
		return "request_failed"
	default:
		return "unknown"
	}
}

// Request is one inbound navigation to the jar scheme.
// Exactly one of Reply or Fail is called, at most once. Redirected
// requests get neither.
type Request interface {
	URL() *url.URL
	Reply(contentType string, body io.Reader)
	Fail(code ErrorCode)
}

// Surface is the web view that renders pages and follows redirects.
type Surface interface {
	Navigate(url string)
}
