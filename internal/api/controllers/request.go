package controllers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/datallboy/jarview/internal/scheme"
)

// FilesPrefix is the route extracted members are served from
const FilesPrefix = "/files/"

// httpRequest adapts one HTTP round trip to domain.Request. It is also a
// domain.Surface, so a redirect lands on the same client as a 302.
type httpRequest struct {
	u      *url.URL
	outDir string

	once sync.Once
	done chan struct{}

	status      int
	contentType string
	body        []byte
	location    string
}

func newHTTPRequest(u *url.URL, outDir string) *httpRequest {
	return &httpRequest{u: u, outDir: outDir, done: make(chan struct{})}
}

func (r *httpRequest) URL() *url.URL { return r.u }

func (r *httpRequest) Reply(contentType string, body io.Reader) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		r.Fail(domain.RequestFailed)
		return
	}

	r.finish(func() {
		r.status = http.StatusOK
		r.contentType = contentType
		r.body = buf.Bytes()
	})
}

func (r *httpRequest) Fail(code domain.ErrorCode) {
	r.finish(func() {
		r.status = StatusFor(code)
	})
}

// Navigate turns file://<outDir>/<member> into a redirect to the files route
func (r *httpRequest) Navigate(fileURL string) {
	location, err := r.filesLocation(fileURL)
	if err != nil {
		r.Fail(domain.RequestFailed)
		return
	}

	r.finish(func() {
		r.status = http.StatusFound
		r.location = location
	})
}

func (r *httpRequest) filesLocation(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(filepath.Clean(r.outDir), filepath.FromSlash(u.Path))
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", scheme.ErrEscapesOutputDir, fileURL)
	}

	return (&url.URL{Path: FilesPrefix + filepath.ToSlash(rel)}).EscapedPath(), nil
}

func (r *httpRequest) finish(set func()) {
	r.once.Do(func() {
		set()
		close(r.done)
	})
}

// StatusFor maps a request error code to the HTTP status sent to the client
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.NoError:
		return http.StatusOK
	case domain.URLNotFound:
		return http.StatusNotFound
	case domain.URLInvalid:
		return http.StatusBadRequest
	case domain.RequestDenied:
		return http.StatusForbidden
	case domain.RequestAborted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
