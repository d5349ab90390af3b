// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"io"
	"net/url"
	"os/exec"
	"sync"
	"time"

	"github.com/datallboy/jarview/internal/domain"
)

// ScriptTool stands in for the jar binary with a shell script.
// Inside the script $1 is the archive path and $2 the member.
type ScriptTool struct {
	List    string
	Extract string
}

func (s ScriptTool) Name() string { return "sh" }

func (s ScriptTool) Command(ctx context.Context, target domain.Target) *exec.Cmd {
	script := s.List
	if target.HasMember {
		script = s.Extract
	}
	return exec.CommandContext(ctx, "sh", "-c", script, "sh", target.Path, target.Member)
}

// Request records what the dispatcher did with it.
type Request struct {
	u *url.URL

	mu          sync.Mutex
	replies     int
	fails       int
	contentType string
	body        []byte
	code        domain.ErrorCode
	readErr     error
	done        chan struct{}
	once        sync.Once
}

func NewRequest(raw string) *Request {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return &Request{u: u, done: make(chan struct{})}
}

func (r *Request) URL() *url.URL { return r.u }

func (r *Request) Reply(contentType string, body io.Reader) {
	data, err := io.ReadAll(body)

	r.mu.Lock()
	r.replies++
	r.contentType = contentType
	r.body = data
	r.readErr = err
	r.mu.Unlock()

	r.once.Do(func() { close(r.done) })
}

func (r *Request) Fail(code domain.ErrorCode) {
	r.mu.Lock()
	r.fails++
	r.code = code
	r.mu.Unlock()

	r.once.Do(func() { close(r.done) })
}

// Wait reports whether the request was answered within d
func (r *Request) Wait(d time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (r *Request) Answered() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Request) Replies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replies
}

func (r *Request) Fails() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fails
}

func (r *Request) ContentType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contentType
}

// ReadErr is the error hit while draining the reply body, if any
func (r *Request) ReadErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

func (r *Request) Body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.body)
}

func (r *Request) Code() domain.ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

// Surface collects navigations
type Surface struct {
	URLs chan string
}

func NewSurface() *Surface {
	return &Surface{URLs: make(chan string, 8)}
}

func (s *Surface) Navigate(u string) {
	s.URLs <- u
}

// Recorder keeps records in memory
type Recorder struct {
	mu      sync.Mutex
	Records []domain.RequestRecord
}

func (r *Recorder) Record(_ context.Context, rec *domain.RequestRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, *rec)
	return nil
}

func (r *Recorder) Snapshot() []domain.RequestRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RequestRecord, len(r.Records))
	copy(out, r.Records)
	return out
}
