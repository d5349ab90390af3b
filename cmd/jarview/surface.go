package main

import (
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/pkg/browser"
)

// cliRequest is a single jar request issued from the command line
type cliRequest struct {
	u   *url.URL
	out io.Writer

	once sync.Once
	done chan struct{}
	code domain.ErrorCode
	err  error
}

func newCLIRequest(u *url.URL, out io.Writer) *cliRequest {
	return &cliRequest{u: u, out: out, done: make(chan struct{})}
}

func (r *cliRequest) URL() *url.URL { return r.u }

func (r *cliRequest) Reply(_ string, body io.Reader) {
	_, err := io.Copy(r.out, body)
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

func (r *cliRequest) Fail(code domain.ErrorCode) {
	r.once.Do(func() {
		r.code = code
		r.err = fmt.Errorf("request failed: %s", code)
		close(r.done)
	})
}

// browserSurface hands redirects to the desktop browser, or prints them
type browserSurface struct {
	print bool
	out   io.Writer
	open  func(string) error

	navigated chan string
}

func newBrowserSurface(print bool, out io.Writer) *browserSurface {
	return &browserSurface{
		print:     print,
		out:       out,
		open:      browser.OpenURL,
		navigated: make(chan string, 1),
	}
}

func (s *browserSurface) Navigate(u string) {
	if s.print {
		fmt.Fprintln(s.out, u)
	} else if err := s.open(u); err != nil {
		fmt.Fprintf(s.out, "%s (could not open browser: %v)\n", u, err)
	}

	select {
	case s.navigated <- u:
	default:
	}
}
