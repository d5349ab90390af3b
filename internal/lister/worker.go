// Package lister runs the archive tool for one jar request and turns its
// output into either a listing page or a redirect.
package lister

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/datallboy/jarview/internal/infra/logger"
	"github.com/datallboy/jarview/internal/render"
	"github.com/datallboy/jarview/internal/scheme"
)

type State int32

const (
	StateLaunching State = iota
	StateReading
	StateFinished
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLaunching:
		return "launching"
	case StateReading:
		return "reading"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is the single terminal outcome of a Worker.
// A non-zero Code marks an error event; otherwise Payload holds the
// listing HTML or, when Redirect is set, the member name.
type Event struct {
	Payload  []byte
	Redirect bool
	Code     domain.ErrorCode
	Err      error
	ExitCode int
}

func (e Event) Failed() bool {
	return e.Code != domain.NoError
}

type Options struct {
	// WorkDir is where the tool runs and extracted members land
	WorkDir string

	// StrictExtract fails extract requests whose tool exits non-zero
	StrictExtract bool

	// Linker builds listing row hrefs, jar:// when nil
	Linker scheme.Linker

	// WaitDelay bounds how long output pipes are drained after a kill
	WaitDelay time.Duration
}

type Worker struct {
	target domain.Target
	opts   Options
	log    *logger.Logger

	cancel context.CancelFunc
	events chan Event
	done   chan struct{}

	state     atomic.Int32
	closeOnce sync.Once

	mu     sync.Mutex
	cmd    *exec.Cmd
	output bytes.Buffer
	chunks int
}

// Start creates the worker and launches the tool right away.
// The returned Worker must be closed by the caller.
func Start(ctx context.Context, tool Tool, target domain.Target, opts Options, log *logger.Logger) *Worker {
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)

	w := &Worker{
		target: target,
		opts:   opts,
		log:    log,
		cancel: cancel,
		events: make(chan Event, 1),
		done:   make(chan struct{}),
	}

	go w.run(ctx, tool)

	return w
}

// Events delivers at most one terminal event, then closes.
// A worker closed before its tool exits emits nothing.
func (w *Worker) Events() <-chan Event {
	return w.events
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Output returns a copy of everything the tool has written so far
func (w *Worker) Output() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bytes.Clone(w.output.Bytes())
}

// Close kills the tool if it is still running and waits for the worker to wind down.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		<-w.done
	})
	return nil
}

func (w *Worker) run(ctx context.Context, tool Tool) {
	defer close(w.done)
	defer close(w.events)

	if err := os.MkdirAll(w.opts.WorkDir, 0755); err != nil {
		w.fail(fmt.Errorf("failed to create output dir: %w", err))
		return
	}

	cmd := tool.Command(ctx, w.target)
	cmd.Dir = w.opts.WorkDir
	cmd.Stdout = outputWriter{w}
	cmd.WaitDelay = w.opts.WaitDelay
	setProcessGroup(cmd)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	w.mu.Lock()
	w.cmd = cmd
	w.mu.Unlock()

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			w.state.Store(int32(StateClosed))
			return
		}
		w.fail(fmt.Errorf("%s failed to start: %w", tool.Name(), err))
		return
	}

	w.state.Store(int32(StateReading))
	w.log.Debug("%s started (pid %d) for %s", tool.Name(), cmd.Process.Pid, w.target.Path)

	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		w.state.Store(int32(StateClosed))
		w.log.Debug("%s for %s killed before completion", tool.Name(), w.target.Path)
		return
	}

	w.mu.Lock()
	w.log.Debug("%s exited after %d output chunks (%d bytes)", tool.Name(), w.chunks, w.output.Len())
	w.mu.Unlock()

	if waitErr != nil && stderr.Len() > 0 {
		w.log.Warn("%s exited with %v: %s", tool.Name(), waitErr, bytes.TrimSpace(stderr.Bytes()))
	}

	ev := w.finish(waitErr)
	if ev.Failed() {
		w.state.Store(int32(StateFailed))
	} else {
		w.state.Store(int32(StateFinished))
	}
	w.events <- ev
}

func (w *Worker) finish(waitErr error) Event {
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	if w.target.HasMember {
		if w.opts.StrictExtract && waitErr != nil {
			return Event{
				Code:     domain.RequestFailed,
				Err:      fmt.Errorf("extracting %s failed: %w", w.target.Member, waitErr),
				ExitCode: exitCode,
			}
		}

		// Redirect regardless of how the tool exited
		return Event{Payload: []byte(w.target.Member), Redirect: true, ExitCode: exitCode}
	}

	readable := isReadableFile(w.target.Path)
	out := w.Output()

	if readable && len(out) == 0 {
		// Empty payload: the dispatcher fails the request
		return Event{ExitCode: exitCode}
	}

	var page bytes.Buffer
	err := render.Render(&page, render.Page{
		Title:    w.target.Path,
		Readable: readable,
		Entries:  render.ParseListing(out),
	}, w.opts.Linker)
	if err != nil {
		return Event{Code: domain.RequestFailed, Err: err, ExitCode: exitCode}
	}

	return Event{Payload: page.Bytes(), ExitCode: exitCode}
}

func (w *Worker) fail(err error) {
	w.log.Error("%v", err)
	w.state.Store(int32(StateFailed))
	w.events <- Event{Code: domain.RequestFailed, Err: err, ExitCode: -1}
}

// outputWriter receives stdout as the tool produces it
type outputWriter struct {
	w *Worker
}

func (o outputWriter) Write(p []byte) (int, error) {
	o.w.mu.Lock()
	o.w.output.Write(p)
	o.w.chunks++
	o.w.mu.Unlock()
	return len(p), nil
}

// isReadableFile reports whether path is a regular file we can open
func isReadableFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
