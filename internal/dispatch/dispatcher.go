// Package dispatch feeds jar requests to listing workers one at a time.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/datallboy/jarview/internal/infra/logger"
	"github.com/datallboy/jarview/internal/lister"
	"github.com/datallboy/jarview/internal/scheme"
	"github.com/segmentio/ksuid"
)

const DefaultQueueSize = 16

var errDispatcherStopped = errors.New("dispatcher stopped")

// Recorder persists request outcomes. Optional.
type Recorder interface {
	Record(ctx context.Context, rec *domain.RequestRecord) error
}

type Options struct {
	// OutputDir is the working directory for the tool and the root of redirects
	OutputDir     string
	StrictExtract bool
	QueueSize     int
	Linker        scheme.Linker
}

type job struct {
	ctx    context.Context
	req    domain.Request
	record *domain.RequestRecord
	log    *logger.Logger
}

type Dispatcher struct {
	mu       sync.Mutex
	tool     lister.Tool
	opts     Options
	log      *logger.Logger
	recorder Recorder
	surface  domain.Surface

	queue   []*job
	active  *job
	stopped bool

	newJobChan chan struct{}
}

func New(tool lister.Tool, opts Options, log *logger.Logger, recorder Recorder) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	return &Dispatcher{
		tool:       tool,
		opts:       opts,
		log:        log,
		recorder:   recorder,
		newJobChan: make(chan struct{}, 1),
	}
}

// SetSurface binds the web view redirects are sent to.
func (d *Dispatcher) SetSurface(s domain.Surface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surface = s
}

// Handle queues req. It never blocks; the Start loop answers it.
// A request that is already queued or active is ignored, so req must be
// comparable (in practice, a pointer). ctx scopes the request: cancelling
// it fails the request with RequestAborted and kills its tool.
func (d *Dispatcher) Handle(ctx context.Context, req domain.Request) {
	if req == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rec := &domain.RequestRecord{
		ID:        ksuid.New().String(),
		URL:       urlString(req),
		Status:    domain.StatusQueued,
		CreatedAt: time.Now(),
	}
	j := &job{ctx: ctx, req: req, record: rec, log: d.log.With("request", rec.ID)}

	d.mu.Lock()
	if d.owns(req) {
		d.mu.Unlock()
		d.log.Debug("Ignoring duplicate request for %s", rec.URL)
		return
	}

	if d.stopped {
		d.mu.Unlock()
		d.fail(j, domain.RequestAborted, errDispatcherStopped)
		return
	}

	if len(d.queue) >= d.opts.QueueSize {
		d.mu.Unlock()
		d.fail(j, domain.RequestDenied, domain.ErrQueueFull)
		return
	}

	d.queue = append(d.queue, j)
	d.mu.Unlock()

	j.log.Debug("Queued %s", rec.URL)

	// Signal the Start() loop that there is work to do
	select {
	case d.newJobChan <- struct{}{}:
	default:
		// Signal already pending, no need to block
	}
}

// Start serves queued requests until ctx is cancelled. Anything still
// queued at that point, or handed in afterwards, fails with RequestAborted.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.stopped = false
	d.mu.Unlock()

	for {
		d.mu.Lock()
		var next *job
		if len(d.queue) > 0 {
			next = d.queue[0]
			d.queue = d.queue[1:]
		}
		d.active = next
		d.mu.Unlock()

		if next == nil {
			select {
			case <-d.newJobChan:
				continue
			case <-ctx.Done():
				d.abortQueued()
				return
			}
		}

		d.process(ctx, next)

		d.mu.Lock()
		d.active = nil
		d.mu.Unlock()

		if ctx.Err() != nil {
			d.abortQueued()
			return
		}
	}
}

// Active returns the URL of the request being worked on, if any
func (d *Dispatcher) Active() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return "", false
	}
	return d.active.record.URL, true
}

// Pending returns how many requests wait behind the active one
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) process(ctx context.Context, j *job) {
	if j.ctx.Err() != nil {
		d.fail(j, domain.RequestAborted, j.ctx.Err())
		return
	}

	target, err := scheme.FromURL(j.req.URL())
	if err != nil {
		d.fail(j, domain.URLInvalid, err)
		return
	}
	j.record.Mode = target.Mode()

	if target.HasMember {
		if _, err := scheme.MemberPath(d.opts.OutputDir, target.Member); err != nil {
			d.fail(j, domain.URLInvalid, err)
			return
		}
	}

	// The worker dies with whichever goes first: the dispatcher or the request
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(j.ctx, cancel)
	defer stop()

	j.record.Status = domain.StatusRunning
	j.log.Info("%s %s", target.Mode(), target.Path)

	w := lister.Start(jobCtx, d.tool, target, lister.Options{
		WorkDir:       d.opts.OutputDir,
		StrictExtract: d.opts.StrictExtract,
		Linker:        d.opts.Linker,
	}, j.log)
	defer w.Close()

	ev, ok := <-w.Events()
	if !ok {
		cause := context.Cause(jobCtx)
		if j.ctx.Err() != nil {
			cause = j.ctx.Err()
		}
		d.fail(j, domain.RequestAborted, cause)
		return
	}

	d.deliver(j, ev)
}

func (d *Dispatcher) deliver(j *job, ev lister.Event) {
	switch {
	case ev.Failed():
		d.fail(j, ev.Code, ev.Err)

	case len(ev.Payload) == 0:
		d.fail(j, domain.RequestFailed, domain.ErrEmptyOutput)

	case ev.Redirect:
		fileURL, err := scheme.FileURL(d.opts.OutputDir, string(ev.Payload))
		if err != nil {
			d.fail(j, domain.URLInvalid, err)
			return
		}

		surface := d.surfaceFor(j.req)
		if surface == nil {
			d.fail(j, domain.RequestFailed, domain.ErrNoSurface)
			return
		}

		// The request itself is left unanswered; the surface moves on
		surface.Navigate(fileURL)

		j.record.Status = domain.StatusRedirected
		j.record.Redirect = fileURL
		j.record.Bytes = int64(len(ev.Payload))
		j.log.Info("Redirected to %s", fileURL)
		d.save(j)

	default:
		j.req.Reply("text/html", bytes.NewReader(ev.Payload))

		j.record.Status = domain.StatusReplied
		j.record.Bytes = int64(len(ev.Payload))
		j.log.Debug("Replied with %d bytes", len(ev.Payload))
		d.save(j)
	}
}

// surfaceFor prefers a request that can navigate itself (the HTTP adapter)
func (d *Dispatcher) surfaceFor(req domain.Request) domain.Surface {
	if s, ok := req.(domain.Surface); ok {
		return s
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surface
}

func (d *Dispatcher) fail(j *job, code domain.ErrorCode, err error) {
	if err == nil {
		err = errors.New(code.String())
	}

	j.req.Fail(code)

	j.record.Status = domain.StatusFailed
	j.record.ErrorCode = code
	j.record.Error = err.Error()

	if code == domain.RequestAborted {
		j.log.Debug("Request aborted: %v", err)
	} else {
		j.log.Warn("Request failed (%s): %v", code, err)
	}
	d.save(j)
}

func (d *Dispatcher) save(j *job) {
	j.record.FinishedAt = time.Now()

	if d.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.recorder.Record(ctx, j.record); err != nil {
		j.log.Error("Failed to record request: %v", err)
	}
}

func (d *Dispatcher) abortQueued() {
	d.mu.Lock()
	d.stopped = true
	queued := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, j := range queued {
		d.fail(j, domain.RequestAborted, errDispatcherStopped)
	}
}

// owns reports whether req is already active or queued. Caller holds d.mu.
func (d *Dispatcher) owns(req domain.Request) bool {
	if d.active != nil && d.active.req == req {
		return true
	}
	for _, j := range d.queue {
		if j.req == req {
			return true
		}
	}
	return false
}

func urlString(req domain.Request) string {
	if u := req.URL(); u != nil {
		return u.String()
	}
	return ""
}
