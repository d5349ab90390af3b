package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/datallboy/jarview/internal/infra/logger"
	"github.com/datallboy/jarview/internal/lister"
	"github.com/datallboy/jarview/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 10 * time.Second

const twoRows = `printf '100 Jan 1 2020 foo.txt\n200 Jan 2 2020 bar.txt\n'`

type fixture struct {
	d        *Dispatcher
	outDir   string
	archive  string
	surface  *testutil.Surface
	recorder *testutil.Recorder
}

func newFixture(t *testing.T, tool lister.Tool, opts Options) *fixture {
	t.Helper()

	base := t.TempDir()
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(base, "Jarview-Jar")
	}

	archive := filepath.Join(base, "a.jar")
	require.NoError(t, os.WriteFile(archive, []byte("PK\x03\x04"), 0o600))

	f := &fixture{
		outDir:   opts.OutputDir,
		archive:  archive,
		surface:  testutil.NewSurface(),
		recorder: &testutil.Recorder{},
	}
	f.d = New(tool, opts, logger.Nop(), f.recorder)
	f.d.SetSurface(f.surface)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.d.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestDispatcher_ListingReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: twoRows}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, 1, req.Replies())
	assert.Equal(t, 0, req.Fails())
	assert.Equal(t, "text/html", req.ContentType())
	require.NoError(t, req.ReadErr())

	body := req.Body()
	assert.Equal(t, 2, strings.Count(body, "<tr>\n<td>"))
	assert.Contains(t, body, `<a href="jar://`+f.archive+`?foo.txt">foo.txt</a>`)
	assert.Contains(t, body, `<a href="jar://`+f.archive+`?bar.txt">bar.txt</a>`)

	require.Eventually(t, func() bool { return len(f.recorder.Snapshot()) == 1 }, waitFor, 10*time.Millisecond)
	rec := f.recorder.Snapshot()[0]
	assert.Equal(t, domain.StatusReplied, rec.Status)
	assert.Equal(t, domain.ModeList, rec.Mode)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(len(body)), rec.Bytes)
}

func TestDispatcher_EmptyOutputFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: `true`}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, 0, req.Replies())
	assert.Equal(t, domain.RequestFailed, req.Code())
}

func TestDispatcher_UnreadableArchiveStillReplies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: `exit 1`}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar:///definitely/not/here.jar")
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, 1, req.Replies())
	require.NoError(t, req.ReadErr())
	assert.Contains(t, req.Body(), "The file /definitely/not/here.jar is not readable.")
}

func TestDispatcher_ExtractRedirectsSurface(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{Extract: `exit 2`}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive + "?foo.txt")
	f.d.Handle(context.Background(), req)

	select {
	case u := <-f.surface.URLs:
		assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(f.outDir, "foo.txt")), u)
	case <-time.After(waitFor):
		t.Fatal("surface was never redirected")
	}

	require.Eventually(t, func() bool { return len(f.recorder.Snapshot()) == 1 }, waitFor, 10*time.Millisecond)
	assert.False(t, req.Answered(), "redirected requests are never replied to or failed")
	assert.Equal(t, domain.StatusRedirected, f.recorder.Snapshot()[0].Status)
}

// navigatingRequest carries its own surface, like the HTTP adapter
type navigatingRequest struct {
	*testutil.Request
	urls chan string
}

func (r *navigatingRequest) Navigate(u string) { r.urls <- u }

func TestDispatcher_ExtractPrefersRequestSurface(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{Extract: `true`}, Options{})
	f.start(t)

	req := &navigatingRequest{Request: testutil.NewRequest("jar://" + f.archive + "?foo.txt"), urls: make(chan string, 1)}
	f.d.Handle(context.Background(), req)

	select {
	case u := <-req.urls:
		assert.True(t, strings.HasSuffix(u, "/foo.txt"))
	case <-time.After(waitFor):
		t.Fatal("request surface was never redirected")
	}
	assert.Empty(t, f.surface.URLs)
}

func TestDispatcher_ExtractWithoutSurfaceFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{Extract: `true`}, Options{})
	f.d.SetSurface(nil)
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive + "?foo.txt")
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, domain.RequestFailed, req.Code())
}

func TestDispatcher_StrictExtractFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{Extract: `exit 2`}, Options{StrictExtract: true})
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive + "?foo.txt")
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, domain.RequestFailed, req.Code())
	assert.Empty(t, f.surface.URLs)
}

func TestDispatcher_InvalidURL(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: `touch spawned`}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar://host/a.jar")
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, domain.URLInvalid, req.Code())
	assert.NoFileExists(t, filepath.Join(f.outDir, "spawned"))
}

func TestDispatcher_RejectsTraversalMember(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{Extract: `true`}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive + "?../../escape.txt")
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, domain.URLInvalid, req.Code())
}

func TestDispatcher_LaunchFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &lister.CLIJar{BinaryPath: "/nonexistent/jar-binary-12345"}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, domain.RequestFailed, req.Code())
}

func TestDispatcher_SerializesRequests(t *testing.T) {
	t.Parallel()

	// each run appends start/end markers to a shared log in the output dir
	script := `echo start >> order.log; sleep 0.2; echo end >> order.log; printf '1 d x.txt\n'`
	f := newFixture(t, testutil.ScriptTool{List: script}, Options{})

	first := testutil.NewRequest("jar://" + f.archive)
	second := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), first)
	f.d.Handle(context.Background(), second)
	assert.Equal(t, 2, f.d.Pending())

	f.start(t)

	require.True(t, first.Wait(waitFor))
	require.True(t, second.Wait(waitFor))
	assert.Equal(t, 1, first.Replies())
	assert.Equal(t, 1, second.Replies())

	data, err := os.ReadFile(filepath.Join(f.outDir, "order.log"))
	require.NoError(t, err)
	assert.Equal(t, "start\nend\nstart\nend\n", string(data))
}

func TestDispatcher_ActiveWhileRunning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: `sleep 0.5; printf '1 d x\n'`}, Options{})
	f.start(t)

	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), req)

	require.Eventually(t, func() bool {
		u, ok := f.d.Active()
		return ok && u == "jar://"+f.archive
	}, waitFor, 5*time.Millisecond)

	require.True(t, req.Wait(waitFor))
	require.Eventually(t, func() bool {
		_, ok := f.d.Active()
		return !ok
	}, waitFor, 5*time.Millisecond)
}

func TestDispatcher_DuplicateRequestIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: twoRows}, Options{})

	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), req)
	f.d.Handle(context.Background(), req)
	assert.Equal(t, 1, f.d.Pending())

	f.start(t)

	require.True(t, req.Wait(waitFor))
	require.Eventually(t, func() bool { return len(f.recorder.Snapshot()) == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, 1, req.Replies())
}

func TestDispatcher_QueueFullDenies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: twoRows}, Options{QueueSize: 1})

	first := testutil.NewRequest("jar://" + f.archive)
	second := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), first)
	f.d.Handle(context.Background(), second)

	require.True(t, second.Answered())
	assert.Equal(t, domain.RequestDenied, second.Code())
	assert.False(t, first.Answered())
}

func TestDispatcher_RequestCancelledWhileRunning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: `exec sleep 30`}, Options{})
	f.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(ctx, req)

	require.Eventually(t, func() bool {
		_, ok := f.d.Active()
		return ok
	}, waitFor, 5*time.Millisecond)
	cancel()

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, domain.RequestAborted, req.Code())
}

func TestDispatcher_RequestCancelledWhileQueued(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: twoRows}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(ctx, req)
	cancel()

	f.start(t)

	require.True(t, req.Wait(waitFor))
	assert.Equal(t, domain.RequestAborted, req.Code())
}

func TestDispatcher_StopAbortsQueued(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: twoRows}, Options{})
	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), req)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.d.Start(ctx)

	require.True(t, req.Answered())
	assert.Equal(t, domain.RequestAborted, req.Code())
}

func TestDispatcher_HandleAfterStopAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.ScriptTool{List: twoRows}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.d.Start(ctx)

	req := testutil.NewRequest("jar://" + f.archive)
	f.d.Handle(context.Background(), req)

	require.True(t, req.Wait(2*time.Second))
	assert.Equal(t, domain.RequestAborted, req.Code())
	assert.Equal(t, 0, f.d.Pending())

	recs := f.recorder.Snapshot()
	require.NotEmpty(t, recs)
	assert.Equal(t, domain.StatusFailed, recs[len(recs)-1].Status)
}
