package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/datallboy/jarview/internal/app"
	"github.com/datallboy/jarview/internal/scheme"
	"github.com/labstack/echo/v5"
)

// JarPrefix is the route jar:// URLs are served under
const JarPrefix = "/jar"

type JarController struct {
	App *app.Context
}

// Handle maps /jar/<path>[?<member>] onto jar:///<path>[?<member>] and waits
// for the dispatcher to answer it
func (ctrl *JarController) Handle(c *echo.Context) error {
	r := c.Request()

	u := &url.URL{
		Scheme:   scheme.Name,
		Path:     "/" + strings.TrimLeft(strings.TrimPrefix(r.URL.Path, JarPrefix), "/"),
		RawQuery: r.URL.RawQuery,
	}
	if u.Path == "/" {
		return c.String(http.StatusBadRequest, "archive path required")
	}

	req := newHTTPRequest(u, ctrl.App.Config.Jar.OutputDir)
	ctrl.App.Dispatcher.Handle(r.Context(), req)

	select {
	case <-req.done:
	case <-r.Context().Done():
		// Client went away, nothing left to write to
		return nil
	}

	switch req.status {
	case http.StatusOK:
		return c.Blob(http.StatusOK, req.contentType, req.body)
	case http.StatusFound:
		return c.Redirect(http.StatusFound, req.location)
	default:
		return c.String(req.status, http.StatusText(req.status))
	}
}

// HandleFile serves an extracted member out of the output directory
func (ctrl *JarController) HandleFile(c *echo.Context) error {
	rel := strings.TrimPrefix(c.Request().URL.Path, FilesPrefix)

	p, err := scheme.MemberPath(ctrl.App.Config.Jar.OutputDir, rel)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid path")
	}

	http.ServeFile(c.Response(), c.Request(), p)
	return nil
}
