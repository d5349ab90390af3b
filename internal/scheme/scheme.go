// Package scheme parses and builds jar:// URLs and the file URLs
// extracted members are served from.
package scheme

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/datallboy/jarview/internal/domain"
)

const Name = "jar"

var (
	ErrInvalidURL       = errors.New("invalid jar url")
	ErrEscapesOutputDir = errors.New("member escapes output directory")
)

// Linker builds the href a listing row points at.
type Linker func(archive, member string) string

// Parse turns jar://<path>[?<member>] into a Target.
func Parse(raw string) (domain.Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return domain.Target{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return FromURL(u)
}

// FromURL is Parse for an already parsed URL.
func FromURL(u *url.URL) (domain.Target, error) {
	if u == nil || !strings.EqualFold(u.Scheme, Name) {
		return domain.Target{}, fmt.Errorf("%w: scheme must be %s", ErrInvalidURL, Name)
	}

	// jar://host/path would silently drop the host
	if u.Host != "" {
		return domain.Target{}, fmt.Errorf("%w: unexpected host %q, use jar:///absolute/path", ErrInvalidURL, u.Host)
	}

	if u.Path == "" {
		return domain.Target{}, fmt.Errorf("%w: missing archive path", ErrInvalidURL)
	}

	t := domain.Target{Path: u.Path}

	if u.RawQuery != "" || u.ForceQuery {
		member, err := url.PathUnescape(u.RawQuery)
		if err != nil {
			member = u.RawQuery
		}
		if member == "" {
			return domain.Target{}, fmt.Errorf("%w: empty member", ErrInvalidURL)
		}
		t.Member = member
		t.HasMember = true
	}

	return t, nil
}

// Link builds jar://<archive>?<member>.
func Link(archive, member string) string {
	return Name + "://" + archive + "?" + escapeMember(member)
}

// PrefixLinker links rows back through an HTTP route instead of the jar scheme.
func PrefixLinker(prefix string) Linker {
	prefix = strings.TrimRight(prefix, "/")
	return func(archive, member string) string {
		if !strings.HasPrefix(archive, "/") {
			archive = "/" + archive
		}
		return prefix + escapeMember(archive) + "?" + escapeMember(member)
	}
}

// FileURL builds file://<outDir>/<member>, refusing members that climb out of outDir.
func FileURL(outDir, member string) (string, error) {
	p, err := MemberPath(outDir, member)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	return u.String(), nil
}

// MemberPath joins member onto outDir and checks the result stays inside it.
func MemberPath(outDir, member string) (string, error) {
	root := filepath.Clean(outDir)
	p := filepath.Join(root, filepath.FromSlash(member))

	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrEscapesOutputDir, member)
	}
	return p, nil
}

func escapeMember(member string) string {
	return (&url.URL{Path: member}).EscapedPath()
}
