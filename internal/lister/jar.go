package lister

import (
	"context"
	"os/exec"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/datallboy/jarview/internal/platform"
)

// Tool builds the external command for a target
type Tool interface {
	// Name returns the human-readable tool name (e.g. "jar")
	Name() string

	// Command returns an unstarted command that lists or extracts target.
	// The worker sets the working directory and output plumbing.
	Command(ctx context.Context, target domain.Target) *exec.Cmd
}

type CLIJar struct {
	BinaryPath string
}

// NewCLIJar creates a jar tool backed by the given binary (defaults to "jar" on PATH)
func NewCLIJar(binary string) (*CLIJar, error) {
	path, err := platform.ValidateDependencies(binary)
	if err != nil {
		return nil, err
	}
	return &CLIJar{BinaryPath: path}, nil
}

// Name returns the tool name
func (j *CLIJar) Name() string {
	return "jar"
}

// Command builds the jar invocation for target
func (j *CLIJar) Command(ctx context.Context, target domain.Target) *exec.Cmd {
	return exec.CommandContext(ctx, j.BinaryPath, Args(target)...)
}

// Args returns the jar arguments for target.
func Args(target domain.Target) []string {
	if target.HasMember {
		// jar -f <archive> -x <member>
		// -x = extract the named member into the working directory
		return []string{"-f", target.Path, "-x", target.Member}
	}

	// jar -f <archive> -t -v
	// -t = table of contents
	// -v = verbose (size and date columns)
	return []string{"-f", target.Path, "-t", "-v"}
}
