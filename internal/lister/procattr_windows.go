//go:build windows

package lister

import "os/exec"

// setProcessGroup keeps exec's default Cancel (Process.Kill) on Windows.
func setProcessGroup(_ *exec.Cmd) {}
