package platform

import (
	"fmt"
	"os/exec"
)

// RequiredBinaries lists external system binaries the app needs to function
var RequiredBinaries = []string{
	"jar",
}

// ValidateDependencies checks the jar tool is reachable and returns its
// resolved path. binary overrides the default name and may be an absolute path.
func ValidateDependencies(binary string) (string, error) {
	bins := RequiredBinaries
	if binary != "" {
		bins = []string{binary}
	}

	var resolved string
	for _, bin := range bins {
		path, err := exec.LookPath(bin)
		if err != nil {
			return "", fmt.Errorf("required dependency: '%s' not found in PATH: %w", bin, err)
		}
		if resolved == "" {
			resolved = path
		}
	}

	return resolved, nil
}
