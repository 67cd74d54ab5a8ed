// Package deps resolves the external binaries the render pipeline shells
// out to. Checks use PATH lookup only; nothing is executed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names one external binary and how ClipForge uses it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the lookup outcome for a single requirement. Detail is empty
// when the binary resolved.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves every requirement in order, one Status per entry.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	switch {
	case status.Command == "":
		status.Detail = "command not configured"
	case !onPath(status.Command):
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
	default:
		status.Available = true
	}
	return status
}

func onPath(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
