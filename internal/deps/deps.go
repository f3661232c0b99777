// Package deps checks that the external commands work unit steps rely on are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"hotfolder/internal/workunit"
)

// Requirement defines an external command the daemon relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the step shell plus the first command of every
// automatic step script in template. Script commands are optional since a
// script may start with a shell builtin.
func Requirements(shell string, template *workunit.Unit) []Requirement {
	reqs := []Requirement{{
		Name:        "Step shell",
		Command:     strings.TrimSpace(shell),
		Description: "Runs automatic step scripts",
	}}
	if template == nil {
		return reqs
	}
	seen := map[string]struct{}{}
	for _, step := range template.Steps {
		if !step.Automatic {
			continue
		}
		command := scriptCommand(step.Script)
		if command == "" {
			continue
		}
		if _, dup := seen[command]; dup {
			continue
		}
		seen[command] = struct{}{}
		reqs = append(reqs, Requirement{
			Name:        step.Title,
			Command:     command,
			Description: fmt.Sprintf("Used by step %q", step.Title),
			Optional:    true,
		})
	}
	return reqs
}

// scriptCommand returns the program a script starts with, or "" when the
// first word is an assignment or expansion that cannot be resolved statically.
func scriptCommand(script string) string {
	fields := strings.Fields(script)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if strings.ContainsAny(first, "$=`(){};|&<>") {
		return ""
	}
	return first
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			out = append(out, status)
		}
	}
	return out
}
