package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	ErrLookup     = errors.New("catalog lookup failed")
	ErrProvision  = errors.New("provisioning failed")
	ErrRelocation = errors.New("relocation failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind reports a short classification label for err, used as the quarantine
// reason in logs, notifications, and CLI output. Pipeline stage markers take
// precedence over the underlying cause.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLookup):
		return "lookup"
	case errors.Is(err, ErrProvision):
		return "provisioning"
	case errors.Is(err, ErrRelocation):
		return "relocation"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "transient"
	}
}

// Hint returns an operator-facing next step for the classified failure.
func Hint(err error) string {
	switch Kind(err) {
	case "validation":
		return "rename the folder to <catalog-id>_<scanner-name> and release it"
	case "configuration":
		return "check hotfolder paths and permissions in config.toml"
	case "lookup":
		return "verify the catalog id and catalog availability, then release the entry"
	case "provisioning":
		return "check the workflow template and units directory, then release the entry"
	case "relocation":
		return "check free space and permissions of the units directory, then release the entry"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
