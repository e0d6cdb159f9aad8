package packline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// BuildError carries the bundler's messages when a build fails.
type BuildError struct {
	Errors   []api.Message
	Warnings []api.Message
}

func (e *BuildError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("build failed: %s", e.Errors[0].Text)
	}
	return fmt.Sprintf("build failed with %d errors", len(e.Errors))
}

// FormatError renders an error for the terminal. Validation errors become
// an aligned issue list, build errors go through esbuild's own message
// formatter (locations, source excerpts, notes), anything else renders
// its Error string.
func FormatError(err error, color bool) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return formatIssues(verr.Issues)
	}

	var berr *BuildError
	if errors.As(err, &berr) {
		var sb strings.Builder
		sb.WriteString(strings.Join(api.FormatMessages(berr.Errors, api.FormatMessagesOptions{
			Kind:  api.ErrorMessage,
			Color: color,
		}), ""))
		sb.WriteString(strings.Join(api.FormatMessages(berr.Warnings, api.FormatMessagesOptions{
			Kind:  api.WarningMessage,
			Color: color,
		}), ""))
		return sb.String()
	}

	return err.Error()
}

func formatIssues(issues []Issue) string {
	width := 0
	for _, issue := range issues {
		if len(issue.Field) > width {
			width = len(issue.Field)
		}
	}

	var sb strings.Builder
	sb.WriteString("invalid configuration:\n")
	for _, issue := range issues {
		fmt.Fprintf(&sb, "  %-*s  %s\n", width, issue.Field, issue.Message)
	}
	return sb.String()
}
