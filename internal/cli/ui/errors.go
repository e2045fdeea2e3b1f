package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Details      []string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ ENTITY TYPE NOT FOUND: Pst
//	   Cannot find entity type 'Pst'.
//
//	   Did you mean: Post?
//
//	   → See all entity types: modelforge describe
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
		if opts.Problem != "" {
			bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
		}
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Details) > 0 {
		b.WriteString("\n")
		for _, detail := range opts.Details {
			// Multi-line details (hints) stay aligned under their bullet
			lines := strings.Split(detail, "\n")
			bodyColor.Fprintf(&b, "   • %s\n", lines[0])
			for _, line := range lines[1:] {
				bodyColor.Fprintf(&b, "     %s\n", strings.TrimSpace(line))
			}
		}
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// EntityTypeNotFoundError reports an entity type name that is not in the model
func EntityTypeNotFoundError(name string, candidates []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "ENTITY TYPE NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find entity type '%s'.", name),
		Suggestions: Suggest(name, candidates, 3),
		HelpCommands: []string{
			"See all entity types: modelforge describe",
		},
		NoColor: noColor,
	})
}

// ModelError renders an error returned while building or finalizing a model.
// Validation failures list every finding; other errors are shown as one line.
func ModelError(err error, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "MODEL INVALID",
		HelpCommands: []string{
			"Check the model definitions and try again: modelforge validate",
		},
		NoColor: noColor,
	}

	var verrs *metadata.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		opts.Problem = fmt.Sprintf("Finalization found %d error(s).", len(verrs.Errors))
		for _, v := range verrs.Errors {
			opts.Details = append(opts.Details, v.Error())
		}
	case metadata.IsConflict(err):
		opts.Context = "CONFIGURATION CONFLICT"
		opts.Problem = "Two explicit settings disagree."
		opts.Details = splitJoined(err)
	default:
		opts.Problem = "The model could not be built."
		opts.Details = splitJoined(err)
	}
	return FormatError(opts)
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat modelforge.yaml",
			"Get help: modelforge --help",
		},
		NoColor: noColor,
	})
}

// Warnings renders finalization warnings, or nothing when there are none
func Warnings(warnings []string, noColor bool) string {
	if len(warnings) == 0 {
		return ""
	}
	return FormatError(ErrorOptions{
		Level:   ErrorLevelWarning,
		Context: "WARNINGS",
		Problem: fmt.Sprintf("%d warning(s) during finalization.", len(warnings)),
		Details: warnings,
		NoColor: noColor,
	})
}

// splitJoined lists the errors joined by errors.Join one per detail line
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
