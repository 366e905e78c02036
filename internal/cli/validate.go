package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationError describes one scenario file that failed to load.
type ValidationError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios []string          `json:"scenarios"` // names of valid scenarios
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>",
		Short: "Validate scenarios without running them",
		Long: `Parse and validate scenario files without executing any travel.

Checks syntax, unknown fields, the CUE schema for .cue files, and
cross references (events and steps naming declared clocks, group
steps needing a scaled clock). Every file is checked; all problems
are reported at once.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	p := newPrinter(opts, cmd)

	loadResult, loadErrors := LoadScenarios(path, "", LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(p, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(p, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	p.debugf("Found %d scenario file(s) in %s", loadResult.FileCount, path)

	result := ValidationResult{Scenarios: []string{}}
	for _, loaded := range loadResult.Scenarios {
		p.debugf("Valid: %s (%s)", loaded.Scenario.Name, loaded.Path)
		result.Scenarios = append(result.Scenarios, loaded.Scenario.Name)
	}

	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, ValidationError{
				Path:    loadErr.Path,
				Code:    loadErr.Code,
				Message: loadErr.Message,
			})
			continue
		}
		result.Errors = append(result.Errors, ValidationError{Code: ErrCodeGeneric, Message: err.Error()})
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(p, result)
	}

	result.Valid = true
	if p.json {
		return writeResponse(p.out, okResponse(result, ""))
	}
	fmt.Fprintf(p.out, "✓ All scenarios valid (%d)\n", len(result.Scenarios))
	return nil
}

// outputValidateError reports an unusable path. That is a command error, not
// a validation failure.
func outputValidateError(p *printer, code, message string, details any) error {
	if err := p.fail(code, message, details); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors reports every file that failed to load. The first
// error doubles as the response error.
func outputValidationErrors(p *printer, result ValidationResult) error {
	errs := result.Errors
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if p.json {
		resp := errorResponse(errs[0].Code, errs[0].Message, nil)
		resp.Data = result
		if err := writeResponse(p.out, resp); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(p.out, "✗ Validation failed")
	fmt.Fprintln(p.out)
	for _, err := range errs {
		if err.Path != "" {
			fmt.Fprintln(p.out, err.Path)
		}
		fmt.Fprintf(p.out, "  %s: %s\n\n", err.Code, err.Message)
	}
	return failed
}
