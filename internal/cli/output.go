package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stopover/internal/harness"
	"github.com/roach88/stopover/internal/vclock"
)

// Exit statuses of the stopover binary.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario ran and failed, or did not validate
	ExitCommandError = 2 // the command could not do its job: bad path, unusable database
)

// Codes carried in the error field of JSON responses.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002" // scenario directory could not be walked
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004" // scenario did not parse or validate
	ErrCodeNotFound    = "E005"
	ErrCodeWriteFailed = "E007" // golden file could not be written

	ErrCodeRunFailed   = "E101" // a step or assertion failed
	ErrCodeStoreFailed = "E102"
	ErrCodeRunNotFound = "E103"
)

// ExitError ends a command with a specific exit status.
type ExitError struct {
	Code    int // ExitFailure or ExitCommandError
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to an exit status. Nil is success; an error with no
// ExitError in its chain counts as a scenario failure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return ExitFailure
	}
	return exitErr.Code
}

// Response is the envelope of every --format json document.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	RunID  string         `json:"run_id,omitempty"`
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError is the error part of a Response.
type ResponseError struct {
	Code    string `json:"code"` // one of the ErrCode constants
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func okResponse(data any, runID string) Response {
	return Response{Status: "ok", RunID: runID, Data: data}
}

func errorResponse(code, message string, details any) Response {
	return Response{
		Status: "error",
		Error:  &ResponseError{Code: code, Message: message, Details: details},
	}
}

// writeResponse writes resp as indented JSON.
func writeResponse(w io.Writer, resp Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// printer writes a command's output in the format picked by --format.
// Diagnostics go to their own writer so they never interleave with a JSON
// document on out.
type printer struct {
	json    bool
	verbose bool
	out     io.Writer
	diag    io.Writer
}

func newPrinter(opts *RootOptions, cmd *cobra.Command) *printer {
	return &printer{
		json:    opts.Format == "json",
		verbose: opts.Verbose,
		out:     cmd.OutOrStdout(),
		diag:    cmd.ErrOrStderr(),
	}
}

// fail reports a command-level error as a JSON error response, or as an
// "Error [code]: message" line.
func (p *printer) fail(code, message string, details any) error {
	if p.json {
		return writeResponse(p.out, errorResponse(code, message, details))
	}
	fmt.Fprintf(p.out, "Error [%s]: %s\n", code, message)
	if p.verbose && details != nil {
		fmt.Fprintf(p.out, "Details: %v\n", details)
	}
	return nil
}

// debugf writes a diagnostic line when --verbose is set.
func (p *printer) debugf(format string, args ...any) {
	if p.verbose {
		fmt.Fprintf(p.diag, format+"\n", args...)
	}
}

var journeyHints = map[vclock.ErrorCode]string{
	vclock.ErrCodeConcurrentJourney: "the clock was already travelling",
	vclock.ErrCodeScheduledAsync:    "a scheduled function outlived its turn",
	vclock.ErrCodeCallbackFailed:    "a scheduled function failed",
}

// describeFailure renders a failed step as one line of text, e.g.
// "steps[1] on solo: a scheduled function failed [CALLBACK_FAILED]".
func describeFailure(f harness.StepFailure) string {
	var what string
	switch {
	case f.Code != "":
		hint, ok := journeyHints[vclock.ErrorCode(f.Code)]
		if !ok {
			hint = "journey refused"
		}
		what = fmt.Sprintf("%s [%s]", hint, f.Code)
		if f.Expect != "" {
			what += ", expected " + f.Expect
		}
	case f.Expect != "":
		what = "did not fail with " + f.Expect
	default:
		what = "travel aborted"
	}
	return fmt.Sprintf("steps[%d] on %s: %s", f.Step, f.Target, what)
}
