package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/record"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input (validation failure, unknown id, invalid catalogue)
	ExitCommandError = 2 // Command error (unreadable config, database unavailable, etc.)
)

// Error codes carried in JSON error responses.
const (
	ErrCodeInternal   = "E100"
	ErrCodeValidation = "E101"
	ErrCodeNotFound   = "E102"
	ErrCodeCatalog    = "E103"
	ErrCodeUsage      = "E104"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError (2) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E101", "E102", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// textRenderer is implemented by payloads with a human-readable layout.
type textRenderer interface {
	renderText(w io.Writer)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if r, ok := data.(textRenderer); ok {
		r.renderText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns the ExitError the
// command should return. Validation and not-found failures exit 1,
// everything else exits 2.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit, details := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), details)
	return WrapExitError(exit, message, err)
}

func classify(err error) (code string, exit int, details any) {
	var (
		verr   *record.ValidationError
		nerr   *record.NotFoundError
		lerr   *catalog.LoadError
		cerr   *catalog.CompileError
		exitEr *ExitError
	)
	switch {
	case errors.As(err, &verr):
		return ErrCodeValidation, ExitFailure, verr.Errors
	case errors.As(err, &nerr):
		return ErrCodeNotFound, ExitFailure, map[string]string{"id": nerr.ID}
	case errors.As(err, &lerr):
		return ErrCodeCatalog, ExitFailure, lerr.Errors
	case errors.As(err, &cerr):
		return ErrCodeCatalog, ExitFailure, catalog.ValidationError{
			Field:   cerr.Field,
			Message: cerr.Message,
			Code:    ErrCodeCatalog,
			Line:    lineOf(cerr),
		}
	case errors.As(err, &exitEr):
		if exitEr.Code == ExitFailure {
			return ErrCodeUsage, ExitFailure, nil
		}
		return ErrCodeInternal, exitEr.Code, nil
	default:
		return ErrCodeInternal, ExitCommandError, nil
	}
}

func lineOf(e *catalog.CompileError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
