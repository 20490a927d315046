package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/record"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(purgeResult{Purged: 3})
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   purgeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(3), resp.Data.Purged)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeNotFound, "no such tasting", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "no such tasting", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

type greeting string

func (g greeting) renderText(w io.Writer) { fmt.Fprintf(w, "hello, %s\n", string(g)) }

func TestOutputFormatter_TextSuccess(t *testing.T) {
	t.Run("plain value", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, formatter.Success("all good"))
		assert.Equal(t, "all good\n", buf.String())
	})

	t.Run("renderer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, formatter.Success(greeting("barista")))
		assert.Equal(t, "hello, barista\n", buf.String())
	})
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error(ErrCodeValidation, "invalid tasting", []string{"roastery"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E101]")
	assert.Contains(t, buf.String(), "invalid tasting")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error(ErrCodeValidation, "invalid tasting", []string{"roastery"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E101]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Opening %s", "brewlog.db")

			assert.Empty(t, out.String(), "verbose output must not corrupt stdout")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Opening brewlog.db")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitCommandError},
		{"exit error", NewExitError(ExitFailure, "bad input"), ExitFailure},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitFailure, "bad input")), ExitFailure},
		{"command error", WrapExitError(ExitCommandError, "db", errors.New("locked")), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "bad input", NewExitError(ExitFailure, "bad input").Error())

	inner := errors.New("locked")
	wrapped := WrapExitError(ExitCommandError, "open database", inner)
	assert.Equal(t, "open database: locked", wrapped.Error())
	assert.ErrorIs(t, wrapped, inner)
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{
			name:     "validation",
			err:      fmt.Errorf("create: %w", &record.ValidationError{Errors: []record.FieldError{{Field: "roastery", Message: "is required"}}}),
			wantCode: ErrCodeValidation,
			wantExit: ExitFailure,
		},
		{
			name:     "not found",
			err:      &record.NotFoundError{ID: "rec-0042"},
			wantCode: ErrCodeNotFound,
			wantExit: ExitFailure,
		},
		{
			name:     "catalogue",
			err:      &catalog.LoadError{Errors: []catalog.ValidationError{{Field: "rules", Message: "duplicate id"}}},
			wantCode: ErrCodeCatalog,
			wantExit: ExitFailure,
		},
		{
			name:     "usage",
			err:      NewExitError(ExitFailure, "no fields given"),
			wantCode: ErrCodeUsage,
			wantExit: ExitFailure,
		},
		{
			name:     "internal",
			err:      errors.New("disk I/O error"),
			wantCode: ErrCodeInternal,
			wantExit: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail("failed", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, "failed: ")
		})
	}
}
