package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/brewlog/internal/catalog"
)

// CatalogValidation holds catalogue validation results.
type CatalogValidation struct {
	Valid          bool                      `json:"valid"`
	Source         string                    `json:"source"`
	Rules          int                       `json:"rules,omitempty"`
	Encouragements int                       `json:"encouragements,omitempty"`
	Examples       int                       `json:"examples,omitempty"`
	Achievements   int                       `json:"achievements,omitempty"`
	Errors         []catalog.ValidationError `json:"errors,omitempty"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with the insight and achievement catalogue",
	}
	cmd.AddCommand(newCatalogValidateCommand(rootOpts))
	return cmd
}

func newCatalogValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file.cue]",
		Short: "Validate a rule catalogue",
		Long: `Validate a CUE rule catalogue against the catalogue schema and the
semantic checks (unique ids, enough examples and encouragements, valid
templates and requirements).

Without a file, validates the catalogue the journal would use: the
configured catalog.path, or the built-in default.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogValidate(rootOpts, args, cmd)
		},
	}
}

func runCatalogValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var (
		c      *catalog.Catalog
		err    error
		source string
	)
	if len(args) == 1 {
		source = args[0]
		c, err = catalog.LoadFile(source)
	} else {
		cfg, cfgErr := loadConfig(opts)
		if cfgErr != nil {
			return formatter.Fail("failed to load config", WrapExitError(ExitCommandError, "config", cfgErr))
		}
		source = cfg.Catalog.Path
		if source == "" {
			source = "(built-in)"
		}
		c, err = loadCatalog(cfg)
	}
	formatter.VerboseLog("Validating catalogue %s", source)

	if err != nil {
		errs, ok := catalogErrors(err)
		if !ok {
			return formatter.Fail("failed to read catalogue", err)
		}
		return outputCatalogErrors(formatter, source, errs)
	}

	return formatter.Success(CatalogValidation{
		Valid:          true,
		Source:         source,
		Rules:          len(c.Rules),
		Encouragements: len(c.Encouragements),
		Examples:       len(c.Examples),
		Achievements:   len(c.Achievements),
	})
}

// catalogErrors flattens a catalogue load failure into validation errors.
// ok is false for failures that are not about catalogue content.
func catalogErrors(err error) ([]catalog.ValidationError, bool) {
	var (
		lerr *catalog.LoadError
		cerr *catalog.CompileError
	)
	switch {
	case errors.As(err, &lerr):
		return lerr.Errors, true
	case errors.As(err, &cerr):
		return []catalog.ValidationError{{
			Field:   cerr.Field,
			Message: cerr.Message,
			Code:    ErrCodeCatalog,
			Line:    lineOf(cerr),
		}}, true
	default:
		return nil, false
	}
}

func outputCatalogErrors(formatter *OutputFormatter, source string, errs []catalog.ValidationError) error {
	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeCatalog, "catalogue validation failed", CatalogValidation{
			Valid:  false,
			Source: source,
			Errors: errs,
		})
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s: %d error(s)\n", source, len(errs))
		for _, e := range errs {
			if e.Line > 0 {
				fmt.Fprintf(formatter.Writer, "  [%s] line %d: %s: %s\n", e.Code, e.Line, e.Field, e.Message)
			} else {
				fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", e.Code, e.Field, e.Message)
			}
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("catalogue has %d error(s)", len(errs)))
}
