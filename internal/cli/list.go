package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/brewlog/internal/query"
	"github.com/roach88/brewlog/internal/record"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Text           string
	Roastery       string
	Cafe           string
	MinScore       int
	MaxScore       int
	From           string
	To             string
	Flavors        []string
	Modes          []string
	Sort           string
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search and list tastings",
		Long: `Search and list tastings. All filters combine with AND.

--text matches coffee, roastery, cafe or origin, ignoring case and Unicode
composition. --from and --to take YYYY-MM-DD (whole days, inclusive) or
RFC 3339 timestamps.

Example:
  brewlog list --text geisha --min 85 --sort score_desc
  brewlog list --flavor Fruity --flavor Floral --from 2026-05-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to list tastings", func(ctx context.Context, a *app, f *OutputFormatter) error {
				p, qopts, err := opts.build(cmd, a.cfg.Stats.Location())
				if err != nil {
					return WrapExitError(ExitFailure, "invalid filter", err)
				}
				recs, err := a.svc.Query(ctx, p, qopts)
				if err != nil {
					return err
				}
				if f.Verbose {
					total, err := a.svc.Count(ctx)
					if err != nil {
						return err
					}
					f.VerboseLog("%d of %d tasting(s) matched", len(recs), total)
				}
				return f.Success(recordList(recs))
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.Text, "text", "", "free-text search")
	fs.StringVar(&opts.Roastery, "roastery", "", "exact roastery")
	fs.StringVar(&opts.Cafe, "cafe", "", "exact cafe")
	fs.IntVar(&opts.MinScore, "min", 0, "minimum total score (inclusive)")
	fs.IntVar(&opts.MaxScore, "max", 100, "maximum total score (inclusive)")
	fs.StringVar(&opts.From, "from", "", "earliest tasting date")
	fs.StringVar(&opts.To, "to", "", "latest tasting date")
	fs.StringArrayVar(&opts.Flavors, "flavor", nil, "top-level flavor, any of (repeatable)")
	fs.StringArrayVar(&opts.Modes, "mode", nil, "cafe|home_brew|lab, any of (repeatable)")
	fs.StringVar(&opts.Sort, "sort", string(query.SortCreatedAtDesc), "created_at_desc|score_desc")
	fs.IntVar(&opts.Limit, "limit", 0, "maximum results (0 = all)")
	fs.IntVar(&opts.Offset, "offset", 0, "results to skip")
	fs.BoolVar(&opts.IncludeDeleted, "deleted", false, "include soft-deleted tastings")

	return cmd
}

func (o *ListOptions) build(cmd *cobra.Command, loc *time.Location) (query.Predicates, query.Options, error) {
	p := query.Predicates{
		Text:           o.Text,
		Roastery:       o.Roastery,
		CafeName:       o.Cafe,
		Flavors:        o.Flavors,
		IncludeDeleted: o.IncludeDeleted,
	}
	if cmd.Flags().Changed("min") {
		p.MinScore = &o.MinScore
	}
	if cmd.Flags().Changed("max") {
		p.MaxScore = &o.MaxScore
	}
	for _, m := range o.Modes {
		mode := record.Mode(m)
		if !mode.Valid() {
			return p, query.Options{}, fmt.Errorf("unknown mode %q", m)
		}
		p.Modes = append(p.Modes, mode)
	}

	var err error
	if p.From, err = parseDate(o.From, loc, false); err != nil {
		return p, query.Options{}, fmt.Errorf("--from: %w", err)
	}
	if p.To, err = parseDate(o.To, loc, true); err != nil {
		return p, query.Options{}, fmt.Errorf("--to: %w", err)
	}

	sort := query.SortOrder(o.Sort)
	if sort != query.SortCreatedAtDesc && sort != query.SortScoreDesc {
		return p, query.Options{}, fmt.Errorf("unknown sort %q", o.Sort)
	}
	if o.Limit < 0 || o.Offset < 0 {
		return p, query.Options{}, fmt.Errorf("limit and offset must be >= 0")
	}
	return p, query.Options{Sort: sort, Limit: o.Limit, Offset: o.Offset}, nil
}

// parseDate accepts YYYY-MM-DD in loc or RFC 3339. A bare date used as an
// upper bound means the last millisecond of that day.
func parseDate(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
