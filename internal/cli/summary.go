package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/brewlog/internal/insight"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics",
		Long: `Show the journal dashboard: totals, mode split, top roasteries, cafes
and coffees, the monthly trend, score distribution, flavor profile,
preferences and journey.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to compute statistics", func(ctx context.Context, a *app, f *OutputFormatter) error {
				d, err := a.svc.Dashboard(ctx)
				if err != nil {
					return err
				}
				return f.Success(dashboardView{d})
			})
		},
	}
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "compare <roastery> <coffee>",
		Short:         "Summarize every tasting of one coffee",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to compare", func(ctx context.Context, a *app, f *OutputFormatter) error {
				c, err := a.svc.Compare(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return f.Success(comparisonView(c))
			})
		},
	}
}

// NewInsightsCommand creates the insights command.
func NewInsightsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		period string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show insights for the recent period",
		Long: `Show insights for the last week or month. At least three are always
shown: with no recent tastings you get examples, otherwise missing slots
are filled with encouragements.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := insight.Period(period)
			if p != insight.PeriodWeekly && p != insight.PeriodMonthly {
				f := newFormatter(rootOpts, cmd)
				return f.Fail("invalid period", NewExitError(ExitFailure, fmt.Sprintf("unknown period %q", period)))
			}
			return withApp(rootOpts, cmd, "failed to evaluate insights", func(ctx context.Context, a *app, f *OutputFormatter) error {
				n := a.cfg.Insights.Limit
				if cmd.Flags().Changed("limit") {
					n = limit
				}
				in, err := a.svc.Insights(ctx, p, n)
				if err != nil {
					return err
				}
				return f.Success(insightList(in))
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(insight.PeriodWeekly), "weekly|monthly")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum insights (never below 3; default from config)")
	return cmd
}

// NewAchievementsCommand creates the achievements command.
func NewAchievementsCommand(rootOpts *RootOptions) *cobra.Command {
	var unlockedOnly bool

	cmd := &cobra.Command{
		Use:           "achievements",
		Short:         "Show achievement progress",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to evaluate achievements", func(ctx context.Context, a *app, f *OutputFormatter) error {
				list, err := a.svc.Achievements(ctx)
				if err != nil {
					return err
				}
				if unlockedOnly {
					kept := list[:0]
					for _, x := range list {
						if x.Unlocked() {
							kept = append(kept, x)
						}
					}
					list = kept
				}
				return f.Success(achievementList(list))
			})
		},
	}
	cmd.Flags().BoolVar(&unlockedOnly, "unlocked", false, "only show unlocked achievements")
	return cmd
}
