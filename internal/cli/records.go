package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/brewlog/internal/record"
)

// draftFlags binds the content fields shared by add and update.
type draftFlags struct {
	Roastery     string
	Coffee       string
	Cafe         string
	Origin       string
	Variety      string
	Process      string
	Temperature  string
	Mode         string
	Method       string
	FlavorScore  int
	SensoryScore int
	Flavors      []string
	Sensory      map[string]string
	Comment      string
}

func (d *draftFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&d.Roastery, "roastery", "", "roastery name")
	fs.StringVar(&d.Coffee, "coffee", "", "coffee name")
	fs.StringVar(&d.Cafe, "cafe", "", "cafe name")
	fs.StringVar(&d.Origin, "origin", "", "origin country or region")
	fs.StringVar(&d.Variety, "variety", "", "coffee variety")
	fs.StringVar(&d.Process, "process", "", "processing method")
	fs.StringVar(&d.Temperature, "temperature", "", "hot|cold (default hot)")
	fs.StringVar(&d.Mode, "mode", "", "cafe|home_brew|lab (default cafe)")
	fs.StringVar(&d.Method, "method", "", "brew method, for home_brew and lab tastings")
	fs.IntVar(&d.FlavorScore, "flavor-score", 0, "flavor score 0..100")
	fs.IntVar(&d.SensoryScore, "sensory-score", 0, "sensory score 0..100")
	fs.StringArrayVar(&d.Flavors, "flavor", nil, `flavor path, broad to specific, e.g. "Fruity>Berry>Blueberry" (repeatable)`)
	fs.StringToStringVar(&d.Sensory, "sensory", nil, "sensory sliders 1..7 and mouthfeel, e.g. body=5,acidity=6,mouthfeel=juicy; unset sliders are 3")
	fs.StringVar(&d.Comment, "comment", "", "personal comment")
}

func (d *draftFlags) draft() (record.Draft, error) {
	out := record.Draft{
		Roastery:        d.Roastery,
		CoffeeName:      d.Coffee,
		CafeName:        d.Cafe,
		Origin:          d.Origin,
		Variety:         d.Variety,
		Process:         d.Process,
		Temperature:     record.Temperature(d.Temperature),
		Mode:            record.Mode(d.Mode),
		FlavorScore:     d.FlavorScore,
		SensoryScore:    d.SensoryScore,
		FlavorNotes:     parseFlavors(d.Flavors),
		PersonalComment: d.Comment,
	}
	if d.Method != "" {
		out.Recipe = &record.BrewRecipe{Method: d.Method}
	}
	if len(d.Sensory) > 0 {
		s, err := parseSensory(d.Sensory)
		if err != nil {
			return record.Draft{}, err
		}
		out.Sensory = s
	}
	return out, nil
}

// patch sets only the fields whose flags were given.
func (d *draftFlags) patch(cmd *cobra.Command) (record.Patch, error) {
	changed := cmd.Flags().Changed
	str := func(name, v string) *string {
		if changed(name) {
			return &v
		}
		return nil
	}

	var p record.Patch
	p.Roastery = str("roastery", d.Roastery)
	p.CoffeeName = str("coffee", d.Coffee)
	p.CafeName = str("cafe", d.Cafe)
	p.Origin = str("origin", d.Origin)
	p.Variety = str("variety", d.Variety)
	p.Process = str("process", d.Process)
	p.PersonalComment = str("comment", d.Comment)
	if changed("temperature") {
		t := record.Temperature(d.Temperature)
		p.Temperature = &t
	}
	if changed("mode") {
		m := record.Mode(d.Mode)
		p.Mode = &m
	}
	if changed("method") {
		if d.Method == "" {
			p.ClearRecipe = true
		} else {
			p.Recipe = &record.BrewRecipe{Method: d.Method}
		}
	}
	if changed("flavor-score") {
		p.FlavorScore = &d.FlavorScore
	}
	if changed("sensory-score") {
		p.SensoryScore = &d.SensoryScore
	}
	if changed("flavor") {
		notes := parseFlavors(d.Flavors)
		p.FlavorNotes = &notes
	}
	if changed("sensory") {
		s, err := parseSensory(d.Sensory)
		if err != nil {
			return record.Patch{}, err
		}
		p.Sensory = s
	}
	return p, nil
}

// parseSensory starts from the neutral midpoint and overrides the named
// sliders. Range checks are left to record validation.
func parseSensory(kv map[string]string) (*record.SensoryAttribute, error) {
	s := record.DefaultSensory()
	sliders := map[string]*int{
		"body":       &s.Body,
		"acidity":    &s.Acidity,
		"sweetness":  &s.Sweetness,
		"finish":     &s.Finish,
		"bitterness": &s.Bitterness,
		"balance":    &s.Balance,
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v := strings.TrimSpace(kv[k])
		name := strings.ToLower(strings.TrimSpace(k))
		if name == "mouthfeel" {
			s.Mouthfeel = record.Mouthfeel(strings.ToLower(v))
			continue
		}
		slider, ok := sliders[name]
		if !ok {
			return nil, fmt.Errorf("unknown sensory attribute %q", k)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("sensory %s: %q is not a number", name, v)
		}
		*slider = n
	}
	return &s, nil
}

// parseFlavors turns "A>B>C" paths into notes at levels 1, 2, 3.
// Repeated prefixes across paths are kept once.
func parseFlavors(paths []string) []record.FlavorNote {
	notes := []record.FlavorNote{}
	seen := make(map[record.FlavorNote]bool)
	for _, path := range paths {
		for i, part := range strings.Split(path, ">") {
			n := record.FlavorNote{Level: i + 1, Value: strings.TrimSpace(part)}
			if n.Value == "" || seen[n] {
				continue
			}
			seen[n] = true
			notes = append(notes, n)
		}
	}
	return notes
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &draftFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new tasting",
		Long: `Record a new tasting. The total score is composed from the flavor and
sensory scores (60/40).

Example:
  brewlog add --roastery Onyx --coffee "Ethiopia Guji" --flavor-score 90 \
    --sensory-score 85 --flavor "Fruity>Berry" --flavor Floral \
    --sensory body=5,acidity=6,mouthfeel=juicy`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to add tasting", func(ctx context.Context, a *app, f *OutputFormatter) error {
				d, err := flags.draft()
				if err != nil {
					return WrapExitError(ExitFailure, "invalid --sensory", err)
				}
				r, unlocked, err := a.svc.Add(ctx, d)
				if err != nil {
					return err
				}
				return f.Success(writeResult{Records: []record.TastingRecord{r}, Unlocked: unlocked})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import tastings from a YAML list of drafts",
		Long: `Import tastings from a YAML file holding a list of drafts.

Drafts are stored in order. Import stops at the first invalid draft;
drafts before it stay stored.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to import tastings", func(ctx context.Context, a *app, f *OutputFormatter) error {
				drafts, err := readDrafts(args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "invalid import file", err)
				}
				f.VerboseLog("Read %d draft(s) from %s", len(drafts), args[0])

				stored, unlocked, err := a.svc.Import(ctx, drafts)
				if err != nil {
					f.VerboseLog("Stored %d draft(s) before the failure", len(stored))
					return err
				}
				return f.Success(writeResult{Records: stored, Unlocked: unlocked})
			})
		},
	}
	return cmd
}

func readDrafts(path string) ([]record.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var drafts []record.Draft
	if err := yaml.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return drafts, nil
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one tasting",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to show tasting", func(ctx context.Context, a *app, f *OutputFormatter) error {
				r, err := a.svc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return f.Success(recordView(r))
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &draftFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a tasting",
		Long: `Change fields of a tasting. Only the flags given are applied; the total
score is recomputed. Pass --method "" to remove the brew recipe.
--sensory replaces all sliders; unset ones go back to 3.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd)
			if err != nil {
				f := newFormatter(rootOpts, cmd)
				return f.Fail("failed to update tasting", WrapExitError(ExitFailure, "invalid --sensory", err))
			}
			if patch.IsEmpty() {
				f := newFormatter(rootOpts, cmd)
				return f.Fail("nothing to update", NewExitError(ExitFailure, "no fields given"))
			}
			return withApp(rootOpts, cmd, "failed to update tasting", func(ctx context.Context, a *app, f *OutputFormatter) error {
				r, unlocked, err := a.svc.Update(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return f.Success(writeResult{Records: []record.TastingRecord{r}, Unlocked: unlocked})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Soft-delete a tasting (undo with restore)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to delete tasting", func(ctx context.Context, a *app, f *OutputFormatter) error {
				if err := a.svc.Delete(ctx, args[0]); err != nil {
					return err
				}
				return f.Success(message{ID: args[0], Text: "deleted " + args[0]})
			})
		},
	}
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "restore <id>",
		Short:         "Undo a soft delete",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to restore tasting", func(ctx context.Context, a *app, f *OutputFormatter) error {
				r, err := a.svc.Restore(ctx, args[0])
				if err != nil {
					return err
				}
				return f.Success(recordView(r))
			})
		},
	}
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove old soft-deleted tastings",
		Long: `Permanently remove soft-deleted tastings last changed more than
--older-than ago. Defaults to store.purge_after from the config.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to purge tastings", func(ctx context.Context, a *app, f *OutputFormatter) error {
				age := a.cfg.Store.PurgeAfter
				if cmd.Flags().Changed("older-than") {
					age = olderThan
				}
				n, err := a.svc.Purge(ctx, a.now().Add(-age))
				if err != nil {
					return err
				}
				return f.Success(purgeResult{Purged: n})
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "minimum age of deleted tastings to remove")
	return cmd
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "pending",
		Short:         "List tastings waiting to be synced",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, "failed to list pending tastings", func(ctx context.Context, a *app, f *OutputFormatter) error {
				recs, err := a.svc.Pending(ctx)
				if err != nil {
					return err
				}
				return f.Success(recordList(recs))
			})
		},
	}
}
