package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/brewlog/internal/achievement"
	"github.com/roach88/brewlog/internal/insight"
	"github.com/roach88/brewlog/internal/journal"
	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/stats"
)

const dateLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// writeResult is the output of add, import and update.
type writeResult struct {
	Records  []record.TastingRecord    `json:"records"`
	Unlocked []achievement.Achievement `json:"unlocked,omitempty"`
}

func (r writeResult) renderText(w io.Writer) {
	if len(r.Records) == 1 {
		fmt.Fprintf(w, "Saved %s (%s / %s, %d)\n",
			r.Records[0].ID, r.Records[0].Roastery, r.Records[0].CoffeeName, r.Records[0].Scores.Total)
	} else {
		fmt.Fprintf(w, "Saved %d tastings\n", len(r.Records))
	}
	for _, a := range r.Unlocked {
		fmt.Fprintf(w, "%s Achievement unlocked: %s (%s)\n", a.Icon, a.Title, a.Rarity)
	}
}

type recordList []record.TastingRecord

func (l recordList) renderText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No tastings found")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tROASTERY\tCOFFEE\tMODE\tSCORE")
	for _, r := range l {
		id := r.ID
		if r.IsDeleted {
			id += " (deleted)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			id, r.CreatedAt.Format(dateLayout), r.Roastery, r.CoffeeName, r.Mode, r.Scores.Total)
	}
	tw.Flush()
}

type recordView record.TastingRecord

func (v recordView) renderText(w io.Writer) {
	tw := newTable(w)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("ID", v.ID)
	row("Created", v.CreatedAt.Format(time.RFC3339))
	row("Updated", v.UpdatedAt.Format(time.RFC3339))
	row("Roastery", v.Roastery)
	row("Coffee", v.CoffeeName)
	row("Cafe", v.CafeName)
	row("Origin", v.Origin)
	row("Variety", v.Variety)
	row("Altitude", v.Altitude)
	row("Process", v.Process)
	row("Temperature", string(v.Temperature))
	row("Mode", string(v.Mode))
	if v.Recipe != nil {
		row("Method", v.Recipe.Method)
	}
	if v.Lab != nil {
		row("TDS / EY", fmt.Sprintf("%.2f%% / %.1f%%", v.Lab.TDS, v.Lab.ExtractionYield))
	}
	row("Score", fmt.Sprintf("%d (flavor %d, sensory %d)", v.Scores.Total, v.Scores.Flavor, v.Scores.Sensory))
	if len(v.FlavorNotes) > 0 {
		vals := make([]string, len(v.FlavorNotes))
		for i, n := range v.FlavorNotes {
			vals[i] = strings.Repeat(">", n.Level-1) + n.Value
		}
		row("Flavors", strings.Join(vals, ", "))
	}
	row("Roaster notes", v.RoasterNotes)
	row("Comment", v.PersonalComment)
	row("Sync", string(v.SyncStatus))
	if v.IsDeleted {
		row("Deleted", "yes")
	}
	tw.Flush()
}

type message struct {
	ID   string `json:"id"`
	Text string `json:"-"`
}

func (m message) renderText(w io.Writer) { fmt.Fprintln(w, m.Text) }

type purgeResult struct {
	Purged int64 `json:"purged"`
}

func (p purgeResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Purged %d tasting(s)\n", p.Purged)
}

type dashboardView struct {
	*journal.Dashboard
}

func (d dashboardView) renderText(w io.Writer) {
	s := d.Snapshot
	fmt.Fprintf(w, "Tastings: %d (this week %d, this month %d)\n", s.Total, s.ThisWeek, s.ThisMonth)
	fmt.Fprintf(w, "Average score: %.1f  Best: %d\n", s.AverageScore, s.BestScore)
	fmt.Fprintf(w, "Roasteries: %d  Cafes: %d\n", s.UniqueRoasteries, s.UniqueCafes)
	if s.Total == 0 {
		return
	}

	fmt.Fprintln(w, "\nModes")
	for _, m := range d.Modes {
		fmt.Fprintf(w, "  %-10s %3d  %3d%%\n", m.Mode, m.Count, m.Percent)
	}

	ranking := func(title string, entries []stats.RankingEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s\n", title)
		tw := newTable(w)
		for i, e := range entries {
			name := e.Name
			if e.Roastery != "" {
				name = e.Roastery + " / " + e.Name
			}
			fmt.Fprintf(tw, "  %d.\t%s\t%d\t%.1f\n", i+1, name, e.Count, e.AverageScore)
		}
		tw.Flush()
	}
	ranking("Top roasteries", d.TopRoasteries)
	ranking("Top cafes", d.TopCafes)
	ranking("Top coffees", d.TopCoffees)

	fmt.Fprintln(w, "\nMonthly trend")
	for _, b := range d.Trend {
		fmt.Fprintf(w, "  %s  %3d  %5.1f\n", b.Month, b.Count, b.AverageScore)
	}

	fmt.Fprintln(w, "\nScore distribution")
	for _, b := range d.Distribution {
		fmt.Fprintf(w, "  %-7s %3d\n", b.Band, b.Count)
	}

	if len(d.Flavors) > 0 {
		fmt.Fprintln(w, "\nFlavors")
		for _, f := range d.Flavors {
			fmt.Fprintf(w, "  %-12s %3d  %5.1f%%\n", f.Name, f.Count, f.Percent)
		}
	}

	j := d.Journey
	fmt.Fprintf(w, "\nJourney: %d day(s) since %s, %.1f per week\n",
		j.Days, j.FirstTasting.Format(time.DateOnly), j.PerWeek)
}

type comparisonView stats.Comparison

func (c comparisonView) renderText(w io.Writer) {
	if c.Count == 0 {
		fmt.Fprintf(w, "No tastings of %s / %s\n", c.Roastery, c.CoffeeName)
		return
	}
	fmt.Fprintf(w, "%s / %s: %d tasting(s), average %.1f, best %d, latest %d on %s\n",
		c.Roastery, c.CoffeeName, c.Count, c.AverageScore, c.BestScore, c.LatestScore,
		c.LatestAt.Format(time.DateOnly))
}

type insightList []insight.Insight

func (l insightList) renderText(w io.Writer) {
	for i, in := range l {
		if i > 0 {
			fmt.Fprintln(w)
		}
		marker := ""
		if !in.Personalized {
			marker = " (example)"
		}
		fmt.Fprintf(w, "%s %s%s\n", in.Icon, in.Title, marker)
		fmt.Fprintf(w, "   %s\n", in.Detail)
	}
}

type achievementList []achievement.Achievement

func (l achievementList) renderText(w io.Writer) {
	tw := newTable(w)
	for _, a := range l {
		status := fmt.Sprintf("%3.0f%%", a.Progress*100)
		if a.Unlocked() {
			status = "✓ " + a.UnlockedAt.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Icon, a.Title, a.Rarity, status)
	}
	tw.Flush()
}

func (v CatalogValidation) renderText(w io.Writer) {
	fmt.Fprintf(w, "✓ Catalogue %s valid: %d rules, %d encouragements, %d examples, %d achievements\n",
		v.Source, v.Rules, v.Encouragements, v.Examples, v.Achievements)
}
