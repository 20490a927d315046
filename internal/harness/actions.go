package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/brewlog/internal/achievement"
	"github.com/roach88/brewlog/internal/insight"
	"github.com/roach88/brewlog/internal/query"
	"github.com/roach88/brewlog/internal/record"
)

// Actions a scenario step may invoke.
const (
	ActionAdd          = "add"
	ActionImport       = "import"
	ActionGet          = "get"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionRestore      = "restore"
	ActionPurge        = "purge"
	ActionQuery        = "query"
	ActionDashboard    = "dashboard"
	ActionCompare      = "compare"
	ActionInsights     = "insights"
	ActionAchievements = "achievements"
)

var actions = []string{
	ActionAdd, ActionImport, ActionGet, ActionUpdate, ActionDelete, ActionRestore, ActionPurge,
	ActionQuery, ActionDashboard, ActionCompare, ActionInsights, ActionAchievements,
}

func isAction(name string) bool { return slices.Contains(actions, name) }

// argsError marks a malformed step argument. It aborts the run instead of
// becoming a step outcome.
type argsError struct {
	action string
	err    error
}

func (e *argsError) Error() string { return fmt.Sprintf("%s: bad args: %v", e.action, e.err) }
func (e *argsError) Unwrap() error { return e.err }

// recordSummary is the part of a record a trace shows. Timestamps and
// hashes stay out so snapshots only move when behavior does.
type recordSummary struct {
	ID         string      `json:"id"`
	Roastery   string      `json:"roastery"`
	CoffeeName string      `json:"coffee_name"`
	Mode       record.Mode `json:"mode"`
	Total      int         `json:"total"`
	IsDeleted  bool        `json:"is_deleted"`
}

func summarize(r record.TastingRecord) recordSummary {
	return recordSummary{
		ID:         r.ID,
		Roastery:   r.Roastery,
		CoffeeName: r.CoffeeName,
		Mode:       r.Mode,
		Total:      r.Scores.Total,
		IsDeleted:  r.IsDeleted,
	}
}

func recordIDs(recs []record.TastingRecord) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

// unlockedIDs returns the ids of unlocked achievements, sorted.
func unlockedIDs(list []achievement.Achievement) []string {
	ids := []string{}
	for _, a := range list {
		if a.Unlocked() {
			ids = append(ids, a.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

type idArgs struct {
	ID string `yaml:"id"`
}

type importArgs struct {
	Drafts []record.Draft `yaml:"drafts"`
}

type updateArgs struct {
	ID    string       `yaml:"id"`
	Patch record.Patch `yaml:"patch"`
}

type purgeArgs struct {
	OlderThan time.Duration `yaml:"older_than"`
}

type queryArgs struct {
	Text           string        `yaml:"text"`
	Roastery       string        `yaml:"roastery"`
	Cafe           string        `yaml:"cafe"`
	MinScore       *int          `yaml:"min_score"`
	MaxScore       *int          `yaml:"max_score"`
	From           time.Time     `yaml:"from"`
	To             time.Time     `yaml:"to"`
	Flavors        []string      `yaml:"flavors"`
	Modes          []record.Mode `yaml:"modes"`
	Sort           string        `yaml:"sort"`
	Limit          int           `yaml:"limit"`
	Offset         int           `yaml:"offset"`
	IncludeDeleted bool          `yaml:"include_deleted"`
}

type compareArgs struct {
	Roastery string `yaml:"roastery"`
	Coffee   string `yaml:"coffee"`
}

type insightsArgs struct {
	Period string `yaml:"period"`
	Limit  int    `yaml:"limit"`
}

// decodeArgs re-encodes YAML-decoded args and strictly decodes them into out.
func decodeArgs(action string, args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := yaml.Marshal(args)
	if err != nil {
		return &argsError{action: action, err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return &argsError{action: action, err: err}
	}
	return nil
}

// execute runs one step against the journal and returns its result.
func (h *Harness) execute(ctx context.Context, action string, args map[string]any) (any, error) {
	switch action {
	case ActionAdd:
		var d record.Draft
		if err := decodeArgs(action, args, &d); err != nil {
			return nil, err
		}
		r, unlocked, err := h.svc.Add(ctx, d)
		if err != nil {
			return nil, err
		}
		return map[string]any{"record": summarize(r), "unlocked": unlockedIDs(unlocked)}, nil

	case ActionImport:
		var a importArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		stored, unlocked, err := h.svc.Import(ctx, a.Drafts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ids": recordIDs(stored), "unlocked": unlockedIDs(unlocked)}, nil

	case ActionGet:
		var a idArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		r, err := h.svc.Get(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"record": summarize(r)}, nil

	case ActionUpdate:
		var a updateArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		r, unlocked, err := h.svc.Update(ctx, a.ID, a.Patch)
		if err != nil {
			return nil, err
		}
		return map[string]any{"record": summarize(r), "unlocked": unlockedIDs(unlocked)}, nil

	case ActionDelete:
		var a idArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		return nil, h.svc.Delete(ctx, a.ID)

	case ActionRestore:
		var a idArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		r, err := h.svc.Restore(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"record": summarize(r)}, nil

	case ActionPurge:
		var a purgeArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		n, err := h.svc.Purge(ctx, h.now().Add(-a.OlderThan))
		if err != nil {
			return nil, err
		}
		return map[string]any{"purged": n}, nil

	case ActionQuery:
		var a queryArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		sort := query.SortOrder(a.Sort)
		if sort == "" {
			sort = query.SortCreatedAtDesc
		}
		recs, err := h.svc.Query(ctx, query.Predicates{
			Text:           a.Text,
			Roastery:       a.Roastery,
			CafeName:       a.Cafe,
			MinScore:       a.MinScore,
			MaxScore:       a.MaxScore,
			From:           a.From,
			To:             a.To,
			Flavors:        a.Flavors,
			Modes:          a.Modes,
			IncludeDeleted: a.IncludeDeleted,
		}, query.Options{Sort: sort, Limit: a.Limit, Offset: a.Offset})
		if err != nil {
			return nil, err
		}
		return map[string]any{"ids": recordIDs(recs)}, nil

	case ActionDashboard:
		if err := decodeArgs(action, args, &struct{}{}); err != nil {
			return nil, err
		}
		d, err := h.svc.Dashboard(ctx)
		if err != nil {
			return nil, err
		}
		top := make([]string, len(d.TopRoasteries))
		for i, e := range d.TopRoasteries {
			top[i] = e.Name
		}
		return map[string]any{
			"total":             d.Snapshot.Total,
			"average_score":     d.Snapshot.AverageScore,
			"best_score":        d.Snapshot.BestScore,
			"this_week":         d.Snapshot.ThisWeek,
			"this_month":        d.Snapshot.ThisMonth,
			"unique_roasteries": d.Snapshot.UniqueRoasteries,
			"unique_cafes":      d.Snapshot.UniqueCafes,
			"top_roasteries":    top,
		}, nil

	case ActionCompare:
		var a compareArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		c, err := h.svc.Compare(ctx, a.Roastery, a.Coffee)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"count":         c.Count,
			"average_score": c.AverageScore,
			"best_score":    c.BestScore,
			"latest_score":  c.LatestScore,
		}, nil

	case ActionInsights:
		a := insightsArgs{Period: string(insight.PeriodWeekly)}
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		list, err := h.svc.Insights(ctx, insight.Period(a.Period), a.Limit)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(list))
		kinds := make([]string, len(list))
		personalized := len(list) > 0
		for i, in := range list {
			ids[i] = in.ID
			kinds[i] = string(in.Kind)
			personalized = personalized && in.Personalized
		}
		return map[string]any{"ids": ids, "kinds": kinds, "personalized": personalized}, nil

	case ActionAchievements:
		if err := decodeArgs(action, args, &struct{}{}); err != nil {
			return nil, err
		}
		list, err := h.svc.Achievements(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"unlocked": unlockedIDs(list), "total": len(list)}, nil
	}

	return nil, &argsError{action: action, err: errors.New("unknown action")}
}

// outcomeOf classifies a step error.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case record.IsValidation(err):
		return OutcomeValidation
	case record.IsNotFound(err):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// normalize round-trips v through JSON so results and expectations
// compare with the same types (float64 numbers, []any, map[string]any).
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeMap(v any) (map[string]any, error) {
	n, err := normalize(v)
	if err != nil || n == nil {
		return nil, err
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", n)
	}
	return m, nil
}
