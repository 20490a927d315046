package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/brewlog/internal/record"
)

// tastingColumns is the column list shared by every record SELECT, in
// the order scanRecord expects.
var tastingColumns = []string{
	"id", "created_at", "updated_at",
	"roastery", "coffee_name", "cafe_name", "origin", "variety", "altitude", "process",
	"temperature", "roaster_notes", "personal_comment", "mode",
	"score_total", "score_flavor", "score_sensory",
	"flavor_notes", "sensory", "recipe", "lab",
	"is_deleted", "sync_status", "content_hash",
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one tastings row in tastingColumns order.
func scanRecord(sc rowScanner) (record.TastingRecord, error) {
	var (
		r                         record.TastingRecord
		createdAt, updatedAt      int64
		temperature, mode, status string
		flavorNotes               string
		sensory, recipe, lab      sql.NullString
		isDeleted                 int
	)
	err := sc.Scan(
		&r.ID, &createdAt, &updatedAt,
		&r.Roastery, &r.CoffeeName, &r.CafeName, &r.Origin, &r.Variety, &r.Altitude, &r.Process,
		&temperature, &r.RoasterNotes, &r.PersonalComment, &mode,
		&r.Scores.Total, &r.Scores.Flavor, &r.Scores.Sensory,
		&flavorNotes, &sensory, &recipe, &lab,
		&isDeleted, &status, &r.ContentHash,
	)
	if err != nil {
		return record.TastingRecord{}, err
	}

	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	r.Temperature = record.Temperature(temperature)
	r.Mode = record.Mode(mode)
	r.SyncStatus = record.SyncStatus(status)
	r.IsDeleted = isDeleted != 0

	r.FlavorNotes = []record.FlavorNote{}
	if err := json.Unmarshal([]byte(flavorNotes), &r.FlavorNotes); err != nil {
		return record.TastingRecord{}, fmt.Errorf("record %s: flavor_notes: %w", r.ID, err)
	}
	if r.Sensory, err = unmarshalOptional[record.SensoryAttribute](sensory); err != nil {
		return record.TastingRecord{}, fmt.Errorf("record %s: sensory: %w", r.ID, err)
	}
	if r.Recipe, err = unmarshalOptional[record.BrewRecipe](recipe); err != nil {
		return record.TastingRecord{}, fmt.Errorf("record %s: recipe: %w", r.ID, err)
	}
	if r.Lab, err = unmarshalOptional[record.LabMeasurement](lab); err != nil {
		return record.TastingRecord{}, fmt.Errorf("record %s: lab: %w", r.ID, err)
	}
	return r, nil
}

// recordValues returns the column values of r in tastingColumns order.
func recordValues(r record.TastingRecord) ([]any, error) {
	notes := r.FlavorNotes
	if notes == nil {
		notes = []record.FlavorNote{}
	}
	flavorNotes, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("marshal flavor notes: %w", err)
	}
	sensory, err := marshalOptional(r.Sensory)
	if err != nil {
		return nil, fmt.Errorf("marshal sensory: %w", err)
	}
	recipe, err := marshalOptional(r.Recipe)
	if err != nil {
		return nil, fmt.Errorf("marshal recipe: %w", err)
	}
	lab, err := marshalOptional(r.Lab)
	if err != nil {
		return nil, fmt.Errorf("marshal lab: %w", err)
	}

	return []any{
		r.ID, toMillis(r.CreatedAt), toMillis(r.UpdatedAt),
		r.Roastery, r.CoffeeName, r.CafeName, r.Origin, r.Variety, r.Altitude, r.Process,
		string(r.Temperature), r.RoasterNotes, r.PersonalComment, string(r.Mode),
		r.Scores.Total, r.Scores.Flavor, r.Scores.Sensory,
		string(flavorNotes), sensory, recipe, lab,
		boolToInt(r.IsDeleted), string(r.SyncStatus), r.ContentHash,
	}, nil
}

func marshalOptional[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalOptional[T any](s sql.NullString) (*T, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
