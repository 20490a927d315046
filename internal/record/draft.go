package record

import (
	"strings"
)

// Draft is the input to create. It is produced by the capture flow; the
// store does not care how it was assembled.
type Draft struct {
	Roastery        string      `json:"roastery" yaml:"roastery" validate:"required,max=120"`
	CoffeeName      string      `json:"coffee_name" yaml:"coffee_name" validate:"required,max=120"`
	CafeName        string      `json:"cafe_name" yaml:"cafe_name" validate:"max=120"`
	Origin          string      `json:"origin" yaml:"origin" validate:"max=120"`
	Variety         string      `json:"variety" yaml:"variety" validate:"max=120"`
	Altitude        string      `json:"altitude" yaml:"altitude" validate:"max=60"`
	Process         string      `json:"process" yaml:"process" validate:"max=120"`
	Temperature     Temperature `json:"temperature" yaml:"temperature" validate:"oneof=hot cold"`
	RoasterNotes    string      `json:"roaster_notes" yaml:"roaster_notes" validate:"max=2000"`
	PersonalComment string      `json:"personal_comment" yaml:"personal_comment" validate:"max=2000"`

	Mode   Mode            `json:"mode" yaml:"mode" validate:"oneof=cafe home_brew lab"`
	Recipe *BrewRecipe     `json:"recipe" yaml:"recipe"`
	Lab    *LabMeasurement `json:"lab" yaml:"lab"`

	FlavorScore  int  `json:"flavor_score" yaml:"flavor_score" validate:"score"`
	SensoryScore int  `json:"sensory_score" yaml:"sensory_score" validate:"score"`
	TotalScore   *int `json:"total_score" yaml:"total_score" validate:"omitempty,score"`

	FlavorNotes []FlavorNote      `json:"flavor_notes" yaml:"flavor_notes" validate:"max=32,flavorpath,dive"`
	Sensory     *SensoryAttribute `json:"sensory" yaml:"sensory"`
}

// Normalize trims string fields and fills defaults for mode and
// temperature. It does not validate.
func (d Draft) Normalize() Draft {
	d.Roastery = strings.TrimSpace(d.Roastery)
	d.CoffeeName = strings.TrimSpace(d.CoffeeName)
	d.CafeName = strings.TrimSpace(d.CafeName)
	d.Origin = strings.TrimSpace(d.Origin)
	d.Variety = strings.TrimSpace(d.Variety)
	d.Altitude = strings.TrimSpace(d.Altitude)
	d.Process = strings.TrimSpace(d.Process)
	d.RoasterNotes = strings.TrimSpace(d.RoasterNotes)
	d.PersonalComment = strings.TrimSpace(d.PersonalComment)
	if d.Temperature == "" {
		d.Temperature = TemperatureHot
	}
	if d.Mode == "" {
		d.Mode = ModeCafe
	}
	if len(d.FlavorNotes) > 0 {
		notes := make([]FlavorNote, len(d.FlavorNotes))
		for i, n := range d.FlavorNotes {
			n.Value = strings.TrimSpace(n.Value)
			n.LocalizedValue = strings.TrimSpace(n.LocalizedValue)
			notes[i] = n
		}
		d.FlavorNotes = notes
	}
	return d
}

// Build normalizes and validates the draft and returns the content part
// of a TastingRecord. Identity, timestamps and sync status are left for
// the store to assign.
func (d Draft) Build() (TastingRecord, error) {
	d = d.Normalize()
	if err := Validate(d); err != nil {
		return TastingRecord{}, err
	}

	r := TastingRecord{
		Roastery:        d.Roastery,
		CoffeeName:      d.CoffeeName,
		CafeName:        d.CafeName,
		Origin:          d.Origin,
		Variety:         d.Variety,
		Altitude:        d.Altitude,
		Process:         d.Process,
		Temperature:     d.Temperature,
		RoasterNotes:    d.RoasterNotes,
		PersonalComment: d.PersonalComment,
		Mode:            d.Mode,
		Scores: Scores{
			Total:   ComposeTotal(d.FlavorScore, d.SensoryScore),
			Flavor:  d.FlavorScore,
			Sensory: d.SensoryScore,
		},
		FlavorNotes: append([]FlavorNote{}, d.FlavorNotes...),
	}
	if d.Recipe != nil {
		rc := *d.Recipe
		r.Recipe = &rc
	}
	if d.Lab != nil {
		l := *d.Lab
		r.Lab = &l
	}
	if d.Sensory != nil {
		s := *d.Sensory
		r.Sensory = &s
	}
	return r, nil
}

// DraftOf converts a stored record back into a draft carrying the same
// content. The total is omitted so that it is recomputed.
func DraftOf(r TastingRecord) Draft {
	c := r.Clone()
	return Draft{
		Roastery:        c.Roastery,
		CoffeeName:      c.CoffeeName,
		CafeName:        c.CafeName,
		Origin:          c.Origin,
		Variety:         c.Variety,
		Altitude:        c.Altitude,
		Process:         c.Process,
		Temperature:     c.Temperature,
		RoasterNotes:    c.RoasterNotes,
		PersonalComment: c.PersonalComment,
		Mode:            c.Mode,
		Recipe:          c.Recipe,
		Lab:             c.Lab,
		FlavorScore:     c.Scores.Flavor,
		SensoryScore:    c.Scores.Sensory,
		FlavorNotes:     c.FlavorNotes,
		Sensory:         c.Sensory,
	}
}

// Patch is a partial update. Nil fields are left untouched. The Clear*
// flags remove an optional sub-structure and win over a value in the same
// patch.
type Patch struct {
	Roastery        *string      `json:"roastery,omitempty" yaml:"roastery"`
	CoffeeName      *string      `json:"coffee_name,omitempty" yaml:"coffee_name"`
	CafeName        *string      `json:"cafe_name,omitempty" yaml:"cafe_name"`
	Origin          *string      `json:"origin,omitempty" yaml:"origin"`
	Variety         *string      `json:"variety,omitempty" yaml:"variety"`
	Altitude        *string      `json:"altitude,omitempty" yaml:"altitude"`
	Process         *string      `json:"process,omitempty" yaml:"process"`
	Temperature     *Temperature `json:"temperature,omitempty" yaml:"temperature"`
	RoasterNotes    *string      `json:"roaster_notes,omitempty" yaml:"roaster_notes"`
	PersonalComment *string      `json:"personal_comment,omitempty" yaml:"personal_comment"`
	Mode            *Mode        `json:"mode,omitempty" yaml:"mode"`

	FlavorScore  *int `json:"flavor_score,omitempty" yaml:"flavor_score"`
	SensoryScore *int `json:"sensory_score,omitempty" yaml:"sensory_score"`

	FlavorNotes *[]FlavorNote     `json:"flavor_notes,omitempty" yaml:"flavor_notes"`
	Sensory     *SensoryAttribute `json:"sensory,omitempty" yaml:"sensory"`
	Recipe      *BrewRecipe       `json:"recipe,omitempty" yaml:"recipe"`
	Lab         *LabMeasurement   `json:"lab,omitempty" yaml:"lab"`

	ClearSensory bool `json:"clear_sensory,omitempty" yaml:"clear_sensory"`
	ClearRecipe  bool `json:"clear_recipe,omitempty" yaml:"clear_recipe"`
	ClearLab     bool `json:"clear_lab,omitempty" yaml:"clear_lab"`
}

// Apply merges the patch into r and re-validates the merged content. The
// returned record keeps r's identity, timestamps and flags; the caller is
// responsible for bumping UpdatedAt.
func (p Patch) Apply(r TastingRecord) (TastingRecord, error) {
	d := DraftOf(r)

	setString(&d.Roastery, p.Roastery)
	setString(&d.CoffeeName, p.CoffeeName)
	setString(&d.CafeName, p.CafeName)
	setString(&d.Origin, p.Origin)
	setString(&d.Variety, p.Variety)
	setString(&d.Altitude, p.Altitude)
	setString(&d.Process, p.Process)
	setString(&d.RoasterNotes, p.RoasterNotes)
	setString(&d.PersonalComment, p.PersonalComment)
	if p.Temperature != nil {
		d.Temperature = *p.Temperature
	}
	if p.Mode != nil {
		d.Mode = *p.Mode
	}
	if p.FlavorScore != nil {
		d.FlavorScore = *p.FlavorScore
	}
	if p.SensoryScore != nil {
		d.SensoryScore = *p.SensoryScore
	}
	if p.FlavorNotes != nil {
		d.FlavorNotes = append([]FlavorNote{}, (*p.FlavorNotes)...)
	}
	if p.Sensory != nil {
		s := *p.Sensory
		d.Sensory = &s
	}
	if p.Recipe != nil {
		rc := *p.Recipe
		d.Recipe = &rc
	}
	if p.Lab != nil {
		l := *p.Lab
		d.Lab = &l
	}
	if p.ClearSensory {
		d.Sensory = nil
	}
	if p.ClearRecipe {
		d.Recipe = nil
	}
	if p.ClearLab {
		d.Lab = nil
	}

	merged, err := d.Build()
	if err != nil {
		return TastingRecord{}, err
	}
	merged.ID = r.ID
	merged.CreatedAt = r.CreatedAt
	merged.UpdatedAt = r.UpdatedAt
	merged.IsDeleted = r.IsDeleted
	merged.SyncStatus = r.SyncStatus
	merged.ContentHash = r.ContentHash
	return merged, nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
