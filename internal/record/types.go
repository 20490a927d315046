package record

import (
	"time"
)

// Mode is the context a tasting was captured in.
type Mode string

const (
	ModeCafe     Mode = "cafe"
	ModeHomeBrew Mode = "home_brew"
	ModeLab      Mode = "lab"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeCafe, ModeHomeBrew, ModeLab}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeCafe, ModeHomeBrew, ModeLab:
		return true
	}
	return false
}

// Temperature is how the coffee was served.
type Temperature string

const (
	TemperatureHot  Temperature = "hot"
	TemperatureCold Temperature = "cold"
)

// SyncStatus is the one-way flag read by the sync collaborator.
type SyncStatus string

const (
	SyncLocalOnly SyncStatus = "local_only"
	SyncPending   SyncStatus = "pending"
	SyncSynced    SyncStatus = "synced"
)

// Valid reports whether s is a known sync status.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncLocalOnly, SyncPending, SyncSynced:
		return true
	}
	return false
}

// Mouthfeel describes the texture of the cup.
type Mouthfeel string

const (
	MouthfeelClean  Mouthfeel = "clean"
	MouthfeelCreamy Mouthfeel = "creamy"
	MouthfeelJuicy  Mouthfeel = "juicy"
	MouthfeelSilky  Mouthfeel = "silky"
)

// FlavorNote is one step down the flavor taxonomy. Level 1 is the broad
// category ("Fruity"), deeper levels refine it ("Berry", "Blueberry").
type FlavorNote struct {
	Level          int    `json:"level" yaml:"level" validate:"min=1,max=4"`
	Value          string `json:"value" yaml:"value" validate:"required,max=80"`
	LocalizedValue string `json:"localized_value,omitempty" yaml:"localized_value" validate:"max=80"`
}

// SensoryAttribute holds the 1..7 sensory scale plus mouthfeel.
type SensoryAttribute struct {
	Body       int       `json:"body" yaml:"body" validate:"min=1,max=7"`
	Acidity    int       `json:"acidity" yaml:"acidity" validate:"min=1,max=7"`
	Sweetness  int       `json:"sweetness" yaml:"sweetness" validate:"min=1,max=7"`
	Finish     int       `json:"finish" yaml:"finish" validate:"min=1,max=7"`
	Bitterness int       `json:"bitterness" yaml:"bitterness" validate:"min=1,max=7"`
	Balance    int       `json:"balance" yaml:"balance" validate:"min=1,max=7"`
	Mouthfeel  Mouthfeel `json:"mouthfeel" yaml:"mouthfeel" validate:"oneof=clean creamy juicy silky"`
}

// DefaultSensory returns the neutral midpoint used when a taster skips
// individual sliders.
func DefaultSensory() SensoryAttribute {
	return SensoryAttribute{
		Body: 3, Acidity: 3, Sweetness: 3, Finish: 3, Bitterness: 3, Balance: 3,
		Mouthfeel: MouthfeelClean,
	}
}

// BrewRecipe is populated for home_brew and lab tastings.
type BrewRecipe struct {
	Method      string  `json:"method" yaml:"method" validate:"required,max=60"`
	Dripper     string  `json:"dripper,omitempty" yaml:"dripper" validate:"max=60"`
	GrindSize   string  `json:"grind_size,omitempty" yaml:"grind_size" validate:"max=40"`
	DoseGrams   float64 `json:"dose_grams,omitempty" yaml:"dose_grams" validate:"gte=0,lte=1000"`
	WaterGrams  float64 `json:"water_grams,omitempty" yaml:"water_grams" validate:"gte=0,lte=10000"`
	WaterTempC  float64 `json:"water_temp_c,omitempty" yaml:"water_temp_c" validate:"gte=0,lte=100"`
	BrewSeconds int     `json:"brew_seconds,omitempty" yaml:"brew_seconds" validate:"gte=0,lte=86400"`
}

// LabMeasurement is populated for lab tastings only.
type LabMeasurement struct {
	TDS             float64 `json:"tds" yaml:"tds" validate:"gte=0,lte=30"`
	ExtractionYield float64 `json:"extraction_yield" yaml:"extraction_yield" validate:"gte=0,lte=40"`
}

// Scores are the three integer scores of a tasting.
type Scores struct {
	Total   int `json:"total"`
	Flavor  int `json:"flavor"`
	Sensory int `json:"sensory"`
}

// TastingRecord is the root entity. Values are copies; the store never
// hands out references into its own state.
type TastingRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Roastery        string      `json:"roastery"`
	CoffeeName      string      `json:"coffee_name"`
	CafeName        string      `json:"cafe_name,omitempty"`
	Origin          string      `json:"origin,omitempty"`
	Variety         string      `json:"variety,omitempty"`
	Altitude        string      `json:"altitude,omitempty"`
	Process         string      `json:"process,omitempty"`
	Temperature     Temperature `json:"temperature"`
	RoasterNotes    string      `json:"roaster_notes,omitempty"`
	PersonalComment string      `json:"personal_comment,omitempty"`

	Mode   Mode            `json:"mode"`
	Recipe *BrewRecipe     `json:"recipe,omitempty"`
	Lab    *LabMeasurement `json:"lab,omitempty"`

	Scores      Scores            `json:"scores"`
	FlavorNotes []FlavorNote      `json:"flavor_notes"`
	Sensory     *SensoryAttribute `json:"sensory,omitempty"`

	IsDeleted   bool       `json:"is_deleted"`
	SyncStatus  SyncStatus `json:"sync_status"`
	ContentHash string     `json:"content_hash"`
}

// TopFlavors returns the level-1 flavor values in note order, without
// duplicates.
func (r TastingRecord) TopFlavors() []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range r.FlavorNotes {
		if n.Level != 1 || seen[n.Value] {
			continue
		}
		seen[n.Value] = true
		out = append(out, n.Value)
	}
	return out
}

// CoffeeKey identifies "the same coffee" across tastings.
func (r TastingRecord) CoffeeKey() string {
	return r.Roastery + "\x00" + r.CoffeeName
}

// Clone returns a deep copy so callers can mutate freely.
func (r TastingRecord) Clone() TastingRecord {
	out := r
	if r.FlavorNotes != nil {
		out.FlavorNotes = make([]FlavorNote, len(r.FlavorNotes))
		copy(out.FlavorNotes, r.FlavorNotes)
	}
	if r.Sensory != nil {
		s := *r.Sensory
		out.Sensory = &s
	}
	if r.Recipe != nil {
		rc := *r.Recipe
		out.Recipe = &rc
	}
	if r.Lab != nil {
		l := *r.Lab
		out.Lab = &l
	}
	return out
}
