package record

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() Draft {
	return Draft{
		Roastery:     "Fritz",
		CoffeeName:   "Colombia Geisha",
		Origin:       "Colombia",
		FlavorScore:  90,
		SensoryScore: 80,
		FlavorNotes: []FlavorNote{
			{Level: 1, Value: "Fruity"},
			{Level: 2, Value: "Berry"},
			{Level: 3, Value: "Blueberry"},
		},
	}
}

func intPtr(v int) *int { return &v }

func TestComposeTotal(t *testing.T) {
	tests := []struct {
		flavor, sensory, want int
	}{
		{0, 0, 0},
		{100, 100, 100},
		{85, 70, 79},
		{83, 71, 78},
		{1, 0, 1},
		{0, 1, 0},
		{0, 2, 1},
		{90, 80, 86},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.flavor, tt.sensory), func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeTotal(tt.flavor, tt.sensory))
		})
	}
}

func TestComposeTotal_MatchesWeightedRound(t *testing.T) {
	for f := 0; f <= 100; f++ {
		for s := 0; s <= 100; s++ {
			exact := 0.6*float64(f) + 0.4*float64(s)
			got := ComposeTotal(f, s)
			assert.InDelta(t, exact, float64(got), 0.5, "flavor=%d sensory=%d", f, s)
			require.GreaterOrEqual(t, got, MinScore)
			require.LessOrEqual(t, got, MaxScore)
		}
	}
}

func TestDraftBuild_ComputesTotalAndDefaults(t *testing.T) {
	r, err := validDraft().Build()
	require.NoError(t, err)

	assert.Equal(t, 86, r.Scores.Total)
	assert.Equal(t, 90, r.Scores.Flavor)
	assert.Equal(t, 80, r.Scores.Sensory)
	assert.Equal(t, ModeCafe, r.Mode)
	assert.Equal(t, TemperatureHot, r.Temperature)
	assert.Equal(t, []string{"Fruity"}, r.TopFlavors())
}

func TestDraftBuild_TrimsStrings(t *testing.T) {
	d := validDraft()
	d.Roastery = "  Fritz  "
	d.FlavorNotes = []FlavorNote{{Level: 1, Value: " Nutty "}}

	r, err := d.Build()
	require.NoError(t, err)
	assert.Equal(t, "Fritz", r.Roastery)
	assert.Equal(t, "Nutty", r.FlavorNotes[0].Value)
}

func TestDraftBuild_AcceptsConsistentTotal(t *testing.T) {
	d := validDraft()
	d.TotalScore = intPtr(86)

	r, err := d.Build()
	require.NoError(t, err)
	assert.Equal(t, 86, r.Scores.Total)
}

func TestDraftBuild_RejectsInconsistentTotal(t *testing.T) {
	d := validDraft()
	d.TotalScore = intPtr(99)

	_, err := d.Build()
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "total_score", ve.Errors[0].Field)
	assert.Contains(t, ve.Errors[0].Message, "86")
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		field  string
	}{
		{"missing roastery", func(d *Draft) { d.Roastery = "   " }, "roastery"},
		{"missing coffee", func(d *Draft) { d.CoffeeName = "" }, "coffee_name"},
		{"flavor score too high", func(d *Draft) { d.FlavorScore = 101 }, "flavor_score"},
		{"sensory score negative", func(d *Draft) { d.SensoryScore = -1 }, "sensory_score"},
		{"bad mode", func(d *Draft) { d.Mode = "espresso_bar" }, "mode"},
		{"bad temperature", func(d *Draft) { d.Temperature = "lukewarm" }, "temperature"},
		{"flavor level out of range", func(d *Draft) {
			d.FlavorNotes = []FlavorNote{{Level: 1, Value: "Fruity"}, {Level: 5, Value: "Deep"}}
		}, "flavor_notes[1].level"},
		{"orphan flavor note", func(d *Draft) {
			d.FlavorNotes = []FlavorNote{{Level: 1, Value: "Fruity"}, {Level: 3, Value: "Blueberry"}}
		}, "flavor_notes"},
		{"sensory out of scale", func(d *Draft) {
			s := DefaultSensory()
			s.Body = 8
			d.Sensory = &s
		}, "sensory.body"},
		{"bad mouthfeel", func(d *Draft) {
			s := DefaultSensory()
			s.Mouthfeel = "grainy"
			d.Sensory = &s
		}, "sensory.mouthfeel"},
		{"recipe on cafe", func(d *Draft) { d.Recipe = &BrewRecipe{Method: "V60"} }, "recipe"},
		{"lab on home brew", func(d *Draft) {
			d.Mode = ModeHomeBrew
			d.Lab = &LabMeasurement{TDS: 1.35, ExtractionYield: 20}
		}, "lab"},
		{"recipe without method", func(d *Draft) {
			d.Mode = ModeHomeBrew
			d.Recipe = &BrewRecipe{DoseGrams: 15}
		}, "recipe.method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			err := Validate(d.Normalize())
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "want *ValidationError, got %T", err)
			fields := make([]string, 0, len(ve.Errors))
			for _, fe := range ve.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidate_ModeSubStructures(t *testing.T) {
	d := validDraft()
	d.Mode = ModeLab
	d.Recipe = &BrewRecipe{Method: "V60", DoseGrams: 15, WaterGrams: 250}
	d.Lab = &LabMeasurement{TDS: 1.38, ExtractionYield: 20.5}

	r, err := d.Build()
	require.NoError(t, err)
	require.NotNil(t, r.Recipe)
	require.NotNil(t, r.Lab)
	assert.Equal(t, 20.5, r.Lab.ExtractionYield)
}

func TestFlavorPathError(t *testing.T) {
	assert.Empty(t, FlavorPathError(nil))
	assert.Empty(t, FlavorPathError([]FlavorNote{
		{Level: 2, Value: "Berry"},
		{Level: 1, Value: "Fruity"},
	}))
	assert.Contains(t, FlavorPathError([]FlavorNote{{Level: 2, Value: "Berry"}}), "no parent at level 1")
}

func TestPatchApply_RecomputesTotal(t *testing.T) {
	orig, err := validDraft().Build()
	require.NoError(t, err)
	orig.ID = "rec-1"
	orig.SyncStatus = SyncSynced

	merged, err := Patch{FlavorScore: intPtr(70)}.Apply(orig)
	require.NoError(t, err)

	assert.Equal(t, "rec-1", merged.ID)
	assert.Equal(t, SyncSynced, merged.SyncStatus)
	assert.Equal(t, 70, merged.Scores.Flavor)
	assert.Equal(t, ComposeTotal(70, 80), merged.Scores.Total)
	assert.Equal(t, 90, orig.Scores.Flavor, "original must be untouched")
}

func TestPatchApply_RevalidatesMergedResult(t *testing.T) {
	orig, err := validDraft().Build()
	require.NoError(t, err)

	empty := ""
	_, err = Patch{Roastery: &empty}.Apply(orig)
	assert.True(t, IsValidation(err))

	notes := []FlavorNote{{Level: 2, Value: "Berry"}}
	_, err = Patch{FlavorNotes: &notes}.Apply(orig)
	assert.True(t, IsValidation(err))
}

func TestPatchApply_Clear(t *testing.T) {
	d := validDraft()
	s := DefaultSensory()
	d.Sensory = &s
	orig, err := d.Build()
	require.NoError(t, err)

	merged, err := Patch{ClearSensory: true}.Apply(orig)
	require.NoError(t, err)
	assert.Nil(t, merged.Sensory)
	assert.NotNil(t, orig.Sensory)
}

func TestPatch_IsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{ClearLab: true}.IsEmpty())
}

func TestErrors_Unwrap(t *testing.T) {
	nf := fmt.Errorf("store: update: %w", &NotFoundError{ID: "x"})
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsValidation(nf))
	assert.Equal(t, "store: update: record x: not found", nf.Error())

	ve := NewValidationError("roastery", "is required")
	assert.True(t, errors.Is(ve, ErrValidation))
	assert.Equal(t, "validation: roastery: is required", ve.Error())
}

func TestContentHash(t *testing.T) {
	a, err := validDraft().Build()
	require.NoError(t, err)
	b := a.Clone()
	b.ID = "other"
	b.SyncStatus = SyncSynced
	b.IsDeleted = true

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "identity and flags are not content")
	assert.Len(t, ha, 64)

	b.PersonalComment = "changed"
	hc, err := ContentHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestContentHash_NFCNormalized(t *testing.T) {
	a, err := validDraft().Build()
	require.NoError(t, err)
	b := a.Clone()

	a.Origin = "Café"
	b.Origin = "Café"

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestMarshalCanonical(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b":   int64(1),
		"a":   []any{"<&>", true, nil},
		"c":   1.5,
		"sep": "x\u2028y",
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":[\"<&>\",true,null],\"b\":1,\"c\":1.5,\"sep\":\"x y\"}", string(got))

	_, err = MarshalCanonical(map[string]any{"n": 1})
	assert.Error(t, err, "plain int is not a supported canonical value")
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, BandOutstanding, BandOf(90))
	assert.Equal(t, BandExcellent, BandOf(89))
	assert.Equal(t, BandVeryGood, BandOf(70))
	assert.Equal(t, BandGood, BandOf(60))
	assert.Equal(t, BandBelow, BandOf(59))
	assert.Equal(t, BandBelow, BandOf(0))
}
