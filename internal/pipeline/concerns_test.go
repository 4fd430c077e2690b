package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/labelscore/internal/model"
)

func TestAdjustConcerns(t *testing.T) {
	tests := []struct {
		name        string
		concerns    []string
		ingredients bool
		doses       bool
		want        []string
	}{
		{
			name:        "missing list replaced by dosage concern",
			concerns:    []string{"No ingredient list provided"},
			ingredients: true,
			want:        []string{DosageConcern},
		},
		{
			name:        "other concerns kept in order",
			concerns:    []string{"Ingredient list not disclosed", "Contains artificial colors"},
			ingredients: true,
			want:        []string{DosageConcern, "Contains artificial colors"},
		},
		{
			name:        "existing dosage concern not duplicated",
			concerns:    []string{"Proprietary blend hides dosages"},
			ingredients: true,
			want:        []string{"Proprietary blend hides dosages"},
		},
		{
			name:        "doses present leaves concerns alone",
			concerns:    []string{"No ingredient list provided"},
			ingredients: true,
			doses:       true,
			want:        []string{"No ingredient list provided"},
		},
		{
			name:     "no ingredients leaves concerns alone",
			concerns: []string{"No ingredient list provided"},
			want:     []string{"No ingredient list provided"},
		},
		{
			name:        "nil concerns",
			ingredients: true,
			want:        []string{DosageConcern},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustConcerns(tt.concerns, tt.ingredients, tt.doses))
		})
	}
}

func TestAdjustConcerns_DoesNotMutateInput(t *testing.T) {
	in := []string{"No ingredient list provided", "High sugar"}
	_ = AdjustConcerns(in, true, false)
	assert.Equal(t, []string{"No ingredient list provided", "High sugar"}, in)
}

func TestSplitIngredients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{}},
		{"commas", "Whey protein, cocoa, salt.", []string{"Whey protein", "cocoa", "salt"}},
		{"nested separators", "Vitamin D3 (as cholecalciferol, from lanolin), MCT oil [coconut; palm]",
			[]string{"Vitamin D3 (as cholecalciferol, from lanolin)", "MCT oil [coconut; palm]"}},
		{"bullets and lines", "• Zinc\n• Copper\n\n- Selenium", []string{"Zinc", "Copper", "Selenium"}},
		{"semicolons", "Gelatin; glycerin;;water", []string{"Gelatin", "glycerin", "water"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIngredients(tt.raw))
		})
	}
}

func TestNormalize(t *testing.T) {
	in := model.ScorePayload{
		Score: 140, Purity: -5, Effectiveness: 50, Safety: 100, Value: 0,
		Highlights: []string{"a", " ", "b", "c", "d", "e", "f"},
		Concerns:   nil,
	}
	got := Normalize(in)
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, 0, got.Purity)
	assert.Equal(t, 50, got.Effectiveness)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got.Highlights)
	assert.NotNil(t, got.Concerns)
	assert.Empty(t, got.Concerns)

	again := Normalize(model.ScorePayload(got))
	assert.Equal(t, got, again)
}
