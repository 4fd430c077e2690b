package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{49.5, 50},
		{49.4, 49},
		{100, 100},
		{150, 100},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		got := Clamp(tt.in)
		assert.Equal(t, tt.want, got, "Clamp(%v)", tt.in)
		assert.Equal(t, got, Clamp(float64(got)), "Clamp must be idempotent for %v", tt.in)
	}
}

func TestParsePayload(t *testing.T) {
	raw := "```json\n" + `{"score": 82.6, "purity": "90", "effectiveness": 140, "safety": -3,
"value": "n/a", "highlights": ["Third-party tested", "", "  ", "Chelated minerals", "Vegan", "Extra"],
"concerns": "none"}` + "\n```"

	got, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, 83, got.Score)
	assert.Equal(t, 90, got.Purity)
	assert.Equal(t, 100, got.Effectiveness)
	assert.Equal(t, 0, got.Safety)
	assert.Equal(t, 0, got.Value)
	assert.Equal(t, []string{"Third-party tested", "Chelated minerals", "Vegan"}, got.Highlights)
	assert.NotNil(t, got.Concerns)
	assert.Empty(t, got.Concerns)
}

func TestParsePayload_MixedArray(t *testing.T) {
	got, err := ParsePayload(`{"concerns": [1, "Proprietary blend", null, {"x": 1}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Proprietary blend"}, got.Concerns)
	assert.Zero(t, got.Score)
}

func TestParsePayload_OutOfRangeNumbers(t *testing.T) {
	got, err := ParsePayload(`{"score": 1e400, "purity": -1e400, "safety": "1e999", "value": 55, "highlights": ["Tested"]}`)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, 0, got.Purity)
	assert.Equal(t, 100, got.Safety)
	assert.Equal(t, 55, got.Value)
	assert.Equal(t, []string{"Tested"}, got.Highlights)
}

func TestParsePayload_NoObject(t *testing.T) {
	_, err := ParsePayload("I cannot score this product.")
	require.Error(t, err)

	_, err = ParsePayload(`{"score": }`)
	require.Error(t, err)
}
