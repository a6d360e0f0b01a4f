package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeBase(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want string
	}{
		{
			name: "no suffix",
			mode: "BCSV Flexible",
			want: "BCSV Flexible",
		},
		{
			name: "tracking off",
			mode: "BCSV Flexible [trk=off]",
			want: "BCSV Flexible",
		},
		{
			name: "tracking on",
			mode: "BCSV Static [trk=on]",
			want: "BCSV Static",
		},
		{
			name: "suffix only at end",
			mode: "[trk=off] BCSV",
			want: "[trk=off] BCSV",
		},
		{
			name: "empty",
			mode: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModeBase(tt.mode))
		})
	}
}

func TestKeyOfDefaults(t *testing.T) {
	r := &ResultRecord{
		Dataset:    "nyc_taxi",
		Mode:       "BCSV Flexible [trk=off]",
		NumColumns: 12,
	}

	key := KeyOf(r)

	assert.Equal(t, "nyc_taxi", key.Dataset)
	assert.Equal(t, "BCSV Flexible", key.Mode)
	assert.Equal(t, "baseline", key.ScenarioID)
	assert.Equal(t, "-", key.AccessPath)
	assert.Equal(t, int64(12), key.SelectedColumns)
}

func TestKeyOfExplicitFields(t *testing.T) {
	r := &ResultRecord{
		Dataset:         "weather",
		Mode:            "BCSV Static",
		ScenarioID:      "projection",
		AccessPath:      "mmap",
		SelectedColumns: 3,
		NumColumns:      20,
	}

	key := KeyOf(r)

	assert.Equal(t, "projection", key.ScenarioID)
	assert.Equal(t, "mmap", key.AccessPath)
	assert.Equal(t, int64(3), key.SelectedColumns)
}

func TestKeyMatchingAcrossTrackingStates(t *testing.T) {
	a := KeyOf(&ResultRecord{Dataset: "d", Mode: "BCSV Flexible [trk=on]", NumColumns: 4})
	b := KeyOf(&ResultRecord{Dataset: "d", Mode: "BCSV Flexible [trk=off]", NumColumns: 4})

	assert.Equal(t, a, b)
}

func TestSortKeys(t *testing.T) {
	keys := []WorkloadKey{
		{Dataset: "b", Mode: "m", ScenarioID: "s", AccessPath: "-", SelectedColumns: 1},
		{Dataset: "a", Mode: "z", ScenarioID: "s", AccessPath: "-", SelectedColumns: 1},
		{Dataset: "a", Mode: "m", ScenarioID: "s", AccessPath: "-", SelectedColumns: 2},
		{Dataset: "a", Mode: "m", ScenarioID: "s", AccessPath: "-", SelectedColumns: 1},
	}

	SortKeys(keys)

	assert.Equal(t, "a", keys[0].Dataset)
	assert.Equal(t, int64(1), keys[0].SelectedColumns)
	assert.Equal(t, int64(2), keys[1].SelectedColumns)
	assert.Equal(t, "z", keys[2].Mode)
	assert.Equal(t, "b", keys[3].Dataset)
}

func TestModeMatches(t *testing.T) {
	aliases := []string{"bcsv flexible", "BCSV Static"}

	assert.True(t, ModeMatches("BCSV Flexible [trk=off]", aliases))
	assert.True(t, ModeMatches("bcsv static", aliases))
	assert.False(t, ModeMatches("Parquet", aliases))
}
