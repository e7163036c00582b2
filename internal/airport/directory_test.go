package airport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_LookupIsCaseInsensitive(t *testing.T) {
	d := Builtin()

	a, ok := d.Lookup("jfk")
	require.True(t, ok)
	assert.Equal(t, "JFK", a.Code)
	assert.Equal(t, "New York", a.City)

	_, ok = d.Lookup("XXX")
	assert.False(t, ok)
}

func TestDirectory_Search(t *testing.T) {
	d := Builtin()

	tests := []struct {
		name      string
		query     string
		wantFirst string
	}{
		{"exact code", "LAX", "LAX"},
		{"city prefix", "paris", "CDG"},
		{"typo in city", "Frankfrut", "FRA"},
		{"name fragment", "heathrow", "LHR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := d.Search(tt.query, 3)
			require.NotEmpty(t, hits)
			assert.Equal(t, tt.wantFirst, hits[0].Code)
		})
	}
}

func TestDirectory_SearchRespectsLimit(t *testing.T) {
	hits := Builtin().Search("lon", 1)
	assert.Len(t, hits, 1)
}

func TestDirectory_Resolve(t *testing.T) {
	d := Builtin()

	a, err := d.Resolve("new york")
	require.NoError(t, err)
	assert.Contains(t, []string{"JFK", "LGA"}, a.Code)

	_, err = d.Resolve("zzzzzzzzzzzz")
	assert.Error(t, err)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New([]Airport{{Code: "AAA"}, {Code: "aaa"}})
	assert.Error(t, err)

	_, err = New([]Airport{{Name: "Nowhere"}})
	assert.Error(t, err)
}

func TestAirport_String(t *testing.T) {
	assert.Equal(t, "", Airport{}.String())
	assert.Equal(t, "JFK", Airport{Code: "JFK"}.String())
	assert.Equal(t, "JFK (New York)", Airport{Code: "JFK", City: "New York"}.String())
}
