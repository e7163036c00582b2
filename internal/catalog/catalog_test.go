package catalog

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customYAML = `
rows:
  primary: [avia, yacht]
  secondary: [general]
categories:
  - id: general
  - id: avia
    name: Flights
    form: avia
  - id: yacht_charter
    form: web
    webForm: yacht
  - id: yacht
`

func TestBuiltin(t *testing.T) {
	c := Builtin()

	primary, secondary := c.Rows()
	assert.Equal(t, []string{"avia", "hotel", "vip_lounge", "restaurant", "transfer"}, primary)
	assert.Contains(t, secondary, DefaultCategoryID)

	tests := []struct {
		id     string
		custom bool
		form   FormKind
	}{
		{"avia", true, FormAvia},
		{"vip_lounge", true, FormLounge},
		{"hotel", true, FormHotel},
		{"wine", true, FormWeb},
		{"flowers", true, FormWeb},
		{"restaurant", false, FormNone},
		{"general", false, FormNone},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			cat, ok := c.Category(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.custom, cat.IsCustomForm())
			assert.Equal(t, tt.form, cat.Form)
		})
	}

	gen, _ := c.Category("general")
	assert.True(t, gen.IsDefault())
}

func TestParse_DerivesMissingNames(t *testing.T) {
	c, err := Parse([]byte(customYAML))
	require.NoError(t, err)

	cat, ok := c.Category("yacht_charter")
	require.True(t, ok)
	assert.Equal(t, "Yacht Charter", cat.Name)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown row id":  "rows: {primary: [nope]}\ncategories: [{id: a}]",
		"duplicate id":    "categories: [{id: a}, {id: a}]",
		"missing id":      "categories: [{name: Nameless}]",
		"bad form":        "categories: [{id: a, form: fax}]",
		"web without key": "categories: [{id: a, form: web}]",
		"not yaml":        "rows: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, err := Load(fs, "/etc/concierge/categories.yaml")
	require.NoError(t, err)
	_, ok := c.Category("vip_lounge")
	assert.True(t, ok, "missing file falls back to builtin")

	require.NoError(t, afero.WriteFile(fs, "/etc/concierge/categories.yaml", []byte(customYAML), 0o644))
	c, err = Load(fs, "/etc/concierge/categories.yaml")
	require.NoError(t, err)
	_, ok = c.Category("vip_lounge")
	assert.False(t, ok)
	_, ok = c.Category("yacht")
	assert.True(t, ok)
}

func TestResolve(t *testing.T) {
	c := Builtin()

	tests := []struct {
		query string
		want  string
	}{
		{"avia", "avia"},
		{"Flights", "avia"},
		{"vip lounge", "vip_lounge"},
		{"flowrs", "flowers"},
		{"HOTELS", "hotel"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			cat, err := c.Resolve(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cat.ID)
		})
	}

	_, err := c.Resolve("zzzzzzzz")
	assert.Error(t, err)
	_, err = c.Resolve("  ")
	assert.Error(t, err)
}

func TestWatcher_ReloadKeepsPreviousOnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cfg/categories.yaml"
	require.NoError(t, afero.WriteFile(fs, path, []byte(customYAML), 0o644))

	w, err := NewWatcher(fs, path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	_, ok := w.Category("yacht")
	require.True(t, ok)

	var reloaded int
	w.Reloads().Handle(func(*Catalog) { reloaded++ })

	require.NoError(t, afero.WriteFile(fs, path, []byte("rows: ["), 0o644))
	w.Reload()
	_, ok = w.Category("yacht")
	assert.True(t, ok)
	assert.Zero(t, reloaded)

	require.NoError(t, fs.Remove(path))
	w.Reload()
	_, ok = w.Category("vip_lounge")
	assert.True(t, ok)
	assert.Equal(t, 1, reloaded)

	primary, _ := w.Rows()
	assert.Equal(t, "avia", primary[0])
}
