// Package airport holds the airport directory used to resolve itinerary picks.
package airport

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	yaml "gopkg.in/yaml.v3"
)

//go:embed airports.yaml
var builtinYAML []byte

// Airport is a single airport entry. The zero value means "not selected".
type Airport struct {
	Code    string `yaml:"code" json:"code"`
	Name    string `yaml:"name" json:"name,omitempty"`
	City    string `yaml:"city" json:"city,omitempty"`
	Country string `yaml:"country" json:"country,omitempty"`
}

// IsZero reports whether no airport is set.
func (a Airport) IsZero() bool {
	return a.Code == ""
}

// String renders the airport as "CODE (City)".
func (a Airport) String() string {
	if a.IsZero() {
		return ""
	}
	if a.City == "" {
		return a.Code
	}
	return fmt.Sprintf("%s (%s)", a.Code, a.City)
}

// Directory is an immutable, code-indexed set of airports.
type Directory struct {
	airports []Airport
	byCode   map[string]Airport
}

type directoryFile struct {
	Airports []Airport `yaml:"airports"`
}

// Builtin returns the directory compiled into the binary.
func Builtin() *Directory {
	d, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("airport: builtin directory is invalid: %v", err))
	}
	return d
}

// Parse builds a directory from YAML.
func Parse(data []byte) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse airports: %w", err)
	}
	return New(f.Airports)
}

// New builds a directory from a list of airports. Codes must be unique.
func New(airports []Airport) (*Directory, error) {
	d := &Directory{byCode: make(map[string]Airport, len(airports))}
	for _, a := range airports {
		code := strings.ToUpper(strings.TrimSpace(a.Code))
		if code == "" {
			return nil, fmt.Errorf("airport %q has no code", a.Name)
		}
		if _, dup := d.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate airport code %s", code)
		}
		a.Code = code
		d.byCode[code] = a
		d.airports = append(d.airports, a)
	}
	return d, nil
}

// Lookup returns the airport with the given IATA code.
func (d *Directory) Lookup(code string) (Airport, bool) {
	a, ok := d.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return a, ok
}

// Resolve returns the exact code match, or the best search hit for free text.
func (d *Directory) Resolve(query string) (Airport, error) {
	if a, ok := d.Lookup(query); ok {
		return a, nil
	}
	hits := d.Search(query, 1)
	if len(hits) == 0 {
		return Airport{}, fmt.Errorf("no airport matches %q", query)
	}
	return hits[0], nil
}

// Search ranks airports against query: exact code, then code/city/name prefix,
// then Levenshtein distance to the city or name. Distant matches are dropped.
func (d *Directory) Search(query string, limit int) []Airport {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type scored struct {
		airport Airport
		score   int
	}
	var results []scored
	maxDistance := len(q)/3 + 1

	for _, a := range d.airports {
		code := strings.ToLower(a.Code)
		city := strings.ToLower(a.City)
		name := strings.ToLower(a.Name)

		score := -1
		switch {
		case code == q:
			score = 0
		case strings.HasPrefix(code, q):
			score = 1
		case strings.HasPrefix(city, q):
			score = 2
		case strings.Contains(name, q):
			score = 3
		default:
			dist := min(levenshtein.ComputeDistance(q, city), levenshtein.ComputeDistance(q, name))
			if dist <= maxDistance {
				score = 4 + dist
			}
		}
		if score >= 0 {
			results = append(results, scored{airport: a, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score < results[j].score
		}
		return results[i].airport.Code < results[j].airport.Code
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]Airport, len(results))
	for i, r := range results {
		out[i] = r.airport
	}
	return out
}

// All returns every airport in file order.
func (d *Directory) All() []Airport {
	out := make([]Airport, len(d.airports))
	copy(out, d.airports)
	return out
}
