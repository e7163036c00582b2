// Package catalog holds the service categories offered in the new-request picker.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var builtinYAML []byte

// DefaultCategoryID is the free-form chat category. Messages sent under it are
// never tagged.
const DefaultCategoryID = "general"

// Lookup is satisfied by *Catalog and *Watcher.
type Lookup interface {
	Category(id string) (Category, bool)
	Rows() (primary, secondary []string)
}

// FormKind names the embedded form a category renders.
type FormKind string

const (
	FormNone   FormKind = ""
	FormAvia   FormKind = "avia"
	FormLounge FormKind = "lounge"
	FormHotel  FormKind = "hotel"
	FormWeb    FormKind = "web"
)

// Category is one picker entry.
type Category struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Form    FormKind `yaml:"form,omitempty" json:"form,omitempty"`
	WebForm string   `yaml:"webForm,omitempty" json:"webForm,omitempty"`
}

// IsCustomForm reports whether the category opens a dedicated form instead of
// tagging a chat message.
func (c Category) IsCustomForm() bool {
	return c.Form != FormNone
}

// IsDefault reports whether c is the untagged general category.
func (c Category) IsDefault() bool {
	return c.ID == DefaultCategoryID
}

type catalogFile struct {
	Rows struct {
		Primary   []string `yaml:"primary"`
		Secondary []string `yaml:"secondary"`
	} `yaml:"rows"`
	Categories []Category `yaml:"categories"`
}

// Catalog is an immutable, id-indexed category set with its two picker rows.
type Catalog struct {
	categories []Category
	byID       map[string]Category
	primary    []string
	secondary  []string
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: builtin categories are invalid: %v", err))
	}
	return c
}

// Parse builds a catalog from YAML and checks that every row id is defined.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	c := &Catalog{byID: make(map[string]Category, len(f.Categories))}
	title := cases.Title(language.English)
	for _, cat := range f.Categories {
		cat.ID = strings.TrimSpace(cat.ID)
		if cat.ID == "" {
			return nil, fmt.Errorf("category %q has no id", cat.Name)
		}
		if _, dup := c.byID[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category %s", cat.ID)
		}
		switch cat.Form {
		case FormNone, FormAvia, FormLounge, FormHotel:
		case FormWeb:
			if cat.WebForm == "" {
				return nil, fmt.Errorf("category %s: web form needs webForm", cat.ID)
			}
		default:
			return nil, fmt.Errorf("category %s: unknown form %q", cat.ID, cat.Form)
		}
		if cat.Name == "" {
			cat.Name = title.String(strings.ReplaceAll(cat.ID, "_", " "))
		}
		c.byID[cat.ID] = cat
		c.categories = append(c.categories, cat)
	}

	var err error
	if c.primary, err = c.checkRow("primary", f.Rows.Primary); err != nil {
		return nil, err
	}
	if c.secondary, err = c.checkRow("secondary", f.Rows.Secondary); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) checkRow(name string, ids []string) ([]string, error) {
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			return nil, fmt.Errorf("%s row references unknown category %s", name, id)
		}
	}
	return append([]string(nil), ids...), nil
}

// Load reads a catalog file through fs. A missing file yields the builtin catalog.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("check catalog file: %w", err)
	}
	if !exists {
		return Builtin(), nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Category looks up a category by id.
func (c *Catalog) Category(id string) (Category, bool) {
	cat, ok := c.byID[id]
	return cat, ok
}

// Rows returns the ordered ids of the two picker rows.
func (c *Catalog) Rows() (primary, secondary []string) {
	return append([]string(nil), c.primary...), append([]string(nil), c.secondary...)
}

// All returns every category in file order.
func (c *Catalog) All() []Category {
	return append([]Category(nil), c.categories...)
}

// Resolve finds a category by id, then by case-insensitive name, then by the
// closest id or name within a small edit distance.
func (c *Catalog) Resolve(query string) (Category, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Category{}, fmt.Errorf("empty category")
	}
	if cat, ok := c.byID[q]; ok {
		return cat, nil
	}

	type candidate struct {
		cat  Category
		dist int
	}
	var best []candidate
	for _, cat := range c.categories {
		name := strings.ToLower(cat.Name)
		if name == q {
			return cat, nil
		}
		d := min(levenshtein.ComputeDistance(q, cat.ID), levenshtein.ComputeDistance(q, name))
		if d <= len(q)/3+1 {
			best = append(best, candidate{cat, d})
		}
	}
	if len(best) == 0 {
		return Category{}, fmt.Errorf("no category matches %q", query)
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].dist < best[j].dist })
	return best[0].cat, nil
}
