package ideas

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Entry is a relation ("Mother") or an occasion ("Birthday").
type Entry struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Catalog holds the dictionaries a generate command may reference by id.
type Catalog struct {
	relations []Entry
	occasions []Entry
	byRel     map[int64]Entry
	byOcc     map[int64]Entry
}

type catalogFile struct {
	Relations []Entry `yaml:"relations"`
	Occasions []Entry `yaml:"occasions"`
}

func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	byRel, err := index("relation", file.Relations)
	if err != nil {
		return nil, err
	}
	byOcc, err := index("occasion", file.Occasions)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		relations: sortedByName(file.Relations),
		occasions: sortedByName(file.Occasions),
		byRel:     byRel,
		byOcc:     byOcc,
	}, nil
}

func index(kind string, entries []Entry) (map[int64]Entry, error) {
	m := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		if e.ID <= 0 || e.Name == "" {
			return nil, fmt.Errorf("catalog: invalid %s entry %+v", kind, e)
		}
		if _, dup := m[e.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate %s id %d", kind, e.ID)
		}
		m[e.ID] = e
	}
	return m, nil
}

func sortedByName(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Relations returns all relations ordered by name.
func (c *Catalog) Relations() []Entry {
	return append([]Entry(nil), c.relations...)
}

// Occasions returns all occasions ordered by name.
func (c *Catalog) Occasions() []Entry {
	return append([]Entry(nil), c.occasions...)
}

func (c *Catalog) Relation(id int64) (Entry, bool) {
	e, ok := c.byRel[id]
	return e, ok
}

func (c *Catalog) Occasion(id int64) (Entry, bool) {
	e, ok := c.byOcc[id]
	return e, ok
}
