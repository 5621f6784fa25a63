// Package catalog holds the master subject catalog and the skill taxonomy.
// Both are loaded once at startup, validated, and shared read-only by every
// request.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// Subject types that count as electives for recommendation purposes.
const (
	TypeElective     = "E"
	TypeOptionalCore = "OC"
)

// Subject is one row of the master catalog.
type Subject struct {
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Basket         string             `json:"basket"`
	Semester       int                `json:"semester"`
	Type           string             `json:"type"`
	RequiredSkills map[string]float64 `json:"required_skills"`
}

// IsElective reports whether the subject can be recommended as an elective.
func (s Subject) IsElective() bool {
	return s.Type == TypeElective || s.Type == TypeOptionalCore
}

// Catalog is the loaded, validated subject catalog. Immutable after Load.
type Catalog struct {
	subjects []Subject
	byCode   map[string]*Subject
	taxonomy *Taxonomy
}

type catalogFile struct {
	Subjects []Subject `json:"subjects"`
}

// Load reads the subject catalog from a JSON file and validates it against the
// taxonomy. Duplicate codes, unknown skill labels and out-of-range weights are
// configuration errors: the process should not start with a broken catalog.
func Load(path string, tax *Taxonomy) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(f.Subjects, tax)
}

// New builds a catalog from an in-memory subject list. Exposed for tests and
// for callers that source subjects from somewhere other than a file.
func New(subjects []Subject, tax *Taxonomy) (*Catalog, error) {
	c := &Catalog{
		subjects: subjects,
		byCode:   make(map[string]*Subject, len(subjects)),
		taxonomy: tax,
	}

	for i := range c.subjects {
		s := &c.subjects[i]
		if s.Code == "" {
			return nil, fmt.Errorf("catalog: subject %q has empty code", s.Name)
		}
		if s.Name == "" {
			return nil, fmt.Errorf("catalog: subject %s has empty name", s.Code)
		}
		if s.Semester < 1 {
			return nil, fmt.Errorf("catalog: subject %s has invalid semester %d", s.Code, s.Semester)
		}
		if _, dup := c.byCode[s.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate subject code %s", s.Code)
		}
		for label, w := range s.RequiredSkills {
			if !tax.Contains(label) {
				return nil, fmt.Errorf("catalog: subject %s references unknown skill %q", s.Code, label)
			}
			if w < 0 || w > 1 {
				return nil, fmt.Errorf("catalog: subject %s skill %q weight %.2f outside [0,1]", s.Code, label, w)
			}
		}
		c.byCode[s.Code] = s
	}
	return c, nil
}

// ByCode returns the subject with the given code.
func (c *Catalog) ByCode(code string) (Subject, bool) {
	s, ok := c.byCode[code]
	if !ok {
		return Subject{}, false
	}
	return *s, true
}

// Subjects returns all subjects in catalog order.
func (c *Catalog) Subjects() []Subject {
	return c.subjects
}

// Electives returns the elective/optional-core subjects offered in the given
// semester, ordered by code for reproducibility.
func (c *Catalog) Electives(semester int) []Subject {
	var out []Subject
	for _, s := range c.subjects {
		if s.Semester == semester && s.IsElective() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Taxonomy returns the skill taxonomy the catalog was validated against.
func (c *Catalog) Taxonomy() *Taxonomy {
	return c.taxonomy
}

// Len returns the number of subjects in the catalog.
func (c *Catalog) Len() int {
	return len(c.subjects)
}
