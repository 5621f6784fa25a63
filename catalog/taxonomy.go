package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// Taxonomy is the fixed vocabulary of skill labels. Every skill referenced by
// a subject or a grade mapping must exist here; unknown labels are rejected at
// load time, never silently dropped.
type Taxonomy struct {
	labels map[string]struct{}
	sorted []string
}

type taxonomyFile struct {
	Skills []string `json:"skills"`
}

// LoadTaxonomy reads the skill vocabulary from a JSON file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}

	var f taxonomyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return NewTaxonomy(f.Skills)
}

// NewTaxonomy builds a taxonomy from a label list.
func NewTaxonomy(labels []string) (*Taxonomy, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("taxonomy: empty skill vocabulary")
	}

	t := &Taxonomy{labels: make(map[string]struct{}, len(labels))}
	for _, label := range labels {
		if label == "" {
			return nil, fmt.Errorf("taxonomy: empty skill label")
		}
		if _, dup := t.labels[label]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate skill label %q", label)
		}
		t.labels[label] = struct{}{}
	}

	t.sorted = make([]string, 0, len(t.labels))
	for label := range t.labels {
		t.sorted = append(t.sorted, label)
	}
	sort.Strings(t.sorted)
	return t, nil
}

// Contains reports whether the label is part of the vocabulary.
func (t *Taxonomy) Contains(label string) bool {
	_, ok := t.labels[label]
	return ok
}

// Labels returns the vocabulary in sorted order.
func (t *Taxonomy) Labels() []string {
	return t.sorted
}

// Len returns the vocabulary size.
func (t *Taxonomy) Len() int {
	return len(t.labels)
}
