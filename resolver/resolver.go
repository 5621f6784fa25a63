// Package resolver maps free-text subject names, as they appear on a
// transcript, onto canonical catalog subject codes.
package resolver

import (
	"errors"
	"fmt"

	"github.com/SiddhiSinghal/elective-recommender/catalog"
	"github.com/SiddhiSinghal/elective-recommender/textmatch"
)

// DefaultThreshold is the minimum fuzzy similarity accepted for a match.
const DefaultThreshold = 0.70

// ErrNotFound is returned when no catalog name matches above the threshold.
var ErrNotFound = errors.New("subject name not found in catalog")

// Resolver resolves transcript subject names against the catalog.
type Resolver struct {
	cat       *catalog.Catalog
	threshold float64

	// semester biases tie-breaking toward subjects offered in the target
	// semester; zero disables the bias.
	semester int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold overrides the fuzzy-match acceptance threshold.
func WithThreshold(t float64) Option {
	return func(r *Resolver) { r.threshold = t }
}

// WithTargetSemester makes ties at equal similarity prefer subjects offered
// in the given semester.
func WithTargetSemester(sem int) Option {
	return func(r *Resolver) { r.semester = sem }
}

// New builds a resolver over the catalog.
func New(cat *catalog.Catalog, opts ...Option) *Resolver {
	r := &Resolver{cat: cat, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a free-text subject name to its canonical code.
//
// Exact matches (case-insensitive, whitespace-normalized) always win,
// regardless of the threshold. Otherwise the best fuzzy similarity across the
// catalog is taken and accepted only at or above the threshold. Ties at the
// maximum similarity prefer a subject in the target semester, then the
// lexicographically smallest code, so resolution is reproducible.
func (r *Resolver) Resolve(name string) (string, error) {
	normalized := textmatch.Normalize(name)
	if normalized == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}

	var (
		best      string
		bestScore float64
		bestInSem bool
	)

	for _, subject := range r.cat.Subjects() {
		if textmatch.Normalize(subject.Name) == normalized {
			return subject.Code, nil
		}

		score := textmatch.Similarity(name, subject.Name)
		if score < r.threshold {
			continue
		}

		inSem := r.semester > 0 && subject.Semester == r.semester
		switch {
		case score > bestScore:
		case score == bestScore && inSem && !bestInSem:
		case score == bestScore && inSem == bestInSem && best != "" && subject.Code < best:
		default:
			continue
		}
		best, bestScore, bestInSem = subject.Code, score, inSem
	}

	if best == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return best, nil
}

// TranscriptEntry is one parsed line of a transcript: a free-text subject
// name, a letter grade, and the semester it was taken in (0 when untagged).
type TranscriptEntry struct {
	Subject  string `json:"subject"`
	Grade    string `json:"grade"`
	Semester int    `json:"semester,omitempty"`
}

// ResolveAll maps an ordered transcript to {canonical code -> letter grade},
// collecting names that could not be resolved so the caller can report them
// instead of silently losing grades.
//
// When the same subject appears more than once, a record tagged with a higher
// semester wins; among untagged or equally tagged records the later entry
// wins (last-write-wins by insertion order).
func (r *Resolver) ResolveAll(entries []TranscriptEntry) (map[string]string, []string) {
	grades := make(map[string]string, len(entries))
	semesters := make(map[string]int, len(entries))
	var unresolved []string

	for _, e := range entries {
		code, err := r.Resolve(e.Subject)
		if err != nil {
			unresolved = append(unresolved, e.Subject)
			continue
		}

		if prev, seen := semesters[code]; seen && e.Semester < prev {
			continue
		}
		grades[code] = e.Grade
		semesters[code] = e.Semester
	}
	return grades, unresolved
}
