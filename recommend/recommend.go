// Package recommend ranks next-semester elective subjects for a student by
// combining demonstrated skill alignment with external market demand.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/SiddhiSinghal/elective-recommender/catalog"
	"github.com/SiddhiSinghal/elective-recommender/market"
	"github.com/SiddhiSinghal/elective-recommender/profile"
	"github.com/SiddhiSinghal/elective-recommender/resolver"
)

// ErrNoElectives signals that the target semester offers no elective
// candidates. An explicit condition, distinct from a computation error.
var ErrNoElectives = errors.New("no electives for semester")

// Row is one ranked recommendation. All scores are on a 0-10 scale.
type Row struct {
	SubjectCode    string  `json:"subject_code"`
	SubjectName    string  `json:"subject_name"`
	Basket         string  `json:"basket"`
	StrengthScore  float64 `json:"strength_score"`
	MarketScore    float64 `json:"market_score"`
	CombinedScore  float64 `json:"combined_score"`
	MarketMeasured bool    `json:"market_measured"`
}

// Scorer computes ranked recommendation rows for a skill profile.
type Scorer struct {
	cat    *catalog.Catalog
	market *market.Provider
	log    zerolog.Logger
}

// NewScorer builds a scorer over the shared catalog and market provider.
func NewScorer(cat *catalog.Catalog, mp *market.Provider, log zerolog.Logger) *Scorer {
	return &Scorer{cat: cat, market: mp, log: log}
}

// Recommend scores every elective candidate in the target semester and
// returns rows grouped by basket (ascending) and ordered within each basket
// by combined score descending, ties broken by subject code ascending.
//
// The second return value lists subject codes whose market score came from
// the fallback path, so callers can disclose estimates versus measured
// values. An empty candidate set returns ErrNoElectives.
func (s *Scorer) Recommend(ctx context.Context, p profile.SkillProfile, semester int) ([]Row, []string, error) {
	candidates := s.cat.Electives(semester)
	if len(candidates) == 0 {
		return nil, nil, fmt.Errorf("%w %d", ErrNoElectives, semester)
	}

	rows := make([]Row, 0, len(candidates))
	var fallback []string

	for _, subject := range candidates {
		strength := StrengthScore(p, subject)

		ms := s.market.ScoreFor(ctx, subject.Name, subject.Description)
		marketScore := ms.Value / 10.0
		if !ms.Measured {
			fallback = append(fallback, subject.Code)
		}

		rows = append(rows, Row{
			SubjectCode:    subject.Code,
			SubjectName:    subject.Name,
			Basket:         subject.Basket,
			StrengthScore:  strength,
			MarketScore:    marketScore,
			CombinedScore:  CombinedScore(strength, marketScore),
			MarketMeasured: ms.Measured,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Basket != rows[j].Basket {
			return rows[i].Basket < rows[j].Basket
		}
		if rows[i].CombinedScore != rows[j].CombinedScore {
			return rows[i].CombinedScore > rows[j].CombinedScore
		}
		return rows[i].SubjectCode < rows[j].SubjectCode
	})

	s.log.Debug().Int("semester", semester).
		Int("candidates", len(rows)).Int("fallback", len(fallback)).
		Msg("recommendations scored")
	return rows, fallback, nil
}

// Result is the full outcome of a recommendation request. The unresolved and
// fallback lists let the presentation layer explain partial degradation
// instead of hiding it.
type Result struct {
	Rows           []Row                    `json:"rows"`
	Unresolved     []string                 `json:"unresolved,omitempty"`
	MarketFallback []string                 `json:"market_fallback,omitempty"`
	Rejected       []profile.RejectedRecord `json:"rejected_records,omitempty"`
}

// Service runs the whole pipeline: transcript -> resolved codes -> skill
// profile -> scored, grouped rows.
type Service struct {
	cat       *catalog.Catalog
	scorer    *Scorer
	threshold float64
	log       zerolog.Logger
}

// NewService wires the recommendation pipeline. threshold is the resolver's
// fuzzy-match acceptance threshold.
func NewService(cat *catalog.Catalog, mp *market.Provider, threshold float64, log zerolog.Logger) *Service {
	return &Service{
		cat:       cat,
		scorer:    NewScorer(cat, mp, log),
		threshold: threshold,
		log:       log,
	}
}

// RecommendElectives maps a transcript to ranked elective recommendations
// for the target semester.
//
// Unresolvable subject names and rejected grade records are collected, never
// fatal; only an empty candidate set aborts, with ErrNoElectives.
func (s *Service) RecommendElectives(ctx context.Context, transcript []resolver.TranscriptEntry, targetSemester int) (*Result, error) {
	res := resolver.New(s.cat,
		resolver.WithThreshold(s.threshold),
		resolver.WithTargetSemester(targetSemester),
	)

	grades, unresolved := res.ResolveAll(transcript)
	if len(unresolved) > 0 {
		s.log.Info().Strs("subjects", unresolved).Msg("transcript subjects could not be mapped")
	}

	prof, rejected := profile.Build(grades, s.cat)
	for _, rec := range rejected {
		s.log.Warn().Str("subject_code", rec.SubjectCode).Str("grade", rec.Grade).
			Str("reason", rec.Reason).Msg("grade record rejected")
	}

	rows, fallback, err := s.scorer.Recommend(ctx, prof, targetSemester)
	if err != nil {
		return nil, err
	}

	return &Result{
		Rows:           rows,
		Unresolved:     unresolved,
		MarketFallback: fallback,
		Rejected:       rejected,
	}, nil
}

// RecommendForGrades runs the pipeline for already-canonical grades, as
// loaded from the grade record store.
func (s *Service) RecommendForGrades(ctx context.Context, grades map[string]string, targetSemester int) (*Result, error) {
	prof, rejected := profile.Build(grades, s.cat)
	for _, rec := range rejected {
		s.log.Warn().Str("subject_code", rec.SubjectCode).Str("grade", rec.Grade).
			Str("reason", rec.Reason).Msg("grade record rejected")
	}

	rows, fallback, err := s.scorer.Recommend(ctx, prof, targetSemester)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows, MarketFallback: fallback, Rejected: rejected}, nil
}
