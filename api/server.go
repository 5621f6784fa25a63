// Package api exposes the recommendation pipeline over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/SiddhiSinghal/elective-recommender/catalog"
	"github.com/SiddhiSinghal/elective-recommender/market"
	"github.com/SiddhiSinghal/elective-recommender/profile"
	"github.com/SiddhiSinghal/elective-recommender/recommend"
	"github.com/SiddhiSinghal/elective-recommender/records"
	"github.com/SiddhiSinghal/elective-recommender/resolver"
)

// Server wires the HTTP routes to the pipeline components.
type Server struct {
	cat       *catalog.Catalog
	store     *records.Store
	provider  *market.Provider
	svc       *recommend.Service
	threshold float64
	log       zerolog.Logger
	validate  *validator.Validate
	router    chi.Router
}

// NewServer builds the HTTP surface.
func NewServer(
	cat *catalog.Catalog,
	store *records.Store,
	provider *market.Provider,
	svc *recommend.Service,
	threshold float64,
	log zerolog.Logger,
) *Server {
	s := &Server{
		cat:       cat,
		store:     store,
		provider:  provider,
		svc:       svc,
		threshold: threshold,
		log:       log,
		validate:  validator.New(),
	}

	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/recommendations", s.handleRecommendations)
		r.Get("/market-score", s.handleMarketScore)
		r.Get("/skill-profile", s.handleSkillProfile)
		r.Put("/grades", s.handleUpsertGrade)
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type recommendationRequest struct {
	StudentID      string                     `json:"student_id"`
	Grades         []resolver.TranscriptEntry `json:"grades"`
	TargetSemester int                        `json:"target_semester" validate:"required,gte=1"`
}

type recommendationResponse struct {
	Status         string                   `json:"status"`
	Semester       int                      `json:"semester"`
	Message        string                   `json:"message,omitempty"`
	Rows           []recommend.Row          `json:"rows"`
	Unresolved     []string                 `json:"unresolved,omitempty"`
	MarketFallback []string                 `json:"market_fallback,omitempty"`
	Rejected       []profile.RejectedRecord `json:"rejected_records,omitempty"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to parse request body", err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "target_semester is required and must be >= 1", err.Error())
		return
	}
	if req.StudentID == "" && len(req.Grades) == 0 {
		s.sendError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "either student_id or grades is required", "")
		return
	}

	var (
		result *recommend.Result
		err    error
	)
	if len(req.Grades) > 0 {
		result, err = s.svc.RecommendElectives(r.Context(), req.Grades, req.TargetSemester)
	} else {
		var grades map[string]string
		grades, err = s.store.Grades(r.Context(), req.StudentID)
		if err != nil {
			s.log.Error().Err(err).Str("student_id", req.StudentID).Msg("grade records load failed")
			s.sendError(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to load grade records", err.Error())
			return
		}
		result, err = s.svc.RecommendForGrades(r.Context(), grades, req.TargetSemester)
	}

	if errors.Is(err, recommend.ErrNoElectives) {
		s.sendJSON(w, http.StatusOK, recommendationResponse{
			Status:   "no_electives",
			Semester: req.TargetSemester,
			Message:  err.Error(),
			Rows:     []recommend.Row{},
		})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("recommendation pipeline failed")
		s.sendError(w, http.StatusInternalServerError, "ALGORITHM_ERROR", "failed to generate recommendations", err.Error())
		return
	}

	s.sendJSON(w, http.StatusOK, recommendationResponse{
		Status:         "success",
		Semester:       req.TargetSemester,
		Rows:           result.Rows,
		Unresolved:     result.Unresolved,
		MarketFallback: result.MarketFallback,
		Rejected:       result.Rejected,
	})
}

type marketScoreResponse struct {
	Subject     string  `json:"subject"`
	SubjectCode string  `json:"subject_code"`
	MarketScore float64 `json:"market_score"`
	Measured    bool    `json:"measured"`
	Meaning     string  `json:"meaning"`
}

func (s *Server) handleMarketScore(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("subject")
	if name == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "subject parameter is required", "")
		return
	}

	res := resolver.New(s.cat, resolver.WithThreshold(s.threshold))
	code, err := res.Resolve(name)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "SUBJECT_NOT_FOUND", "subject not found in catalog", err.Error())
		return
	}
	subject, _ := s.cat.ByCode(code)

	score := s.provider.ScoreFor(r.Context(), subject.Name, subject.Description)
	s.sendJSON(w, http.StatusOK, marketScoreResponse{
		Subject:     subject.Name,
		SubjectCode: subject.Code,
		MarketScore: score.Value,
		Measured:    score.Measured,
		Meaning:     market.Interpret(score.Value),
	})
}

type skillProfileResponse struct {
	StudentID string                   `json:"student_id"`
	Skills    []profile.RankedSkill    `json:"skills"`
	Rejected  []profile.RejectedRecord `json:"rejected_records,omitempty"`
}

func (s *Server) handleSkillProfile(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "student_id parameter is required", "")
		return
	}

	grades, err := s.store.Grades(r.Context(), studentID)
	if err != nil {
		s.log.Error().Err(err).Str("student_id", studentID).Msg("grade records load failed")
		s.sendError(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to load grade records", err.Error())
		return
	}

	prof, rejected := profile.Build(grades, s.cat)
	s.sendJSON(w, http.StatusOK, skillProfileResponse{
		StudentID: studentID,
		Skills:    prof.Top(0),
		Rejected:  rejected,
	})
}

type upsertGradeRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	SubjectCode string `json:"subject_code"`
	Subject     string `json:"subject"`
	Grade       string `json:"grade" validate:"required"`
	Semester    int    `json:"semester"`
}

func (s *Server) handleUpsertGrade(w http.ResponseWriter, r *http.Request) {
	var req upsertGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to parse request body", err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "student_id and grade are required", err.Error())
		return
	}
	if !profile.KnownGrade(req.Grade) {
		s.sendError(w, http.StatusBadRequest, "INVALID_GRADE", "grade is not in the recognized enumeration", req.Grade)
		return
	}

	code := req.SubjectCode
	if code == "" {
		res := resolver.New(s.cat, resolver.WithThreshold(s.threshold))
		resolved, err := res.Resolve(req.Subject)
		if err != nil {
			s.sendError(w, http.StatusNotFound, "SUBJECT_NOT_FOUND", "subject could not be mapped to a catalog code", err.Error())
			return
		}
		code = resolved
	} else if _, ok := s.cat.ByCode(code); !ok {
		s.sendError(w, http.StatusNotFound, "SUBJECT_NOT_FOUND", "unknown subject code", code)
		return
	}

	err := s.store.Upsert(r.Context(), records.GradeRecord{
		StudentID:   req.StudentID,
		SubjectCode: code,
		Grade:       req.Grade,
		Semester:    req.Semester,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("grade upsert failed")
		s.sendError(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to store grade record", err.Error())
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]string{
		"status":       "success",
		"subject_code": code,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "Elective Recommender API",
		"subjects":  s.cat.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message, details string) {
	s.sendJSON(w, status, map[string]string{
		"status":     "error",
		"error_code": code,
		"message":    message,
		"details":    details,
	})
}
