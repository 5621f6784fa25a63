package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiddhiSinghal/elective-recommender/catalog"
	"github.com/SiddhiSinghal/elective-recommender/market"
	"github.com/SiddhiSinghal/elective-recommender/recommend"
	"github.com/SiddhiSinghal/elective-recommender/records"
	"github.com/SiddhiSinghal/elective-recommender/resolver"
)

type stubSource struct {
	scores map[string]float64
	err    error
}

func (s *stubSource) Lookup(ctx context.Context, name, description string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if v, ok := s.scores[name]; ok {
		return v, nil
	}
	return 50, nil
}

func testServer(t *testing.T, source market.SignalSource) *Server {
	t.Helper()

	tax, err := catalog.NewTaxonomy([]string{"programming", "networking", "databases"})
	require.NoError(t, err)
	cat, err := catalog.New([]catalog.Subject{
		{Code: "CS101", Name: "Intro to Programming", Semester: 1, Type: "C",
			RequiredSkills: map[string]float64{"programming": 1.0}},
		{Code: "CS301", Name: "Computer Networks", Semester: 5, Type: "E", Basket: "B1",
			RequiredSkills: map[string]float64{"networking": 0.8, "programming": 0.2}},
		{Code: "CS322", Name: "Database Systems", Semester: 5, Type: "E", Basket: "B1",
			RequiredSkills: map[string]float64{"databases": 0.7, "programming": 0.3}},
	}, tax)
	require.NoError(t, err)

	store, err := records.Open(filepath.Join(t.TempDir(), "grades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	provider := market.NewProvider(market.NewCache(db), source)
	svc := recommend.NewService(cat, provider, resolver.DefaultThreshold, zerolog.Nop())
	return NewServer(cat, store, provider, svc, resolver.DefaultThreshold, zerolog.Nop())
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := testServer(t, &stubSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRecommendationsFromTranscript(t *testing.T) {
	s := testServer(t, &stubSource{scores: map[string]float64{
		"Computer Networks": 80,
		"Database Systems":  90,
	}})

	rec := postJSON(t, s.Handler(), "/api/v1/recommendations", map[string]interface{}{
		"target_semester": 5,
		"grades": []map[string]interface{}{
			{"subject": "Intro to Programming", "grade": "A"},
			{"subject": "Quantum Basket Weaving", "grade": "B"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, []string{"Quantum Basket Weaving"}, resp.Unresolved)
	for _, row := range resp.Rows {
		assert.InDelta(t, 0.6*row.StrengthScore+0.4*row.MarketScore, row.CombinedScore, 1e-12)
	}
}

func TestRecommendationsNoElectives(t *testing.T) {
	s := testServer(t, &stubSource{})

	rec := postJSON(t, s.Handler(), "/api/v1/recommendations", map[string]interface{}{
		"target_semester": 8,
		"grades":          []map[string]interface{}{{"subject": "Intro to Programming", "grade": "A"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no_electives", resp.Status)
	assert.Empty(t, resp.Rows)
	assert.Contains(t, resp.Message, "no electives for semester 8")
}

func TestRecommendationsValidation(t *testing.T) {
	s := testServer(t, &stubSource{})

	rec := postJSON(t, s.Handler(), "/api/v1/recommendations", map[string]interface{}{
		"grades": []map[string]interface{}{{"subject": "X", "grade": "A"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, s.Handler(), "/api/v1/recommendations", map[string]interface{}{
		"target_semester": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationsFromStoredGrades(t *testing.T) {
	s := testServer(t, &stubSource{scores: map[string]float64{
		"Computer Networks": 80,
		"Database Systems":  90,
	}})

	require.NoError(t, s.store.Upsert(context.Background(), records.GradeRecord{
		StudentID: "s1", SubjectCode: "CS101", Grade: "A+", Semester: 1,
	}))

	rec := postJSON(t, s.Handler(), "/api/v1/recommendations", map[string]interface{}{
		"student_id":      "s1",
		"target_semester": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 2)
	// CS322 carries more programming weight than CS301 and a higher market
	// score, so it ranks first.
	assert.Equal(t, "CS322", resp.Rows[0].SubjectCode)
}

func TestMarketScoreEndpoint(t *testing.T) {
	s := testServer(t, &stubSource{scores: map[string]float64{"Computer Networks": 92}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/market-score?subject=Computer+Networks", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp marketScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CS301", resp.SubjectCode)
	assert.Equal(t, 92.0, resp.MarketScore)
	assert.True(t, resp.Measured)
	assert.Contains(t, resp.Meaning, "Excellent")
}

func TestMarketScoreUnknownSubject(t *testing.T) {
	s := testServer(t, &stubSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/market-score?subject=Organic+Chemistry", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpsertGradeAndSkillProfile(t *testing.T) {
	s := testServer(t, &stubSource{})

	// Free-text subject name resolves to its code on write.
	data, _ := json.Marshal(map[string]interface{}{
		"student_id": "s1",
		"subject":    "intro to programming",
		"grade":      "A",
		"semester":   1,
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/grades", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CS101")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/skill-profile?student_id=s1", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp skillProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Skills, 1)
	assert.Equal(t, "programming", resp.Skills[0].Label)
	assert.InDelta(t, 0.9, resp.Skills[0].Strength, 1e-9)
}

func TestUpsertGradeRejectsUnknownGrade(t *testing.T) {
	s := testServer(t, &stubSource{})

	data, _ := json.Marshal(map[string]interface{}{
		"student_id":   "s1",
		"subject_code": "CS101",
		"grade":        "A++",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/grades", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_GRADE")
}
