package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studyplanner/internal/academic"
	"studyplanner/internal/config"
	"studyplanner/internal/llm"
	"studyplanner/internal/models"
	"studyplanner/internal/plan"
	"studyplanner/internal/storage"
)

// memStorage ist ein In-Memory-Storage für Handler-Tests
type memStorage struct {
	plan      *models.StudyPlan
	prefs     *models.UserPreferences
	whitelist []models.WhitelistEntry
	sessions  []models.PomodoroSession
}

func (m *memStorage) LoadPlan() (*models.StudyPlan, error) {
	if m.plan == nil {
		return nil, storage.ErrNotFound
	}
	return m.plan, nil
}

func (m *memStorage) SavePlan(p *models.StudyPlan) error {
	m.plan = p
	return nil
}

func (m *memStorage) ClearPlan() error {
	m.plan = nil
	return nil
}

func (m *memStorage) SetActivityCompleted(id string, completed bool) (*models.StudyPlan, error) {
	if m.plan == nil {
		return nil, storage.ErrNotFound
	}
	act := m.plan.FindActivity(id)
	if act == nil {
		return nil, storage.ErrNotFound
	}
	act.Completed = completed
	return m.plan, nil
}

func (m *memStorage) LoadPreferences() (*models.UserPreferences, error) {
	if m.prefs == nil {
		return models.DefaultPreferences(), nil
	}
	return m.prefs, nil
}

func (m *memStorage) SavePreferences(p *models.UserPreferences) error {
	m.prefs = p
	return nil
}

func (m *memStorage) AddWhitelistEntry(e *models.WhitelistEntry) error {
	m.whitelist = append(m.whitelist, *e)
	return nil
}

func (m *memStorage) ListWhitelist() ([]models.WhitelistEntry, error) {
	return m.whitelist, nil
}

func (m *memStorage) DeleteWhitelistEntry(id string) error {
	for i, e := range m.whitelist {
		if e.ID == id {
			m.whitelist = append(m.whitelist[:i], m.whitelist[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStorage) AppendSession(s *models.PomodoroSession) error {
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *memStorage) ListSessions() ([]models.PomodoroSession, error) {
	return m.sessions, nil
}

func (m *memStorage) Close() error { return nil }

// stubProvider liefert eine feste Antwort
type stubProvider struct {
	response string
	err      error
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options *llm.GenerateOptions) (*llm.GenerateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Content: s.response, Model: "stub", Done: true}, nil
}

func (s *stubProvider) GetModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return []llm.ModelInfo{{Name: "stub"}}, nil
}
func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }
func (s *stubProvider) GetName() string                      { return "Stub" }
func (s *stubProvider) SetModel(model string)                {}
func (s *stubProvider) GetCurrentModel() string              { return "stub" }

// academicStub liefert für jede Kategorie eine leere Liste
func academicStub(t *testing.T) *academic.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return academic.NewClient(srv.URL, "/students/me")
}

func newTestHandler(t *testing.T, store storage.Storage, provider llm.Provider) http.Handler {
	t.Helper()
	cfg := config.Default()
	h := NewHandler(store, provider, academicStub(t), cfg)
	return NewRouter(h)
}

func planJSON(start string, days int) string {
	var dd []string
	for i := 0; i < days; i++ {
		date := plan.AddDays(start, i)
		dd = append(dd, fmt.Sprintf(`{
			"date": %q, "dayOfWeek": %q, "summary": "",
			"activities": [{
				"id": "act-%d", "startTime": "09:00 AM", "endTime": "10:00 AM",
				"description": "Lernen", "type": "study", "completed": false
			}]
		}`, date, plan.DayOfWeek(date), i))
	}
	return fmt.Sprintf(`{"startDate": %q, "endDate": %q, "dailyPlans": [%s]}`,
		start, plan.ExpectedEndDate(start, days), strings.Join(dd, ","))
}

func TestGeneratePlanHappyPath(t *testing.T) {
	store := &memStorage{}
	router := newTestHandler(t, store, &stubProvider{response: planJSON("2025-01-06", 7)})

	body := strings.NewReader(`{"current_date": "2025-01-06", "plan_duration_days": 7}`)
	req := httptest.NewRequest("POST", "/api/v1/plan/generate", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Plan       *models.StudyPlan `json:"plan"`
		Violations []plan.Violation  `json:"violations"`
		RequestID  string            `json:"request_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Antwort nicht dekodierbar: %v", err)
	}
	if result.Plan == nil || len(result.Plan.DailyPlans) != 7 {
		t.Fatalf("Plan fehlt oder unvollständig: %+v", result.Plan)
	}
	if len(result.Violations) != 0 {
		t.Errorf("unerwartete Verstöße: %v", result.Violations)
	}
	if result.RequestID == "" {
		t.Error("request_id fehlt")
	}
	if store.plan == nil {
		t.Error("Plan nicht gespeichert")
	}
}

func TestGeneratePlanReportsViolations(t *testing.T) {
	// 6 statt 7 Tage: Plan wird angenommen, der Verstoß steht in der
	// Antwort
	store := &memStorage{}
	router := newTestHandler(t, store, &stubProvider{response: planJSON("2025-01-06", 6)})

	body := strings.NewReader(`{"current_date": "2025-01-06", "plan_duration_days": 7}`)
	req := httptest.NewRequest("POST", "/api/v1/plan/generate", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Violations []plan.Violation `json:"violations"`
	}
	json.Unmarshal(rec.Body.Bytes(), &result)
	found := false
	for _, v := range result.Violations {
		if strings.Contains(v.Message, "day count mismatch") {
			found = true
		}
	}
	if !found {
		t.Errorf("Tagesanzahl-Verstoß fehlt: %v", result.Violations)
	}
}

func TestGeneratePlanBareArrayIs502(t *testing.T) {
	store := &memStorage{}
	router := newTestHandler(t, store, &stubProvider{
		response: `[{"date":"2025-01-06","dayOfWeek":"Monday","activities":[]}]`,
	})

	req := httptest.NewRequest("POST", "/api/v1/plan/generate",
		strings.NewReader(`{"current_date": "2025-01-06"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Status = %d, want 502: %s", rec.Code, rec.Body.String())
	}
	if store.plan != nil {
		t.Error("abgelehnter Kandidat darf nicht gespeichert werden")
	}
}

func TestGeneratePlanProviderDownIs502(t *testing.T) {
	router := newTestHandler(t, &memStorage{}, &stubProvider{err: fmt.Errorf("connection refused")})

	req := httptest.NewRequest("POST", "/api/v1/plan/generate",
		strings.NewReader(`{"current_date": "2025-01-06"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Status = %d, want 502: %s", rec.Code, rec.Body.String())
	}
}

func TestGeneratePlanMalformedDateIs400(t *testing.T) {
	router := newTestHandler(t, &memStorage{}, &stubProvider{response: planJSON("2025-01-06", 7)})

	req := httptest.NewRequest("POST", "/api/v1/plan/generate",
		strings.NewReader(`{"current_date": "06.01.2025"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestGeneratePlanConcurrentIs429(t *testing.T) {
	router := newTestHandler(t, &memStorage{}, &stubProvider{response: planJSON("2025-01-06", 7)})

	if !beginGeneration() {
		t.Fatal("Generierungs-Slot belegt")
	}
	defer endGeneration()

	req := httptest.NewRequest("POST", "/api/v1/plan/generate",
		strings.NewReader(`{"current_date": "2025-01-06"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Status = %d, want 429: %s", rec.Code, rec.Body.String())
	}
}

func TestGetPlan(t *testing.T) {
	store := &memStorage{}
	router := newTestHandler(t, store, &stubProvider{})

	req := httptest.NewRequest("GET", "/api/v1/plan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ohne Plan: Status = %d, want 404", rec.Code)
	}

	store.plan = &models.StudyPlan{StartDate: "2025-01-06", EndDate: "2025-01-12"}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/plan", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("mit Plan: Status = %d, want 200", rec.Code)
	}
}

func TestDeletePlan(t *testing.T) {
	store := &memStorage{plan: &models.StudyPlan{StartDate: "2025-01-06"}}
	router := newTestHandler(t, store, &stubProvider{})

	req := httptest.NewRequest("DELETE", "/api/v1/plan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if store.plan != nil {
		t.Error("Plan nicht gelöscht")
	}
}

func TestUpdateActivity(t *testing.T) {
	store := &memStorage{
		plan: &models.StudyPlan{
			StartDate: "2025-01-06",
			EndDate:   "2025-01-12",
			DailyPlans: []models.StudyPlanDay{{
				Date: "2025-01-06",
				Activities: []models.StudyActivity{
					{ID: "act-1", Description: "Lernen", Type: models.ActivityStudy},
				},
			}},
		},
	}
	router := newTestHandler(t, store, &stubProvider{})

	req := httptest.NewRequest("PUT", "/api/v1/plan/activities/act-1",
		strings.NewReader(`{"completed": true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !store.plan.DailyPlans[0].Activities[0].Completed {
		t.Error("Flag nicht gesetzt")
	}

	// Unbekannte Aktivität
	req = httptest.NewRequest("PUT", "/api/v1/plan/activities/gibts-nicht",
		strings.NewReader(`{"completed": true}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", rec.Code)
	}
}

func TestExportPlanICS(t *testing.T) {
	store := &memStorage{
		plan: &models.StudyPlan{
			StartDate: "2025-01-06",
			EndDate:   "2025-01-06",
			DailyPlans: []models.StudyPlanDay{{
				Date:      "2025-01-06",
				DayOfWeek: "Monday",
				Activities: []models.StudyActivity{
					{ID: "act-1", StartTime: "09:00 AM", EndTime: "10:00 AM",
						Description: "Analysis wiederholen", Type: models.ActivityStudy},
				},
			}},
		},
	}
	router := newTestHandler(t, store, &stubProvider{})

	req := httptest.NewRequest("GET", "/api/v1/plan/export.ics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "Analysis wiederholen"} {
		if !strings.Contains(body, want) {
			t.Errorf("iCal-Ausgabe enthält %q nicht", want)
		}
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	store := &memStorage{}
	router := newTestHandler(t, store, &stubProvider{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/preferences", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: Status = %d, want 200", rec.Code)
	}

	// Ungültige Technik wird abgewiesen
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/v1/preferences", strings.NewReader(
		`{"preferredStudyTimes":["morning"],"studyTechniques":["cramming"],"defaultSessionLength":50,"defaultBreakCadence":10}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PUT ungültig: Status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/v1/preferences", strings.NewReader(
		`{"preferredStudyTimes":["evening"],"studyTechniques":["feynman"],"defaultSessionLength":25,"defaultBreakCadence":5}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT gültig: Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if store.prefs == nil || store.prefs.DefaultSessionLength != 25 {
		t.Errorf("Einstellungen nicht gespeichert: %+v", store.prefs)
	}
}

func TestWhitelistEndpoints(t *testing.T) {
	store := &memStorage{}
	router := newTestHandler(t, store, &stubProvider{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/whitelist",
		strings.NewReader(`{"url": "https://wikipedia.org"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST: Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var entry models.WhitelistEntry
	json.Unmarshal(rec.Body.Bytes(), &entry)
	if entry.ID == "" || entry.URL != "https://wikipedia.org" {
		t.Fatalf("Eintrag = %+v", entry)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/whitelist/"+entry.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE: Status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/whitelist/"+entry.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("DELETE (wiederholt): Status = %d, want 404", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	store := &memStorage{}
	router := newTestHandler(t, store, &stubProvider{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/sessions",
		strings.NewReader(`{"minutes": 50, "activity_id": "act-1"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST: Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/sessions",
		strings.NewReader(`{"minutes": 0}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST ungültig: Status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: Status = %d, want 200", rec.Code)
	}
	var resp struct {
		Sessions []models.PomodoroSession `json:"sessions"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Sessions) != 1 {
		t.Errorf("erwartet 1 Sitzung, bekommen %d", len(resp.Sessions))
	}
}
