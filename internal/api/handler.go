package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"studyplanner/internal/academic"
	"studyplanner/internal/config"
	"studyplanner/internal/llm"
	"studyplanner/internal/models"
	"studyplanner/internal/plan"
	"studyplanner/internal/storage"
)

// Handler verwaltet alle API-Endpunkte
type Handler struct {
	store    storage.Storage
	llm      llm.Provider
	planner  *llm.Planner
	academic *academic.Client
	config   *config.Config
	upgrader websocket.Upgrader
}

// NewHandler erstellt einen neuen API-Handler
func NewHandler(store storage.Storage, llmProvider llm.Provider, academicClient *academic.Client, cfg *config.Config) *Handler {
	return &Handler{
		store:    store,
		llm:      llmProvider,
		planner:  llm.NewPlanner(llmProvider),
		academic: academicClient,
		config:   cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Response-Helper
func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// planErrorResponse bildet die Fehlerarten der Plan-Pipeline auf
// HTTP-Status ab: defekte Anfrage 400, nicht erreichbares Backend,
// Generator-Fehler und abgelehnte Kandidaten 502
func planErrorResponse(w http.ResponseWriter, err error) {
	var malformed *plan.MalformedRequestError
	var unavailable *academic.UnavailableError
	var genErr *llm.GenerationError
	var rejected *plan.RejectionError

	switch {
	case errors.As(err, &malformed):
		errorResponse(w, malformed.Error(), http.StatusBadRequest)
	case errors.As(err, &unavailable):
		errorResponse(w, unavailable.Error(), http.StatusBadGateway)
	case errors.As(err, &genErr):
		errorResponse(w, genErr.Error(), http.StatusBadGateway)
	case errors.As(err, &rejected):
		errorResponse(w, rejected.Error(), http.StatusBadGateway)
	default:
		errorResponse(w, err.Error(), http.StatusInternalServerError)
	}
}

// === System Endpoints ===

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	llmAvailable := h.llm.IsAvailable(ctx)

	jsonResponse(w, map[string]interface{}{
		"status":        "ok",
		"llm_available": llmAvailable,
		"llm_provider":  h.llm.GetName(),
		"timestamp":     time.Now(),
	}, http.StatusOK)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hasPlan := false
	if _, err := h.store.LoadPlan(); err == nil {
		hasPlan = true
	}
	llmAvailable := h.llm.IsAvailable(ctx)

	jsonResponse(w, map[string]interface{}{
		"has_plan":         hasPlan,
		"plan_in_progress": generationRunning(),
		"llm_available":    llmAvailable,
		"llm_provider":     h.llm.GetName(),
		"current_model":    h.llm.GetCurrentModel(),
		"academic_api":     h.config.AcademicAPIBaseURL,
		"plan_duration":    h.config.PlanDurationDays,
	}, http.StatusOK)
}

func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	modelList, err := h.llm.GetModels(ctx)
	if err != nil {
		errorResponse(w, fmt.Sprintf("Konnte Modelle nicht abrufen: %v", err), http.StatusServiceUnavailable)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"models":        modelList,
		"current_model": h.llm.GetCurrentModel(),
	}, http.StatusOK)
}

// SetModel ändert das aktive LLM-Modell
func (h *Handler) SetModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	if req.Model == "" {
		errorResponse(w, "Kein Modell angegeben", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	modelList, err := h.llm.GetModels(ctx)
	if err != nil {
		errorResponse(w, "Konnte Modelle nicht abrufen", http.StatusServiceUnavailable)
		return
	}

	found := false
	for _, m := range modelList {
		if m.Name == req.Model {
			found = true
			break
		}
	}

	if !found {
		errorResponse(w, fmt.Sprintf("Modell %q nicht installiert", req.Model), http.StatusBadRequest)
		return
	}

	h.llm.SetModel(req.Model)
	log.Printf("✓ Modell gewechselt: %s", req.Model)

	jsonResponse(w, map[string]string{"current_model": req.Model}, http.StatusOK)
}

// === Lernplan Endpoints ===

// generateRequest ist der (komplett optionale) Request-Body für die
// Plan-Generierung
type generateRequest struct {
	CurrentDate      string                  `json:"current_date"`
	PlanDurationDays int                     `json:"plan_duration_days"`
	Preferences      *models.UserPreferences `json:"preferences"`
}

// generateResult ist die Antwort einer erfolgreichen Generierung: der
// angenommene Plan plus alle weichen Regelverletzungen. Verletzungen
// werden gemeldet, nie stillschweigend repariert
type generateResult struct {
	Plan        *models.StudyPlan `json:"plan"`
	Violations  []plan.Violation  `json:"violations"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
	RequestID   string            `json:"request_id"`
}

// generationMutex verhindert parallele Plan-Generierung
var generationMutex sync.Mutex
var generationInProgress bool

func generationRunning() bool {
	generationMutex.Lock()
	defer generationMutex.Unlock()
	return generationInProgress
}

// beginGeneration reserviert den einen Generierungs-Slot. false, wenn
// bereits eine Generierung läuft
func beginGeneration() bool {
	generationMutex.Lock()
	defer generationMutex.Unlock()
	if generationInProgress {
		return false
	}
	generationInProgress = true
	return true
}

func endGeneration() {
	generationMutex.Lock()
	generationInProgress = false
	generationMutex.Unlock()
}

// runGeneration führt die komplette Pipeline aus: Daten holen, Anfrage
// bauen, genau einmal generieren, validieren, speichern. progress darf
// nil sein
func (h *Handler) runGeneration(ctx context.Context, body *generateRequest, progress func(stage, message string)) (*generateResult, error) {
	report := func(stage, message string) {
		if progress != nil {
			progress(stage, message)
		}
	}

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("📋 LERNPLAN GENERIEREN - Start")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// Studiendaten vom akademischen Backend
	report("fetch", "Lade Studiendaten...")
	log.Println("📚 Lade Studiendaten vom akademischen Backend...")
	snap, err := h.academic.FetchSnapshot(ctx)
	if err != nil {
		log.Printf("❌ Backend nicht erreichbar: %v", err)
		return nil, err
	}
	log.Printf("   ✓ %d Kurse, %d Prüfungen, %d Aufgaben, %d Vorlesungen, %d Quizze",
		len(snap.Data.Courses), len(snap.Data.Exams), len(snap.Data.Tasks),
		len(snap.Data.Lectures), len(snap.Data.Quizzes))

	// Einstellungen: Request-Override vor gespeicherten Werten
	prefs := body.Preferences
	if prefs == nil {
		prefs, err = h.store.LoadPreferences()
		if err != nil {
			return nil, fmt.Errorf("Einstellungen nicht ladbar: %w", err)
		}
	}

	currentDate := body.CurrentDate
	if currentDate == "" {
		currentDate = time.Now().Format("2006-01-02")
	}
	horizon := body.PlanDurationDays
	if horizon == 0 {
		horizon = h.config.PlanDurationDays
	}

	// Plan-Anfrage bauen und prüfen
	report("build", "Baue Plan-Anfrage...")
	req, err := plan.BuildRequest(&snap.Data, prefs, currentDate, horizon)
	if err != nil {
		log.Printf("❌ Ungültige Anfrage: %v", err)
		return nil, err
	}
	req.Diagnostics = append(snap.Diagnostics, req.Diagnostics...)
	log.Printf("🧾 Anfrage %s: %d Tage ab %s", req.RequestID, req.PlanDurationDays, req.CurrentDate)

	// Genau EIN Generierungsaufruf, keine Wiederholung
	report("generate", "Generiere Plan (das kann einige Minuten dauern)...")
	cand, err := h.planner.GeneratePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	// Validieren: harte Ablehnung nur bei fehlendem Wrapper, alles
	// andere sind weiche Verletzungen im Ergebnis
	report("validate", "Validiere Plan...")
	accepted, err := plan.ValidateCandidate(cand, req)
	if err != nil {
		log.Printf("❌ Kandidat abgelehnt: %v", err)
		return nil, err
	}
	if len(accepted.Violations) > 0 {
		log.Printf("⚠️  Plan angenommen mit %d Regelverletzungen:", len(accepted.Violations))
		for _, v := range accepted.Violations {
			log.Printf("   ⚠️  %s", v.String())
			report("violation", v.String())
		}
	} else {
		log.Println("✓ Plan ohne Regelverletzungen angenommen")
	}

	// Speichern ersetzt einen vorhandenen Plan vollständig;
	// completed-Flags des alten Plans werden nicht übernommen
	report("save", "Speichere Plan...")
	if err := h.store.SavePlan(accepted.Plan); err != nil {
		return nil, fmt.Errorf("Plan speichern fehlgeschlagen: %w", err)
	}

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✅ LERNPLAN GENERIERT - %s bis %s, %d Tage",
		accepted.Plan.StartDate, accepted.Plan.EndDate, len(accepted.Plan.DailyPlans))
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return &generateResult{
		Plan:        accepted.Plan,
		Violations:  accepted.Violations,
		Diagnostics: req.Diagnostics,
		RequestID:   req.RequestID,
	}, nil
}

// GeneratePlan erstellt einen neuen Lernplan. Es läuft höchstens eine
// Generierung gleichzeitig; parallele Aufrufe bekommen 429
func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	if !beginGeneration() {
		log.Println("⚠️ Plan-Generierung läuft bereits, ignoriere Anfrage")
		errorResponse(w, "Plan wird bereits generiert, bitte warten", http.StatusTooManyRequests)
		return
	}
	defer endGeneration()

	var body generateRequest
	if r.Body != nil {
		// Leerer Body ist erlaubt: alle Felder haben Defaults
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
			return
		}
	}

	result, err := h.runGeneration(r.Context(), &body, nil)
	if err != nil {
		planErrorResponse(w, err)
		return
	}

	jsonResponse(w, result, http.StatusCreated)
}

// GeneratePlanStream führt die Generierung über WebSocket aus und
// meldet den Fortschritt der einzelnen Phasen
func (h *Handler) GeneratePlanStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var body generateRequest
	if err := conn.ReadJSON(&body); err != nil {
		return
	}

	if !beginGeneration() {
		conn.WriteJSON(map[string]string{"error": "Plan wird bereits generiert, bitte warten"})
		return
	}
	defer endGeneration()

	progress := func(stage, message string) {
		conn.WriteJSON(map[string]interface{}{
			"stage":   stage,
			"message": message,
		})
	}

	result, err := h.runGeneration(r.Context(), &body, progress)
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	conn.WriteJSON(map[string]interface{}{
		"stage":  "done",
		"result": result,
		"done":   true,
	})
}

// GetPlan liefert den gespeicherten Plan
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.LoadPlan()
	if err == storage.ErrNotFound {
		errorResponse(w, "Kein Plan gespeichert", http.StatusNotFound)
		return
	}
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, p, http.StatusOK)
}

// DeletePlan löscht den gespeicherten Plan
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearPlan(); err != nil {
		errorResponse(w, "Fehler beim Löschen", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]string{"message": "Plan gelöscht"}, http.StatusOK)
}

// UpdateActivity setzt das completed-Flag einer Aktivität
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	updated, err := h.store.SetActivityCompleted(id, req.Completed)
	if err == storage.ErrNotFound {
		errorResponse(w, "Aktivität nicht gefunden", http.StatusNotFound)
		return
	}
	if err != nil {
		errorResponse(w, "Fehler beim Speichern", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, updated, http.StatusOK)
}

// ExportPlanICS liefert den gespeicherten Plan als iCalendar-Datei.
// Aktivitäten ohne parsbares Datum oder Zeitfenster werden übersprungen
func (h *Handler) ExportPlanICS(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.LoadPlan()
	if err == storage.ErrNotFound {
		errorResponse(w, "Kein Plan gespeichert", http.StatusNotFound)
		return
	}
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//studyplanner//DE")

	now := time.Now()
	skipped := 0
	for _, day := range p.DailyPlans {
		date, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			skipped += len(day.Activities)
			continue
		}
		for _, act := range day.Activities {
			startMin, startOK := plan.ParseActivityTime(act.StartTime)
			endMin, endOK := plan.ParseActivityTime(act.EndTime)
			if !startOK || !endOK {
				skipped++
				continue
			}

			uid := act.ID
			if uid == "" {
				uid = uuid.NewString()
			}
			event := cal.AddEvent(uid + "@studyplanner")
			event.SetDtStampTime(now)
			event.SetStartAt(date.Add(time.Duration(startMin) * time.Minute))
			event.SetEndAt(date.Add(time.Duration(endMin) * time.Minute))
			event.SetSummary(act.Description)
			event.SetDescription(fmt.Sprintf("Typ: %s", act.Type))
		}
	}
	if skipped > 0 {
		log.Printf("⚠️  iCal-Export: %d Aktivitäten ohne gültige Zeiten übersprungen", skipped)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lernplan.ics"`)
	w.WriteHeader(http.StatusOK)
	cal.SerializeTo(w)
}

// === Einstellungen ===

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.store.LoadPreferences()
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, prefs, http.StatusOK)
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs models.UserPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	if err := plan.ValidatePreferences(&prefs); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.SavePreferences(&prefs); err != nil {
		errorResponse(w, "Fehler beim Speichern", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, prefs, http.StatusOK)
}

// === Whitelist ===

func (h *Handler) GetWhitelist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListWhitelist()
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{"whitelist": entries}, http.StatusOK)
}

func (h *Handler) AddWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		errorResponse(w, "Keine URL angegeben", http.StatusBadRequest)
		return
	}

	entry := &models.WhitelistEntry{
		ID:        uuid.NewString(),
		URL:       req.URL,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.AddWhitelistEntry(entry); err != nil {
		errorResponse(w, "Fehler beim Speichern", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, entry, http.StatusCreated)
}

func (h *Handler) DeleteWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	err := h.store.DeleteWhitelistEntry(id)
	if err == storage.ErrNotFound {
		errorResponse(w, "Eintrag nicht gefunden", http.StatusNotFound)
		return
	}
	if err != nil {
		errorResponse(w, "Fehler beim Löschen", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]string{"message": "Eintrag gelöscht"}, http.StatusOK)
}

// === Pomodoro-Sitzungen ===

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{"sessions": sessions}, http.StatusOK)
}

func (h *Handler) RecordSession(w http.ResponseWriter, r *http.Request) {
	var session models.PomodoroSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	if session.Minutes <= 0 {
		errorResponse(w, "Sitzungsdauer muss positiv sein", http.StatusBadRequest)
		return
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC().Add(-time.Duration(session.Minutes) * time.Minute)
	}
	if session.EndedAt.IsZero() {
		session.EndedAt = time.Now().UTC()
	}

	if err := h.store.AppendSession(&session); err != nil {
		errorResponse(w, "Fehler beim Speichern", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, session, http.StatusCreated)
}
