package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter erstellt den HTTP-Router mit allen Endpoints
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	// API-Version
	api := r.PathPrefix("/api/v1").Subrouter()

	// System
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")
	api.HandleFunc("/status", h.GetStatus).Methods("GET")
	api.HandleFunc("/models", h.GetModels).Methods("GET")
	api.HandleFunc("/models", h.SetModel).Methods("POST")

	// Lernplan
	api.HandleFunc("/plan/generate", h.GeneratePlan).Methods("POST")
	api.HandleFunc("/plan/generate/stream", h.GeneratePlanStream).Methods("GET")
	api.HandleFunc("/plan/export.ics", h.ExportPlanICS).Methods("GET")
	api.HandleFunc("/plan", h.GetPlan).Methods("GET")
	api.HandleFunc("/plan", h.DeletePlan).Methods("DELETE")
	api.HandleFunc("/plan/activities/{id}", h.UpdateActivity).Methods("PUT")

	// Einstellungen
	api.HandleFunc("/preferences", h.GetPreferences).Methods("GET")
	api.HandleFunc("/preferences", h.UpdatePreferences).Methods("PUT")

	// Fokus-Modus
	api.HandleFunc("/whitelist", h.GetWhitelist).Methods("GET")
	api.HandleFunc("/whitelist", h.AddWhitelistEntry).Methods("POST")
	api.HandleFunc("/whitelist/{id}", h.DeleteWhitelistEntry).Methods("DELETE")

	// Pomodoro-Sitzungen
	api.HandleFunc("/sessions", h.GetSessions).Methods("GET")
	api.HandleFunc("/sessions", h.RecordSession).Methods("POST")

	// Statische Dateien (Frontend)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/static")))

	// CORS für lokale Entwicklung
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
