// Package storage persistiert den (einen) aktiven Lernplan, die
// Nutzereinstellungen, die URL-Whitelist und abgeschlossene
// Pomodoro-Sitzungen
package storage

import (
	"errors"

	"studyplanner/internal/models"
)

// ErrNotFound wird gemeldet, wenn der angefragte Datensatz nicht
// existiert (kein gespeicherter Plan, unbekannte Aktivitäts- oder
// Whitelist-ID)
var ErrNotFound = errors.New("Datensatz nicht gefunden")

// Storage ist die Persistenz-Schnittstelle des Servers
type Storage interface {
	// Plan: es gibt höchstens einen gespeicherten Plan. SavePlan
	// ersetzt einen vorhandenen Plan vollständig
	LoadPlan() (*models.StudyPlan, error)
	SavePlan(plan *models.StudyPlan) error
	ClearPlan() error

	// SetActivityCompleted setzt das completed-Flag der Aktivität mit
	// der gegebenen ID im gespeicherten Plan. ErrNotFound, wenn kein
	// Plan existiert oder keine Aktivität die ID trägt
	SetActivityCompleted(activityID string, completed bool) (*models.StudyPlan, error)

	// Einstellungen: LoadPreferences liefert Default-Werte, solange
	// noch nichts gespeichert wurde
	LoadPreferences() (*models.UserPreferences, error)
	SavePreferences(prefs *models.UserPreferences) error

	// URL-Whitelist für den Fokus-Modus
	AddWhitelistEntry(entry *models.WhitelistEntry) error
	ListWhitelist() ([]models.WhitelistEntry, error)
	DeleteWhitelistEntry(id string) error

	// Pomodoro-Sitzungshistorie (append-only)
	AppendSession(session *models.PomodoroSession) error
	ListSessions() ([]models.PomodoroSession, error)

	Close() error
}
