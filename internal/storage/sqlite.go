package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"studyplanner/internal/models"
)

const (
	slotPlan        = "study_plan"
	slotPreferences = "user_preferences"
)

// SQLiteStorage implementiert Storage auf einer SQLite-Datei. Plan und
// Einstellungen liegen als JSON-Dokumente in einer Slot-Tabelle,
// Whitelist und Sitzungen als normale Zeilen
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage öffnet (oder erstellt) die Datenbank und legt das
// Schema an
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("Datenbank öffnen fehlgeschlagen: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Schema-Initialisierung fehlgeschlagen: %w", err)
	}

	log.Printf("✓ SQLite-Datenbank bereit: %s", dbPath)
	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		slot TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS whitelist (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pomodoro_sessions (
		id TEXT PRIMARY KEY,
		activity_id TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		minutes INTEGER NOT NULL,
		was_aborted INTEGER NOT NULL DEFAULT 0,
		distraction INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- Slot-Dokumente ---

func (s *SQLiteStorage) saveDocument(slot string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("Serialisierung fehlgeschlagen: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO documents (slot, payload, saved_at) VALUES (?, ?, ?)`,
		slot, string(payload), time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStorage) loadDocument(slot string, dest interface{}) error {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM documents WHERE slot = ?`, slot).Scan(&payload)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), dest)
}

// LoadPlan lädt den gespeicherten Plan. ErrNotFound, wenn keiner
// existiert
func (s *SQLiteStorage) LoadPlan() (*models.StudyPlan, error) {
	var plan models.StudyPlan
	if err := s.loadDocument(slotPlan, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// SavePlan speichert den Plan und ersetzt dabei jeden vorhandenen
func (s *SQLiteStorage) SavePlan(plan *models.StudyPlan) error {
	return s.saveDocument(slotPlan, plan)
}

// ClearPlan löscht den gespeicherten Plan. Kein Fehler, wenn keiner
// existiert
func (s *SQLiteStorage) ClearPlan() error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE slot = ?`, slotPlan)
	return err
}

// SetActivityCompleted lädt den Plan, setzt das Flag der Aktivität und
// speichert den Plan zurück. Der Aufruf ist idempotent: gleiches Flag
// zweimal setzen ändert nichts am Ergebnis
func (s *SQLiteStorage) SetActivityCompleted(activityID string, completed bool) (*models.StudyPlan, error) {
	plan, err := s.LoadPlan()
	if err != nil {
		return nil, err
	}

	act := plan.FindActivity(activityID)
	if act == nil {
		return nil, ErrNotFound
	}
	act.Completed = completed

	if err := s.SavePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// LoadPreferences lädt die Einstellungen; solange nichts gespeichert
// wurde, die Default-Werte
func (s *SQLiteStorage) LoadPreferences() (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	err := s.loadDocument(slotPreferences, &prefs)
	if err == ErrNotFound {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// SavePreferences speichert die Einstellungen
func (s *SQLiteStorage) SavePreferences(prefs *models.UserPreferences) error {
	return s.saveDocument(slotPreferences, prefs)
}

// --- Whitelist ---

func (s *SQLiteStorage) AddWhitelistEntry(entry *models.WhitelistEntry) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO whitelist (id, url, created_at) VALUES (?, ?, ?)`,
		entry.ID, entry.URL, entry.CreatedAt,
	)
	return err
}

func (s *SQLiteStorage) ListWhitelist() ([]models.WhitelistEntry, error) {
	rows, err := s.db.Query(`SELECT id, url, created_at FROM whitelist ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.WhitelistEntry{}
	for rows.Next() {
		var e models.WhitelistEntry
		if err := rows.Scan(&e.ID, &e.URL, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorage) DeleteWhitelistEntry(id string) error {
	res, err := s.db.Exec(`DELETE FROM whitelist WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Pomodoro-Sitzungen ---

func (s *SQLiteStorage) AppendSession(session *models.PomodoroSession) error {
	_, err := s.db.Exec(
		`INSERT INTO pomodoro_sessions (id, activity_id, started_at, ended_at, minutes, was_aborted, distraction)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.ActivityID, session.StartedAt, session.EndedAt,
		session.Minutes, session.WasAborted, session.Distraction,
	)
	return err
}

func (s *SQLiteStorage) ListSessions() ([]models.PomodoroSession, error) {
	rows, err := s.db.Query(
		`SELECT id, activity_id, started_at, ended_at, minutes, was_aborted, distraction
		 FROM pomodoro_sessions ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.PomodoroSession{}
	for rows.Next() {
		var sess models.PomodoroSession
		if err := rows.Scan(&sess.ID, &sess.ActivityID, &sess.StartedAt, &sess.EndedAt,
			&sess.Minutes, &sess.WasAborted, &sess.Distraction); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Close schließt die Datenbankverbindung
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
