// Package academic holt Kurs-, Prüfungs-, Aufgaben-, Vorlesungs- und
// Quiz-Daten vom akademischen Backend. Die Antwortformate der Endpunkte
// sind uneinheitlich (nacktes Array, benannter Schlüssel, data/results),
// daher wird hier tolerant entpackt
package academic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"studyplanner/internal/models"
)

// UnavailableError wird gemeldet, wenn das akademische Backend für eine
// (oder alle) Kategorien nicht erreichbar war. Einzelne fehlende
// Kategorien degradieren zu leeren Listen; erst wenn gar nichts abrufbar
// ist, schlägt der gesamte Abruf fehl
type UnavailableError struct {
	Category string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("akademisches Backend nicht erreichbar: %v", e.Err)
	}
	return fmt.Sprintf("akademisches Backend nicht erreichbar (%s): %v", e.Category, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Client ist der HTTP-Client für das akademische Backend
type Client struct {
	baseURL    string
	userPath   string
	httpClient *http.Client
}

// NewClient erstellt einen neuen Client. userPath ist der
// benutzerspezifische Pfadanteil (z.B. "/students/42")
func NewClient(baseURL, userPath string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		userPath: userPath,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Snapshot bündelt das Ergebnis eines Abrufs: die Daten plus
// Diagnosen für Kategorien, die nicht geladen werden konnten
type Snapshot struct {
	Data        models.Snapshot
	Diagnostics []string
}

// FetchSnapshot ruft alle fünf Kategorien ab. Kategorien, die
// fehlschlagen, werden als leere Liste mit Diagnose weitergereicht.
// Schlagen ALLE Kategorien fehl, gibt es keinen Plan zu bauen und der
// Abruf meldet UnavailableError
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	failed := 0
	var firstErr error

	if courses, err := c.FetchCourses(ctx); err != nil {
		snap.Diagnostics = append(snap.Diagnostics, fmt.Sprintf("Kurse nicht ladbar: %v", err))
		failed++
		firstErr = err
	} else {
		snap.Data.Courses = courses
	}

	if exams, err := c.FetchExams(ctx); err != nil {
		snap.Diagnostics = append(snap.Diagnostics, fmt.Sprintf("Prüfungen nicht ladbar: %v", err))
		failed++
		if firstErr == nil {
			firstErr = err
		}
	} else {
		snap.Data.Exams = exams
	}

	if tasks, err := c.FetchTasks(ctx); err != nil {
		snap.Diagnostics = append(snap.Diagnostics, fmt.Sprintf("Aufgaben nicht ladbar: %v", err))
		failed++
		if firstErr == nil {
			firstErr = err
		}
	} else {
		snap.Data.Tasks = tasks
	}

	if lectures, err := c.FetchLectures(ctx); err != nil {
		snap.Diagnostics = append(snap.Diagnostics, fmt.Sprintf("Vorlesungen nicht ladbar: %v", err))
		failed++
		if firstErr == nil {
			firstErr = err
		}
	} else {
		snap.Data.Lectures = lectures
	}

	if quizzes, err := c.FetchQuizzes(ctx); err != nil {
		snap.Diagnostics = append(snap.Diagnostics, fmt.Sprintf("Quizze nicht ladbar: %v", err))
		failed++
		if firstErr == nil {
			firstErr = err
		}
	} else {
		snap.Data.Quizzes = quizzes
	}

	if failed == 5 {
		return nil, &UnavailableError{Err: firstErr}
	}
	for _, d := range snap.Diagnostics {
		log.Printf("   ⚠️  %s", d)
	}
	return snap, nil
}

// FetchCourses lädt die Kursliste
func (c *Client) FetchCourses(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	if err := c.fetchList(ctx, c.userPath+"/courses", "courses", &out); err != nil {
		return nil, &UnavailableError{Category: "courses", Err: err}
	}
	return out, nil
}

// FetchExams lädt die Prüfungsliste
func (c *Client) FetchExams(ctx context.Context) ([]models.Exam, error) {
	var out []models.Exam
	if err := c.fetchList(ctx, c.userPath+"/exams", "exams", &out); err != nil {
		return nil, &UnavailableError{Category: "exams", Err: err}
	}
	return out, nil
}

// FetchTasks lädt die Aufgabenliste
func (c *Client) FetchTasks(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	if err := c.fetchList(ctx, c.userPath+"/tasks", "tasks", &out); err != nil {
		return nil, &UnavailableError{Category: "tasks", Err: err}
	}
	return out, nil
}

// FetchLectures lädt die Vorlesungsliste
func (c *Client) FetchLectures(ctx context.Context) ([]models.Lecture, error) {
	var out []models.Lecture
	if err := c.fetchList(ctx, c.userPath+"/lectures", "lectures", &out); err != nil {
		return nil, &UnavailableError{Category: "lectures", Err: err}
	}
	return out, nil
}

// FetchQuizzes lädt die Quizliste
func (c *Client) FetchQuizzes(ctx context.Context) ([]models.Quiz, error) {
	var out []models.Quiz
	if err := c.fetchList(ctx, c.userPath+"/quizzes", "quizzes", &out); err != nil {
		return nil, &UnavailableError{Category: "quizzes", Err: err}
	}
	return out, nil
}

// fetchList macht den GET-Aufruf und entpackt die Liste aus einem der
// bekannten Antwortformate in dest (Pointer auf Slice)
func (c *Client) fetchList(ctx context.Context, path, namedKey string, dest interface{}) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d von %s: %s", resp.StatusCode, url, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return unwrapList(body, namedKey, dest)
}

// unwrapList akzeptiert drei Formen: das nackte Array, ein Objekt mit
// dem kategorie-spezifischen Schlüssel (z.B. {"courses": [...]}) und
// ein Objekt mit generischem "data"- oder "results"-Schlüssel
func unwrapList(body []byte, namedKey string, dest interface{}) error {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Errorf("leere Antwort")
	}

	if trimmed[0] == '[' {
		return json.Unmarshal([]byte(trimmed), dest)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return fmt.Errorf("Antwort weder Array noch Objekt: %w", err)
	}

	for _, key := range []string{namedKey, "data", "results"} {
		if raw, ok := envelope[key]; ok {
			inner := strings.TrimSpace(string(raw))
			if inner == "null" {
				return nil
			}
			return json.Unmarshal(raw, dest)
		}
	}
	return fmt.Errorf("kein Listen-Schlüssel (%q, data, results) in der Antwort", namedKey)
}
