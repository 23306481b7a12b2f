package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"studyplanner/internal/models"
	"studyplanner/internal/plan"
)

// GenerationError beschreibt einen fehlgeschlagenen Generierungsaufruf
// (Netzwerk, Timeout, leere oder unparsbare Ausgabe). Wird von dieser
// Komponente nie automatisch wiederholt und nie durch einen
// Standard-Plan ersetzt
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Plan-Generierung fehlgeschlagen: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("Plan-Generierung fehlgeschlagen: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Planner kapselt den einen Generierungsaufruf pro Plan-Anfrage:
// deterministischer Prompt rein, ungeprüfter Kandidat raus. Inhaltliche
// Reparatur findet hier nicht statt
type Planner struct {
	provider Provider
}

// NewPlanner erstellt einen neuen Planner
func NewPlanner(provider Provider) *Planner {
	return &Planner{provider: provider}
}

// BuildPrompt baut die vollständig spezifizierte Instruktion. Sie muss
// jede harte Bedingung enthalten, die der Validator später prüft:
// Root-Schlüssel, exakte Tageszahl, Pflichtfelder pro Aktivität und
// das 12-Stunden-Zeitformat. Reine Funktion der Anfrage
func (pl *Planner) BuildPrompt(req *plan.Request) string {
	endDate := plan.ExpectedEndDate(req.CurrentDate, req.PlanDurationDays)

	var b strings.Builder
	fmt.Fprintf(&b, `Du bist ein KI-Lernplaner.

Deine EINZIGE Aufgabe ist es, EIN JSON-Objekt mit einem Lernplan auszugeben.
Das Objekt MUSS exakt diese Top-Level-Schlüssel haben: "startDate", "endDate", "dailyPlans".
Ein optionales "overallSummary" auf Root-Ebene ist erlaubt, sonst nichts.
Gib NIEMALS nur das dailyPlans-Array ohne das umschließende Objekt aus.

Pflicht-Struktur der Wurzel:
{
  "startDate": "%s",
  "endDate": "%s",
  "dailyPlans": [ /* genau %d StudyPlanDay-Objekte */ ],
  "overallSummary": "optionale Zusammenfassung"
}

Der Plan MUSS genau %d Tage abdecken, beginnend am %s.
Das Array "dailyPlans" MUSS genau %d vollständige Tagesobjekte enthalten,
eines pro aufeinanderfolgendem Kalendertag. Keine leeren {} und keine
unvollständigen Tagesobjekte.

Jedes Tagesobjekt MUSS enthalten:
- "date": Kalenderdatum (YYYY-MM-DD, fortlaufend ab startDate)
- "dayOfWeek": englischer Wochentagsname (z.B. "Monday"), passend zum Datum
- "activities": Array von Aktivitäten (darf leer sein: Ruhetag)
- "summary": optionaler Tagesfokus

Jede Aktivität MUSS ALLE folgenden Felder mit gültigen Werten enthalten:
- "id": eine eindeutige UUID (von dir generiert)
- "startTime": Beginn im 12-Stunden-Format HH:MM AM/PM, z.B. "09:00 AM"
- "endTime": Ende im selben Format, strikt NACH startTime am selben Tag
- "description": klare, nicht-leere Beschreibung
- "type": genau einer von: study, break, task_work, exam_prep, lecture_review, quiz_prep, personal, lecture
- "relatedItemId" (optional): ID der zugehörigen Aufgabe/Prüfung/Vorlesung/Quiz aus den Eingabedaten
- "courseId" (optional): ID des zugehörigen Kurses aus den Eingabedaten
- "completed": false

Eingabedaten:
- Einstellungen: %s
- Kurse: %s
- Prüfungen: %s
- Aufgaben: %s
- Vorlesungen: %s
- Quizze: %s

Regeln für den Inhalt:
1. startDate und endDate exakt wie oben angegeben setzen.
2. Priorität bei gleichen Fälligkeiten: erst Prüfungen, dann Quizze, dann Aufgaben nach ihrer priority (high vor medium vor low).
3. Intensive Blöcke in die bevorzugten Lernzeiten (preferredStudyTimes) legen.
4. Wenn "pomodoro" zu den studyTechniques gehört: lange Blöcke in Einheiten von defaultSessionLength Minuten teilen, gefolgt von Pausen von defaultBreakCadence Minuten ("Pomodoro Session: ...", "Short break").
5. Vorlesungen aus der Eingabe als Aktivitäten vom Typ "lecture" übernehmen (Datum aus startsAt extrahieren, YYYY-MM-DD-Anteil); keine kollidierenden Aktivitäten planen.
6. Zeit für exam_prep (startsAt der Prüfungen), task_work (dueDate), quiz_prep (creationDate) und lecture_review einplanen; Datumsanteile aus ISO-Datetimes extrahieren.
7. Ausreichend Pausen; mindestens eine längere Pause bei mehrstündigen Lernphasen.
8. Volle Tage im summary vermerken, leichte Tage für Wiederholung oder Erholung vorschlagen.

LETZTE KONTROLLE: Die gesamte Ausgabe ist EIN JSON-Objekt mit "startDate",
"endDate" und "dailyPlans" auf oberster Ebene, und "dailyPlans" enthält
genau %d vollständige Tagesobjekte.`,
		req.CurrentDate, endDate, req.PlanDurationDays,
		req.PlanDurationDays, req.CurrentDate, req.PlanDurationDays,
		mustJSON(req.UserPreferences),
		mustJSON(req.Courses),
		mustJSON(req.Exams),
		mustJSON(req.Tasks),
		mustJSON(req.Lectures),
		mustJSON(req.Quizzes),
		req.PlanDurationDays)

	return b.String()
}

// GeneratePlan stellt genau eine Anfrage an den Generator und parst die
// Antwort in einen ungeprüften Kandidaten. Annahme/Ablehnung entscheidet
// der Validator, nicht diese Funktion
func (pl *Planner) GeneratePlan(ctx context.Context, req *plan.Request) (*plan.Candidate, error) {
	prompt := pl.BuildPrompt(req)

	log.Printf("   [Planner] Anfrage %s: %d Tage ab %s", req.RequestID, req.PlanDurationDays, req.CurrentDate)
	log.Printf("   [Planner] Prompt-Länge: %d Zeichen", len(prompt))

	start := time.Now()
	resp, err := pl.provider.Generate(ctx, prompt, &GenerateOptions{
		Temperature: 0.3,
		Format:      "json",
		System:      "Du bist ein Lernplaner. Antworte ausschließlich mit dem angeforderten JSON-Objekt.",
	})
	if err != nil {
		log.Printf("   [Planner] ❌ Generator-Fehler nach %v: %v", time.Since(start), err)
		return nil, &GenerationError{Reason: "Generator nicht erfolgreich", Err: err}
	}

	log.Printf("   [Planner] ✓ Antwort nach %v (%d Zeichen)", time.Since(start), len(resp.Content))

	cand, err := ParseCandidate(resp.Content)
	if err != nil {
		log.Printf("   [Planner] ❌ Parse-Fehler: %v", err)
		log.Printf("   [Planner] Rohe Antwort (Anfang): %s", head(resp.Content, 500))
		return nil, err
	}
	return cand, nil
}

// ParseCandidate extrahiert das äußerste JSON-Dokument aus dem
// Antworttext und dekodiert es. Ein nacktes Array von Tagesobjekten wird
// als eigener Fehlermodus markiert statt verworfen, damit der Validator
// "Wrapper fehlt" getrennt von "unparsbar" melden kann
func ParseCandidate(content string) (*plan.Candidate, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, &GenerationError{Reason: "leere Antwort vom Generator"}
	}

	objStart := strings.Index(trimmed, "{")
	arrStart := strings.Index(trimmed, "[")

	// Nacktes Tages-Array: '[' kommt vor jedem '{'
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		arrEnd := strings.LastIndex(trimmed, "]")
		if arrEnd <= arrStart {
			return nil, &GenerationError{Reason: "kein vollständiges JSON in der Antwort"}
		}
		var days []models.StudyPlanDay
		if err := json.Unmarshal([]byte(trimmed[arrStart:arrEnd+1]), &days); err != nil {
			return nil, &GenerationError{Reason: "Antwort ist kein gültiges JSON", Err: err}
		}
		return &plan.Candidate{
			Plan:          models.StudyPlan{DailyPlans: days},
			IsBareDayList: true,
		}, nil
	}

	if objStart == -1 {
		return nil, &GenerationError{Reason: "kein JSON in der Antwort"}
	}
	objEnd := strings.LastIndex(trimmed, "}")
	if objEnd <= objStart {
		return nil, &GenerationError{Reason: "kein vollständiges JSON in der Antwort"}
	}

	var p models.StudyPlan
	if err := json.Unmarshal([]byte(trimmed[objStart:objEnd+1]), &p); err != nil {
		return nil, &GenerationError{Reason: "Antwort ist kein gültiges JSON", Err: err}
	}

	return &plan.Candidate{Plan: p}, nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
