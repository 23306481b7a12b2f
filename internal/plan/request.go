package plan

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"studyplanner/internal/models"
)

// DefaultPlanDurationDays ist der Standard-Horizont (eine Woche)
const DefaultPlanDurationDays = 7

// Request ist die unveränderliche, validierte Eingabe eines
// Generierungsversuchs
type Request struct {
	RequestID        string                 `json:"requestId"`
	UserPreferences  models.UserPreferences `json:"userPreferences"`
	Courses          []models.Course        `json:"courses"`
	Exams            []models.Exam          `json:"exams"`
	Tasks            []models.Task          `json:"tasks"`
	Lectures         []models.Lecture       `json:"lectures"`
	Quizzes          []models.Quiz          `json:"quizzes"`
	CurrentDate      string                 `json:"currentDate"` // YYYY-MM-DD, Anker
	PlanDurationDays int                    `json:"planDurationDays"`

	// Diagnostics sammelt Warnungen zu ausgeschlossenen Datensätzen.
	// Sie blockieren die Anfrage nicht
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// BuildRequest baut aus Studiendaten, Einstellungen, Ankerdatum und
// Horizont eine validierte Anfrage. Datensätze, die ihr Teilschema
// verletzen, werden mit Warnung ausgeschlossen statt still verworfen.
// Reine Funktion, kein I/O
func BuildRequest(snap *models.Snapshot, prefs *models.UserPreferences, currentDate string, horizonDays int) (*Request, error) {
	if horizonDays == 0 {
		horizonDays = DefaultPlanDurationDays
	}
	if prefs == nil {
		prefs = models.DefaultPreferences()
	}
	if snap == nil {
		snap = &models.Snapshot{}
	}

	req := &Request{
		RequestID:        uuid.NewString(),
		UserPreferences:  *prefs,
		CurrentDate:      currentDate,
		PlanDurationDays: horizonDays,
	}

	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		req.Diagnostics = append(req.Diagnostics, msg)
		log.Printf("   ⚠️  %s", msg)
	}

	for i, c := range snap.Courses {
		if c.CourseID == "" {
			warn("Kurs %d ohne courseId ausgeschlossen (%q)", i, c.Title)
			continue
		}
		req.Courses = append(req.Courses, c)
	}
	for i, e := range snap.Exams {
		switch {
		case e.ExamID == "":
			warn("Prüfung %d ohne examId ausgeschlossen (%q)", i, e.ExamTitle)
		case e.StartsAt == "":
			warn("Prüfung %q ohne startsAt ausgeschlossen", e.ExamTitle)
		default:
			req.Exams = append(req.Exams, e)
		}
	}
	for i, t := range snap.Tasks {
		switch {
		case t.ID == "":
			warn("Aufgabe %d ohne id ausgeschlossen (%q)", i, t.Title)
		case t.DueDate == "":
			warn("Aufgabe %q ohne dueDate ausgeschlossen", t.Title)
		default:
			req.Tasks = append(req.Tasks, t)
		}
	}
	for i, l := range snap.Lectures {
		switch {
		case l.LectureID == "":
			warn("Vorlesung %d ohne lectureId ausgeschlossen (%q)", i, l.Title)
		case l.StartsAt == "":
			warn("Vorlesung %q ohne startsAt ausgeschlossen", l.Title)
		default:
			req.Lectures = append(req.Lectures, l)
		}
	}
	for i, q := range snap.Quizzes {
		if q.QuizID == "" {
			warn("Quiz %d ohne quizId ausgeschlossen (%q)", i, q.Title)
			continue
		}
		req.Quizzes = append(req.Quizzes, q)
	}

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateRequest ist das reine Schema-Prädikat für eine Plan-Anfrage.
// Keine Seiteneffekte
func ValidateRequest(req *Request) error {
	if req == nil {
		return &MalformedRequestError{Field: "request", Reason: "Anfrage ist leer"}
	}
	if !ValidDateString(req.CurrentDate) {
		return &MalformedRequestError{
			Field:  "currentDate",
			Reason: fmt.Sprintf("%q ist kein gültiges Datum (erwartet YYYY-MM-DD)", req.CurrentDate),
		}
	}
	if req.PlanDurationDays < 1 {
		return &MalformedRequestError{
			Field:  "planDurationDays",
			Reason: fmt.Sprintf("muss ≥ 1 sein, ist %d", req.PlanDurationDays),
		}
	}

	if err := ValidatePreferences(&req.UserPreferences); err != nil {
		return err
	}

	// Die Datensammlungen wurden vom Builder bereits gefiltert; hier nur
	// noch die Pflicht-IDs als Invariante prüfen
	for _, c := range req.Courses {
		if c.CourseID == "" {
			return &MalformedRequestError{Field: "courses.courseId", Reason: "Kurs ohne ID"}
		}
	}
	for _, e := range req.Exams {
		if e.ExamID == "" {
			return &MalformedRequestError{Field: "exams.examId", Reason: "Prüfung ohne ID"}
		}
	}
	for _, t := range req.Tasks {
		if t.ID == "" {
			return &MalformedRequestError{Field: "tasks.id", Reason: "Aufgabe ohne ID"}
		}
	}
	for _, l := range req.Lectures {
		if l.LectureID == "" {
			return &MalformedRequestError{Field: "lectures.lectureId", Reason: "Vorlesung ohne ID"}
		}
	}
	for _, q := range req.Quizzes {
		if q.QuizID == "" {
			return &MalformedRequestError{Field: "quizzes.quizId", Reason: "Quiz ohne ID"}
		}
	}

	return nil
}

// ValidatePreferences prüft die Nutzereinstellungen gegen die
// zulässigen Wertemengen
func ValidatePreferences(p *models.UserPreferences) error {
	if p.DefaultSessionLength <= 0 {
		return &MalformedRequestError{Field: "userPreferences.defaultSessionLength", Reason: "muss > 0 Minuten sein"}
	}
	if p.DefaultBreakCadence <= 0 {
		return &MalformedRequestError{Field: "userPreferences.defaultBreakCadence", Reason: "muss > 0 Minuten sein"}
	}
	if p.NotificationLeadTimes.Task < 0 || p.NotificationLeadTimes.Session < 0 || p.NotificationLeadTimes.Exam < 0 {
		return &MalformedRequestError{Field: "userPreferences.notificationLeadTimes", Reason: "Vorlaufzeiten dürfen nicht negativ sein"}
	}
	for _, st := range p.PreferredStudyTimes {
		if !models.StudyTimeOptions[st] {
			return &MalformedRequestError{
				Field:  "userPreferences.preferredStudyTimes",
				Reason: fmt.Sprintf("unbekanntes Lernzeit-Fenster %q", st),
			}
		}
	}
	for _, tech := range p.StudyTechniques {
		if !models.StudyTechniqueOptions[tech] {
			return &MalformedRequestError{
				Field:  "userPreferences.studyTechniques",
				Reason: fmt.Sprintf("unbekannte Lerntechnik %q", tech),
			}
		}
	}
	return nil
}
