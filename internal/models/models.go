package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FlexID akzeptiert String- oder Zahl-IDs aus der Studiendaten-API
// und normalisiert sie auf einen String
type FlexID string

// UnmarshalJSON akzeptiert "42" und 42 als gleiche ID
func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	return fmt.Errorf("id ist weder String noch Zahl: %s", string(data))
}

func (f FlexID) String() string { return string(f) }

// FlexIDFromInt erzeugt eine FlexID aus einer numerischen ID
func FlexIDFromInt(n int64) FlexID {
	return FlexID(strconv.FormatInt(n, 10))
}

// Course repräsentiert einen Kurs aus der Studiendaten-API
type Course struct {
	CourseID FlexID `json:"courseId"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Semester string `json:"semester"`
	Schedule string `json:"schedule"` // z.B. "MWF 9:00 AM - 9:50 AM"
}

// Exam repräsentiert eine anstehende Prüfung
type Exam struct {
	ExamID         FlexID  `json:"examId"`
	ExamTitle      string  `json:"examTitle"`
	CourseID       FlexID  `json:"courseId"`
	Duration       float64 `json:"duration"` // Minuten
	StartsAt       string  `json:"startsAt"` // ISO-Datetime
	EndsAt         string  `json:"endsAt"`
	Language       string  `json:"language"`
	TotalMark      float64 `json:"totalMark"`
	GeneratedAt    string  `json:"generatedAt,omitempty"`
	TotalQuestions int     `json:"totalQuestions,omitempty"`
	FileName       string  `json:"fileName,omitempty"`
}

// Lecture repräsentiert eine geplante Vorlesung
type Lecture struct {
	LectureID FlexID `json:"lectureId"`
	Title     string `json:"title"`
	CourseID  FlexID `json:"courseId"`
	StartsAt  string `json:"startsAt"` // ISO-Datetime
	EndsAt    string `json:"endsAt"`
	IsDone    bool   `json:"isDone"`
	Hierarchy int    `json:"hierarchy,omitempty"`
}

// Quiz repräsentiert ein anstehendes Quiz
type Quiz struct {
	QuizID       FlexID  `json:"quizId"`
	Title        string  `json:"title"`
	CourseID     FlexID  `json:"courseId"`
	LectureID    FlexID  `json:"lectureId"`
	TotalMarks   float64 `json:"totalMarks"`
	CreationDate string  `json:"creationDate"` // YYYY-MM-DD oder ISO
}

// Task-Prioritäten und -Status (geschlossene Mengen)
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusDone       = "done"
)

// Task repräsentiert eine Aufgabe/Abgabe
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CourseID    FlexID `json:"courseId,omitempty"`
	DueDate     string `json:"dueDate"` // YYYY-MM-DD
	Priority    string `json:"priority"`
	Effort      string `json:"effort,omitempty"` // z.B. "5 hours"
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// Lernzeit-Fenster und Lerntechniken (geschlossene Mengen)
const (
	StudyTimeMorning   = "morning"
	StudyTimeAfternoon = "afternoon"
	StudyTimeEvening   = "evening"

	TechniquePomodoro         = "pomodoro"
	TechniqueSpacedRepetition = "spaced_repetition"
	TechniqueFeynman          = "feynman"
)

// StudyTimeOptions sind alle gültigen Lernzeit-Fenster
var StudyTimeOptions = map[string]bool{
	StudyTimeMorning:   true,
	StudyTimeAfternoon: true,
	StudyTimeEvening:   true,
}

// StudyTechniqueOptions sind alle gültigen Lerntechniken
var StudyTechniqueOptions = map[string]bool{
	TechniquePomodoro:         true,
	TechniqueSpacedRepetition: true,
	TechniqueFeynman:          true,
}

// NotificationLeadTimes enthält Vorlaufzeiten für Erinnerungen
type NotificationLeadTimes struct {
	Task    int `json:"task"`    // Stunden
	Session int `json:"session"` // Stunden
	Exam    int `json:"exam"`    // Tage
}

// UserPreferences enthält die Lern-Einstellungen des Nutzers
type UserPreferences struct {
	PreferredStudyTimes   []string              `json:"preferredStudyTimes"`
	StudyTechniques       []string              `json:"studyTechniques"`
	DefaultSessionLength  int                   `json:"defaultSessionLength"` // Minuten
	DefaultBreakCadence   int                   `json:"defaultBreakCadence"`  // Minuten
	NotificationLeadTimes NotificationLeadTimes `json:"notificationLeadTimes"`
}

// DefaultPreferences gibt die Standard-Einstellungen zurück
func DefaultPreferences() *UserPreferences {
	return &UserPreferences{
		PreferredStudyTimes:  []string{StudyTimeMorning, StudyTimeEvening},
		StudyTechniques:      []string{TechniquePomodoro, TechniqueSpacedRepetition},
		DefaultSessionLength: 50,
		DefaultBreakCadence:  10,
		NotificationLeadTimes: NotificationLeadTimes{
			Task:    24,
			Session: 1,
			Exam:    3,
		},
	}
}

// Aktivitätstypen (geschlossene Menge)
const (
	ActivityStudy         = "study"
	ActivityBreak         = "break"
	ActivityTaskWork      = "task_work"
	ActivityExamPrep      = "exam_prep"
	ActivityLectureReview = "lecture_review"
	ActivityQuizPrep      = "quiz_prep"
	ActivityPersonal      = "personal"
	ActivityLecture       = "lecture"
)

// ActivityTypes sind alle gültigen Aktivitätstypen
var ActivityTypes = map[string]bool{
	ActivityStudy:         true,
	ActivityBreak:         true,
	ActivityTaskWork:      true,
	ActivityExamPrep:      true,
	ActivityLectureReview: true,
	ActivityQuizPrep:      true,
	ActivityPersonal:      true,
	ActivityLecture:       true,
}

// StudyActivity ist ein zeitlich begrenzter Eintrag eines Lerntages
type StudyActivity struct {
	ID            string `json:"id"`
	StartTime     string `json:"startTime"` // "HH:MM AM/PM", z.B. "09:00 AM"
	EndTime       string `json:"endTime"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	RelatedItemID FlexID `json:"relatedItemId,omitempty"`
	CourseID      FlexID `json:"courseId,omitempty"`
	Completed     bool   `json:"completed"`
}

// StudyPlanDay ist der Plan für einen einzelnen Kalendertag
type StudyPlanDay struct {
	Date       string          `json:"date"` // YYYY-MM-DD
	DayOfWeek  string          `json:"dayOfWeek"`
	Activities []StudyActivity `json:"activities"`
	Summary    string          `json:"summary,omitempty"`
}

// StudyPlan ist der generierte Lernplan als ein Dokument
type StudyPlan struct {
	StartDate      string         `json:"startDate"` // YYYY-MM-DD
	EndDate        string         `json:"endDate"`
	DailyPlans     []StudyPlanDay `json:"dailyPlans"`
	OverallSummary string         `json:"overallSummary,omitempty"`
}

// FindActivity sucht eine Aktivität per ID über alle Tage
func (p *StudyPlan) FindActivity(id string) *StudyActivity {
	for d := range p.DailyPlans {
		for a := range p.DailyPlans[d].Activities {
			if p.DailyPlans[d].Activities[a].ID == id {
				return &p.DailyPlans[d].Activities[a]
			}
		}
	}
	return nil
}

// PomodoroSession ist eine protokollierte Fokus-Sitzung
type PomodoroSession struct {
	ID          string    `json:"id"`
	ActivityID  string    `json:"activity_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Minutes     int       `json:"minutes"`
	WasAborted  bool      `json:"was_aborted"`
	Distraction int       `json:"distraction_attempts"`
}

// WhitelistEntry ist eine erlaubte URL im Fokus-Modus
type WhitelistEntry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot bündelt die aktuell bekannten Studiendaten aller Kategorien
type Snapshot struct {
	Courses  []Course  `json:"courses"`
	Exams    []Exam    `json:"exams"`
	Tasks    []Task    `json:"tasks"`
	Lectures []Lecture `json:"lectures"`
	Quizzes  []Quiz    `json:"quizzes"`
}
