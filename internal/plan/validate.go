package plan

import (
	"fmt"

	"studyplanner/internal/models"
)

// Candidate ist die ungeprüfte Ausgabe des Generators. IsBareDayList
// markiert den Sonderfall, dass das Modell nur das dailyPlans-Array
// ohne Root-Wrapper geliefert hat
type Candidate struct {
	Plan          models.StudyPlan
	IsBareDayList bool
}

// Violation ist ein protokollierter weicher Verstoß. DayIndex -1 heißt
// Plan-Ebene, ActivityIndex -1 heißt Tags-Ebene
type Violation struct {
	DayIndex      int    `json:"dayIndex"`
	ActivityIndex int    `json:"activityIndex"`
	Field         string `json:"field,omitempty"`
	Message       string `json:"message"`
}

func (v Violation) String() string {
	switch {
	case v.DayIndex < 0:
		return v.Message
	case v.ActivityIndex < 0:
		return fmt.Sprintf("Tag %d: %s", v.DayIndex, v.Message)
	default:
		return fmt.Sprintf("Tag %d, Aktivität %d: %s", v.DayIndex, v.ActivityIndex, v.Message)
	}
}

// Accepted ist ein angenommener Plan samt seiner weichen Verstöße.
// Die Verstoßliste ist Teil des Ergebnisses: der Aufrufer muss jeden
// Defekt aufzählen können
type Accepted struct {
	Plan       *models.StudyPlan `json:"plan"`
	Violations []Violation       `json:"violations"`
}

// ValidateCandidate entscheidet über einen Kandidaten. Einziger harter
// Fehlschlag ist der fehlende Root-Wrapper (RejectionError); alle
// weiteren Defekte degradieren zu weichen Verstößen, weil ein
// Generierungsaufruf teuer ist und ein Teilplan nützlich bleibt
func ValidateCandidate(cand *Candidate, req *Request) (*Accepted, error) {
	if cand == nil {
		return nil, &RejectionError{Reason: ReasonMissingWrapper}
	}
	if cand.IsBareDayList {
		// Explizit getrennt gemeldet, damit der Aufrufer ggf. mit
		// deutlicherer Instruktion neu anfragen kann
		return nil, &RejectionError{Reason: ReasonBareDayList}
	}

	p := cand.Plan
	if p.StartDate == "" || p.EndDate == "" || p.DailyPlans == nil {
		return nil, &RejectionError{Reason: ReasonMissingWrapper}
	}

	acc := &Accepted{Plan: &cand.Plan, Violations: nil}
	addV := func(day, act int, field, format string, args ...interface{}) {
		acc.Violations = append(acc.Violations, Violation{
			DayIndex:      day,
			ActivityIndex: act,
			Field:         field,
			Message:       fmt.Sprintf(format, args...),
		})
	}

	if !ValidDateString(p.StartDate) {
		addV(-1, -1, "startDate", "startDate %q ist kein gültiges Datum", p.StartDate)
	}
	if !ValidDateString(p.EndDate) {
		addV(-1, -1, "endDate", "endDate %q ist kein gültiges Datum", p.EndDate)
	}
	if ValidDateString(p.StartDate) && p.StartDate != req.CurrentDate {
		addV(-1, -1, "startDate", "startDate %s weicht vom Ankerdatum %s ab", p.StartDate, req.CurrentDate)
	}
	if ValidDateString(p.StartDate) && ValidDateString(p.EndDate) {
		if want := ExpectedEndDate(p.StartDate, req.PlanDurationDays); p.EndDate != want {
			addV(-1, -1, "endDate", "endDate %s, erwartet %s", p.EndDate, want)
		}
	}

	// Tagesanzahl ist bewusst nur beratend durchgesetzt: Abweichung wird
	// gemeldet, der Plan trotzdem angenommen
	if len(p.DailyPlans) != req.PlanDurationDays {
		addV(-1, -1, "dailyPlans",
			"day count mismatch: got %d, expected %d", len(p.DailyPlans), req.PlanDurationDays)
	}

	expected := ExpectedDates(p.StartDate, len(p.DailyPlans))
	for d := range p.DailyPlans {
		day := &p.DailyPlans[d]

		if day.Date == "" {
			addV(d, -1, "date", "Tag ohne Datum")
		} else if !ValidDateString(day.Date) {
			addV(d, -1, "date", "Datum %q ist kein gültiges YYYY-MM-DD", day.Date)
		} else if ValidDateString(p.StartDate) && day.Date != expected[d] {
			addV(d, -1, "date", "Datum %s passt nicht zur Position (erwartet %s)", day.Date, expected[d])
		}

		if day.DayOfWeek == "" {
			addV(d, -1, "dayOfWeek", "Tag ohne Wochentag")
		} else if want := DayOfWeek(day.Date); want != "" && day.DayOfWeek != want {
			addV(d, -1, "dayOfWeek", "Wochentag %q passt nicht zu %s (%s)", day.DayOfWeek, day.Date, want)
		}

		if day.Activities == nil {
			// Leeres Array wäre gültig (Ruhetag), fehlendes Feld nicht
			addV(d, -1, "activities", "Tag ohne activities-Array")
			continue
		}

		for a := range day.Activities {
			act := &day.Activities[a]
			if act.ID == "" {
				addV(d, a, "id", "Aktivität ohne id")
			}
			if act.Description == "" {
				addV(d, a, "description", "Aktivität ohne description")
			}
			switch {
			case act.Type == "":
				addV(d, a, "type", "Aktivität ohne type")
			case !models.ActivityTypes[act.Type]:
				addV(d, a, "type", "unbekannter Aktivitätstyp %q", act.Type)
			}

			startMin, startOK := 0, false
			endMin, endOK := 0, false
			if act.StartTime == "" {
				addV(d, a, "startTime", "Aktivität ohne startTime")
			} else if startMin, startOK = ParseActivityTime(act.StartTime); !startOK {
				addV(d, a, "startTime", "startTime %q ist kein gültiges HH:MM AM/PM", act.StartTime)
			}
			if act.EndTime == "" {
				addV(d, a, "endTime", "Aktivität ohne endTime")
			} else if endMin, endOK = ParseActivityTime(act.EndTime); !endOK {
				addV(d, a, "endTime", "endTime %q ist kein gültiges HH:MM AM/PM", act.EndTime)
			}
			if startOK && endOK && endMin <= startMin {
				addV(d, a, "endTime", "endTime %s liegt nicht nach startTime %s", act.EndTime, act.StartTime)
			}
		}
	}

	return acc, nil
}
