package plan

import "fmt"

// MalformedRequestError beschreibt eine Plan-Anfrage, die ihr eigenes
// Schema verletzt. Wird nie automatisch wiederholt
type MalformedRequestError struct {
	Field  string
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("ungültige Plan-Anfrage (Feld %q): %s", e.Field, e.Reason)
}

// Ablehnungsgründe für harte Strukturfehler
const (
	ReasonMissingWrapper = "missing root wrapper"
	ReasonBareDayList    = "missing root wrapper: model returned dailyPlans directly"
)

// RejectionError ist die einzige harte Ablehnung des Validators:
// dem Kandidaten fehlt der Root-Wrapper (startDate, endDate, dailyPlans)
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("Plan abgelehnt: %s", e.Reason)
}
