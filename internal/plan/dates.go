package plan

import (
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	// 12-Stunden-Format mit AM/PM-Marker, z.B. "09:00 AM" oder "1:30 pm"
	timeRe = regexp.MustCompile(`^(0?[1-9]|1[0-2]):[0-5]\d\s?[AaPp][Mm]$`)
)

// ValidDateString prüft das Kalenderdatum syntaktisch UND kalendarisch
// ("2025-02-30" fällt durch)
func ValidDateString(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// ValidTimeString prüft eine Uhrzeit im 12-Stunden-Format mit AM/PM
func ValidTimeString(s string) bool {
	return timeRe.MatchString(s)
}

// AddDays addiert n Kalendertage auf ein YYYY-MM-DD-Datum
func AddDays(date string, n int) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(dateLayout)
}

// ExpectedEndDate liefert startDate + (Tage − 1)
func ExpectedEndDate(startDate string, days int) string {
	return AddDays(startDate, days-1)
}

// ExpectedDates liefert die lückenlose Datumsfolge des Planhorizonts
func ExpectedDates(startDate string, days int) []string {
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, AddDays(startDate, i))
	}
	return dates
}

// DayOfWeek liefert den englischen Wochentagsnamen ("Monday", ...)
// zu einem YYYY-MM-DD-Datum, oder "" wenn das Datum ungültig ist
func DayOfWeek(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}

// ParseActivityTime parst "HH:MM AM/PM" in Minuten seit Mitternacht.
// Zweiter Rückgabewert ist false bei ungültigem Format
func ParseActivityTime(s string) (int, bool) {
	if !timeRe.MatchString(s) {
		return 0, false
	}
	for _, layout := range []string{"3:04 PM", "3:04PM", "03:04 PM", "03:04PM"} {
		if t, err := time.Parse(layout, normalizeMeridiem(s)); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

func normalizeMeridiem(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}
