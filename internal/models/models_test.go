package models

import (
	"encoding/json"
	"testing"
)

func TestFlexIDUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"abc-123"`, "abc-123", false},
		{`42`, "42", false},
		{`3.0`, "3.0", false},
		{`""`, "", false},
		{`null`, "", false},
		{`{"x":1}`, "", true},
		{`[1]`, "", true},
	}
	for _, tt := range tests {
		var id FlexID
		err := json.Unmarshal([]byte(tt.in), &id)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Unmarshal(%s): Fehler erwartet", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.in, err)
			continue
		}
		if string(id) != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, id, tt.want)
		}
	}
}

func TestFindActivity(t *testing.T) {
	plan := StudyPlan{
		DailyPlans: []StudyPlanDay{
			{Activities: []StudyActivity{{ID: "a1"}, {ID: "a2"}}},
			{Activities: []StudyActivity{{ID: "a3"}}},
		},
	}

	act := plan.FindActivity("a3")
	if act == nil {
		t.Fatal("a3 nicht gefunden")
	}

	// Der Pointer muss in den Plan zeigen, nicht auf eine Kopie
	act.Completed = true
	if !plan.DailyPlans[1].Activities[0].Completed {
		t.Error("Änderung am Fundstück erreicht den Plan nicht")
	}

	if plan.FindActivity("gibts-nicht") != nil {
		t.Error("unbekannte ID darf nichts liefern")
	}
}

func TestDefaultPreferencesAreValid(t *testing.T) {
	p := DefaultPreferences()

	for _, st := range p.PreferredStudyTimes {
		if !StudyTimeOptions[st] {
			t.Errorf("unbekanntes Zeitfenster in Defaults: %q", st)
		}
	}
	for _, tech := range p.StudyTechniques {
		if !StudyTechniqueOptions[tech] {
			t.Errorf("unbekannte Technik in Defaults: %q", tech)
		}
	}
	if p.DefaultSessionLength <= 0 || p.DefaultBreakCadence <= 0 {
		t.Errorf("unbrauchbare Default-Zeiten: %+v", p)
	}
}
