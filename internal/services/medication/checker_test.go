package medication

import (
	"reflect"
	"testing"

	"github.com/PREDICTif/medview/internal/models"
)

func loadDefaultTable(t *testing.T) *Table {
	t.Helper()
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	return table
}

func TestCheckContraindication(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	warnings := checker.Check([]string{"metformin"}, "Is it safe to get a CT scan with contrast dye?")

	if len(warnings) != 1 {
		t.Fatalf("expected exactly 1 warning, got %d: %+v", len(warnings), warnings)
	}
	w := warnings[0]
	if w.Kind != models.WarningContraindication {
		t.Errorf("Kind = %s, want %s", w.Kind, models.WarningContraindication)
	}
	if w.Medication != "metformin" {
		t.Errorf("Medication = %s, want metformin", w.Medication)
	}
}

func TestCheckSynonymMatch(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	// "drinking" is a synonym for the alcohol interaction term
	warnings := checker.Check([]string{"metformin"}, "Can I keep drinking on weekends?")

	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %+v", len(warnings), warnings)
	}
	if warnings[0].Kind != models.WarningInteraction {
		t.Errorf("Kind = %s, want %s", warnings[0].Kind, models.WarningInteraction)
	}
}

func TestCheckGeneralNote(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	warnings := checker.Check([]string{"insulin"}, "What side effects should I watch for?")

	found := false
	for _, w := range warnings {
		if w.Kind == models.WarningGeneralNote {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a general note warning, got %+v", warnings)
	}
}

func TestCheckEmptyMedicationList(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	warnings := checker.Check(nil, "Is contrast dye safe with kidney disease and alcohol?")
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings for empty medication list, got %+v", warnings)
	}
}

func TestCheckNoTermsInQuestion(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	warnings := checker.Check([]string{"metformin", "insulin"}, "What should I eat for breakfast?")
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
}

func TestCheckUnknownMedication(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	warnings := checker.Check([]string{"aspirin"}, "Is alcohol safe with my medications?")
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings for unknown medication, got %+v", warnings)
	}
}

func TestCheckCaseInsensitive(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	warnings := checker.Check([]string{"Metformin 500mg"}, "My doctor mentioned KIDNEY DISEASE")
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %+v", len(warnings), warnings)
	}
}

func TestCheckDeterministicOrder(t *testing.T) {
	checker := NewChecker(loadDefaultTable(t), nil)

	medications := []string{"glipizide", "metformin"}
	question := "I take warfarin and was told I have kidney disease and drink alcohol sometimes"

	first := checker.Check(medications, question)
	if len(first) == 0 {
		t.Fatal("expected warnings")
	}

	for i := 0; i < 10; i++ {
		next := checker.Check(medications, question)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("warning order changed between runs:\n%+v\n%+v", first, next)
		}
	}

	// Medication input order is preserved: glipizide warnings come first
	if first[0].Medication != "glipizide" {
		t.Errorf("first warning medication = %s, want glipizide", first[0].Medication)
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable("/nonexistent/table.toml")
	if err == nil {
		t.Fatal("expected error for missing table file")
	}
}

func TestLoadTableEmbeddedDefault(t *testing.T) {
	table := loadDefaultTable(t)

	for _, name := range []string{"metformin", "insulin", "glipizide", "glyburide", "sitagliptin"} {
		if _, ok := table.Medications[name]; !ok {
			t.Errorf("embedded table missing %s", name)
		}
	}
	if len(table.Names()) != len(table.Medications) {
		t.Errorf("Names() length %d != medications %d", len(table.Names()), len(table.Medications))
	}
}
