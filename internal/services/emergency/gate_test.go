package emergency

import (
	"strings"
	"testing"

	"github.com/PREDICTif/medview/internal/models"
)

func TestScan(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name       string
		question   string
		triggered  bool
		categories []models.EmergencyCategory
	}{
		{
			name:       "high glucose reading with symptom",
			question:   "My blood sugar is 450 and I feel dizzy",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategorySevereHyperglycemia},
		},
		{
			name:       "high glucose number before wording",
			question:   "I measured 520 on my glucose meter, what should I do?",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategorySevereHyperglycemia},
		},
		{
			name:       "low glucose reading",
			question:   "my sugar level is 35, I feel shaky",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategorySevereHypoglycemia},
		},
		{
			name:      "threshold reading exactly 400 does not trip",
			question:  "my blood sugar is 400 today",
			triggered: false,
		},
		{
			name:      "threshold reading exactly 40 does not trip",
			question:  "glucose reading of 40 this morning",
			triggered: false,
		},
		{
			name:       "fruity breath without context",
			question:   "I noticed a fruity smell on my breath",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategoryKetoacidosisSymptoms},
		},
		{
			name:       "dka named directly",
			question:   "could this be DKA?",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategoryKetoacidosisSymptoms},
		},
		{
			name:       "chest pain with diabetes context",
			question:   "I have diabetes and chest pain right now",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategoryCardiac},
		},
		{
			name:      "chest pain without diabetes context",
			question:  "I have chest pain after exercise",
			triggered: false,
		},
		{
			name:       "confusion with glucose context",
			question:   "my husband is confused and his glucose meter won't read",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategorySevereConfusion},
		},
		{
			name:       "unconscious with insulin context",
			question:   "she took insulin and is now unconscious",
			triggered:  true,
			categories: []models.EmergencyCategory{models.CategorySevereHypoglycemia},
		},
		{
			name:      "type 2 number is not a glucose reading",
			question:  "What foods are good for type 2 diabetes?",
			triggered: false,
		},
		{
			name:      "routine question",
			question:  "How often should I check my blood sugar?",
			triggered: false,
		},
		{
			name:      "empty question",
			question:  "",
			triggered: false,
		},
		{
			name:      "whitespace only",
			question:  "   ",
			triggered: false,
		},
		{
			name:      "vomiting with diabetes context",
			question:  "I have been vomiting all day and my diabetes is acting up",
			triggered: true,
			categories: []models.EmergencyCategory{
				models.CategoryKetoacidosisSymptoms,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := gate.Scan(tt.question)

			if signal.Triggered != tt.triggered {
				t.Fatalf("Scan(%q).Triggered = %v, want %v (categories: %v)",
					tt.question, signal.Triggered, tt.triggered, signal.Categories)
			}
			if !tt.triggered {
				if len(signal.Categories) != 0 {
					t.Errorf("untriggered signal carries categories: %v", signal.Categories)
				}
				return
			}
			if len(signal.Categories) == 0 {
				t.Fatal("triggered signal has no categories")
			}
			for _, want := range tt.categories {
				found := false
				for _, got := range signal.Categories {
					if got == want {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("category %s missing from %v", want, signal.Categories)
				}
			}
		})
	}
}

func TestScanDeterministic(t *testing.T) {
	gate := NewGate()
	question := "my blood sugar is 450, I am vomiting and confused about my diabetes"

	first := gate.Scan(question)
	for i := 0; i < 10; i++ {
		next := gate.Scan(question)
		if len(next.Categories) != len(first.Categories) {
			t.Fatalf("category count changed between scans: %v vs %v", first.Categories, next.Categories)
		}
		for j := range first.Categories {
			if next.Categories[j] != first.Categories[j] {
				t.Fatalf("category order changed between scans: %v vs %v", first.Categories, next.Categories)
			}
		}
	}
}

func TestScanMultipleCategories(t *testing.T) {
	gate := NewGate()
	signal := gate.Scan("my glucose is 480, I'm vomiting and my breath smells fruity")

	if !signal.Triggered {
		t.Fatal("expected gate to trip")
	}
	if len(signal.Categories) < 2 {
		t.Fatalf("expected multiple categories, got %v", signal.Categories)
	}
}

func TestScanPopulatesAdvisory(t *testing.T) {
	gate := NewGate()

	signal := gate.Scan("My blood sugar is 450 and I feel dizzy")
	if !signal.Triggered {
		t.Fatal("expected gate to trip")
	}
	if signal.Advisory != BuildAdvisory(signal.Categories) {
		t.Error("triggered signal advisory does not match the assembled advisory")
	}

	routine := gate.Scan("How often should I check my blood sugar?")
	if routine.Advisory != "" {
		t.Errorf("untriggered signal carries an advisory: %q", routine.Advisory)
	}
}

func TestBuildAdvisory(t *testing.T) {
	advisory := BuildAdvisory([]models.EmergencyCategory{
		models.CategorySevereHyperglycemia,
		models.CategoryKetoacidosisSymptoms,
	})

	for _, want := range []string{
		"911",
		"MEDICAL EMERGENCY",
		Rationale(models.CategorySevereHyperglycemia),
		Rationale(models.CategoryKetoacidosisSymptoms),
		"1-800-DIABETES",
	} {
		if !strings.Contains(advisory, want) {
			t.Errorf("advisory missing %q", want)
		}
	}
}

func TestParseGlucoseReadings(t *testing.T) {
	tests := []struct {
		question string
		want     []int
	}{
		{"blood sugar is 450", []int{450}},
		{"my glucose was 38 this morning", []int{38}},
		{"I took 2 units of insulin", nil},
		{"450 blood sugar reading", []int{450}},
		{"no numbers here", nil},
	}

	for _, tt := range tests {
		got := parseGlucoseReadings(tt.question)
		if len(got) != len(tt.want) {
			t.Errorf("parseGlucoseReadings(%q) = %v, want %v", tt.question, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("parseGlucoseReadings(%q) = %v, want %v", tt.question, got, tt.want)
			}
		}
	}
}
