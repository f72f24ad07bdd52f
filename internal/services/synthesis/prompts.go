package synthesis

import (
	"fmt"
	"strings"

	"github.com/PREDICTif/medview/internal/models"
)

// synthesisSystemPrompt fixes the answering contract: grounded in the
// supplied passages only, cited with numbered source markers, and always
// deferring diagnosis to a clinician.
const synthesisSystemPrompt = `You are a diabetes patient education assistant.
Answer the patient's question using ONLY the numbered source passages provided.

Rules:
- Base every factual statement on the provided passages. Do not use outside knowledge.
- Cite each fact with its passage number in the form [Source: N], where N is the passage number.
- If the passages do not contain enough information to answer, say so plainly instead of guessing.
- Use clear, patient-friendly language. Avoid jargon.
- Never diagnose. Remind the patient to discuss medication or treatment changes with their doctor.
- Do not invent source numbers that were not provided.`

// buildSynthesisPrompt renders the user message: the question followed by the
// numbered passages with their provenance.
func buildSynthesisPrompt(question string, passages []models.Passage) string {
	var b strings.Builder

	b.WriteString("Patient question: ")
	b.WriteString(question)
	b.WriteString("\n\nSource passages:\n")

	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] ", i+1)
		if p.Title != "" {
			b.WriteString(p.Title)
			b.WriteString(" - ")
		}
		b.WriteString(p.Text)
		if p.Origin == models.OriginWeb {
			fmt.Fprintf(&b, " (from %s)", p.SourceRef)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nAnswer the question using only these passages, citing with [Source: N] markers.")

	return b.String()
}

// noEvidenceAnswer is returned when no passages survived retrieval and
// fallback search. Admitting the gap is safer than letting the model
// free-associate on medical questions.
const noEvidenceAnswer = `I don't have enough reliable information to answer that question right now.

Please contact your doctor, pharmacist, or diabetes educator, who can give you guidance specific to your situation. For general diabetes information you can also call the American Diabetes Association at 1-800-DIABETES (1-800-342-2383).`
