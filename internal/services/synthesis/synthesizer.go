// Package synthesis turns evidence passages into a cited, patient-friendly
// answer.
package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
)

// sourceMarkerPattern matches the [Source: N] citation markers the model is
// instructed to emit.
var sourceMarkerPattern = regexp.MustCompile(`\[Source:\s*(\d+)\]`)

// Input carries everything the synthesizer needs for one answer.
type Input struct {
	Question      string
	Passages      []models.Passage
	Warnings      []models.MedicationWarning
	UsedWebSearch bool
}

// Synthesizer generates the final answer from evidence passages. Model
// failures never abort a request: the synthesizer falls back to quoting the
// highest scored passages directly.
type Synthesizer struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger
}

// NewSynthesizer creates an answer synthesizer backed by the given model.
func NewSynthesizer(llmService interfaces.LLMService, logger arbor.ILogger) *Synthesizer {
	return &Synthesizer{
		llmService: llmService,
		logger:     logger,
	}
}

// Synthesize produces a cited answer for the question from the supplied
// passages.
//
// Citations are derived from the [Source: N] markers the model emits: each
// in-range marker resolves to that passage's source reference, deduplicated
// in first-use order. Markers referencing passages that were never supplied
// are dropped, so the citation list is always a subset of the input evidence.
// Medication warnings are appended verbatim after the answer body.
func (s *Synthesizer) Synthesize(ctx context.Context, input Input) models.Answer {
	if len(input.Passages) == 0 {
		return finishAnswer(models.Answer{Text: noEvidenceAnswer}, input)
	}

	response, err := s.llmService.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: buildSynthesisPrompt(input.Question, input.Passages)},
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("passages", len(input.Passages)).
			Msg("Answer synthesis failed, falling back to extractive answer")
		return finishAnswer(s.extractiveAnswer(input.Passages), input)
	}

	answer := models.Answer{
		Text:      response,
		Citations: resolveCitations(response, input.Passages),
	}

	s.logger.Debug().
		Int("citations", len(answer.Citations)).
		Int("response_length", len(response)).
		Msg("Answer synthesis complete")

	return finishAnswer(answer, input)
}

// extractiveAnswer quotes the top passages directly when the model is
// unavailable. It cites every quoted passage so provenance survives the
// degraded path.
func (s *Synthesizer) extractiveAnswer(passages []models.Passage) models.Answer {
	quoted := passages
	if len(quoted) > 2 {
		quoted = quoted[:2]
	}

	var b strings.Builder
	b.WriteString("I wasn't able to compose a full answer right now, but here is the most relevant information I found:\n")
	citations := make([]string, 0, len(quoted))
	for i, p := range quoted {
		fmt.Fprintf(&b, "\n%s [Source: %d]\n", strings.TrimSpace(p.Text), i+1)
		if p.SourceRef != "" {
			citations = append(citations, p.SourceRef)
		}
	}
	b.WriteString("\nPlease discuss this with your doctor or diabetes educator for guidance specific to you.")

	return models.Answer{
		Text:      b.String(),
		Citations: citations,
	}
}

// resolveCitations maps [Source: N] markers onto passage source references,
// in first-use order without duplicates. Out-of-range markers are ignored.
func resolveCitations(text string, passages []models.Passage) []string {
	var citations []string
	seen := make(map[string]bool)

	for _, match := range sourceMarkerPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(passages) {
			continue
		}
		ref := passages[n-1].SourceRef
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		citations = append(citations, ref)
	}

	return citations
}

// finishAnswer appends medication warnings and stamps the web search flag.
// Warning messages are carried verbatim: safety wording is fixed by the
// medication table, never rephrased by the model.
func finishAnswer(answer models.Answer, input Input) models.Answer {
	if len(input.Warnings) > 0 {
		var b strings.Builder
		b.WriteString(answer.Text)
		b.WriteString("\n\nMedication safety notes:\n")
		for _, w := range input.Warnings {
			b.WriteString("- ")
			b.WriteString(w.Message)
			b.WriteString("\n")
		}
		answer.Text = strings.TrimRight(b.String(), "\n")
	}
	answer.UsedWebSearch = input.UsedWebSearch
	return answer
}
