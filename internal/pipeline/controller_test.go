package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PREDICTif/medview/internal/common"
	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
	"github.com/PREDICTif/medview/internal/services/emergency"
	"github.com/PREDICTif/medview/internal/services/medication"
	"github.com/PREDICTif/medview/internal/services/relevance"
	"github.com/PREDICTif/medview/internal/services/synthesis"
)

type stubRetriever struct {
	passages []models.Passage
	err      error
	calls    int
}

func (s *stubRetriever) Retrieve(ctx context.Context, question string) ([]models.Passage, error) {
	s.calls++
	return s.passages, s.err
}

type stubScorer struct {
	score float64
	err   error
	calls int
}

func (s *stubScorer) Score(ctx context.Context, question string, contexts []string) (float64, error) {
	s.calls++
	return s.score, s.err
}

type stubSearcher struct {
	passages []models.Passage
	err      error
	calls    int
}

func (s *stubSearcher) Search(ctx context.Context, question string) ([]models.Passage, error) {
	s.calls++
	return s.passages, s.err
}

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) ModelName() string { return "stub-model" }
func (s *stubLLM) Close() error      { return nil }

type capturingRecorder struct {
	events []interfaces.AuditEvent
}

func (r *capturingRecorder) Record(ctx context.Context, event interfaces.AuditEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	retriever *stubRetriever
	scorer    *stubScorer
	searcher  *stubSearcher
	recorder  *capturingRecorder
	ctrl      *Controller
}

func newFixture(t *testing.T, retriever *stubRetriever, scorer *stubScorer, searcher *stubSearcher, llmResponse string) *fixture {
	t.Helper()

	logger := common.GetLogger()

	table, err := medication.LoadTable("")
	if err != nil {
		t.Fatalf("failed to load medication table: %v", err)
	}

	recorder := &capturingRecorder{}
	ctrl := NewController(
		emergency.NewGate(),
		retriever,
		relevance.NewEvaluator(scorer, 0.5, time.Second, logger),
		searcher,
		medication.NewChecker(table, logger),
		synthesis.NewSynthesizer(&stubLLM{response: llmResponse}, logger),
		recorder,
		logger,
	)

	return &fixture{
		retriever: retriever,
		scorer:    scorer,
		searcher:  searcher,
		recorder:  recorder,
		ctrl:      ctrl,
	}
}

func kbPassages(n int) []models.Passage {
	passages := make([]models.Passage, 0, n)
	for i := 0; i < n; i++ {
		passages = append(passages, models.Passage{
			ID:        fmt.Sprintf("kb-%d", i+1),
			Text:      fmt.Sprintf("knowledge passage %d", i+1),
			Score:     0.9 - float64(i)*0.1,
			Origin:    models.OriginKnowledgeBase,
			SourceRef: fmt.Sprintf("kb://doc-%d", i+1),
		})
	}
	return passages
}

func webPassages() []models.Passage {
	return []models.Passage{
		{ID: "web_1", Text: "web result", Score: 0.8, Origin: models.OriginWeb, SourceRef: "https://diabetes.org/info"},
	}
}

func TestAskEmergencyShortCircuit(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: kbPassages(3)},
		&stubScorer{score: 0.9},
		&stubSearcher{},
		"answer [Source: 1]",
	)

	result, err := f.ctrl.Ask(context.Background(), Request{
		Question: "My blood sugar is 450 and I feel dizzy",
	})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if !result.Answer.Emergency {
		t.Fatal("expected emergency answer")
	}
	if !strings.Contains(result.Answer.Text, "911") {
		t.Errorf("emergency answer missing the advisory text: %q", result.Answer.Text)
	}
	if len(result.Answer.Citations) != 0 {
		t.Errorf("emergency answer must not carry citations: %v", result.Answer.Citations)
	}
	if f.scorer.calls != 0 {
		t.Errorf("evaluator ran %d times on emergency path, want 0", f.scorer.calls)
	}
	if f.searcher.calls != 0 {
		t.Errorf("web search ran %d times on emergency path, want 0", f.searcher.calls)
	}

	// The concurrent retrieval is traced as cancelled; evaluation, search and
	// synthesis never appear.
	if entry := result.Trace.Find(models.StageEmergencyCheck); entry == nil || entry.Outcome != models.OutcomeSuccess {
		t.Errorf("emergency_check entry = %+v, want success", entry)
	}
	if entry := result.Trace.Find(models.StageRetrieve); entry == nil || entry.Outcome != models.OutcomeCancelled {
		t.Errorf("retrieve entry = %+v, want cancelled", entry)
	}
	for _, stage := range []models.Stage{models.StageEvaluate, models.StageWebSearch, models.StageSynthesize} {
		if result.Trace.Find(stage) != nil {
			t.Errorf("stage %s must not appear in an emergency trace", stage)
		}
	}

	if len(f.recorder.events) != 1 || !f.recorder.events[0].EmergencyDetected {
		t.Errorf("audit events = %+v, want one with EmergencyDetected", f.recorder.events)
	}
}

func TestAskRelevantPathSkipsWebSearch(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: kbPassages(3)},
		&stubScorer{score: 0.75},
		&stubSearcher{passages: webPassages()},
		"grounded answer [Source: 1] and more [Source: 2]",
	)

	result, err := f.ctrl.Ask(context.Background(), Request{Question: "how does metformin work?"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if f.searcher.calls != 0 {
		t.Errorf("web search ran %d times on relevant path, want 0", f.searcher.calls)
	}
	if result.Answer.UsedWebSearch {
		t.Error("UsedWebSearch must be false on the relevant path")
	}
	if result.Trace.Find(models.StageWebSearch) != nil {
		t.Error("web_search stage must be absent from the trace when skipped")
	}

	// Citations resolve to knowledge-base refs only
	for _, c := range result.Answer.Citations {
		if c != "kb://doc-1" && c != "kb://doc-2" && c != "kb://doc-3" {
			t.Errorf("citation %q is not a supplied knowledge ref", c)
		}
	}
	if len(result.Answer.Citations) != 2 {
		t.Errorf("citations = %v, want 2", result.Answer.Citations)
	}
}

func TestAskNotRelevantTriggersWebSearchOnce(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: kbPassages(2)},
		&stubScorer{score: 0.2},
		&stubSearcher{passages: webPassages()},
		// Passage 3 is the web passage appended after the 2 KB passages
		"web-backed answer [Source: 3]",
	)

	result, err := f.ctrl.Ask(context.Background(), Request{Question: "newest CGM devices?"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if f.searcher.calls != 1 {
		t.Fatalf("web search ran %d times, want exactly 1", f.searcher.calls)
	}
	if !result.Answer.UsedWebSearch {
		t.Error("UsedWebSearch must be true when web evidence was used")
	}
	if entry := result.Trace.Find(models.StageWebSearch); entry == nil || entry.Outcome != models.OutcomeSuccess {
		t.Errorf("web_search entry = %+v, want success", entry)
	}
	if len(result.Answer.Citations) != 1 || result.Answer.Citations[0] != "https://diabetes.org/info" {
		t.Errorf("citations = %v, want the web ref", result.Answer.Citations)
	}
}

func TestAskEmptyRetrievalFallsBackToWeb(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: nil},
		&stubScorer{score: 0.9},
		&stubSearcher{passages: webPassages()},
		"answer from the web [Source: 1]",
	)

	result, err := f.ctrl.Ask(context.Background(), Request{Question: "rare question"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	// Empty retrieval short-circuits the evaluator: NotRelevant, not degraded,
	// scorer never consulted.
	if f.scorer.calls != 0 {
		t.Errorf("scorer ran %d times on empty retrieval, want 0", f.scorer.calls)
	}
	if result.Verdict.Decision != models.DecisionNotRelevant || result.Verdict.Degraded {
		t.Errorf("verdict = %+v, want genuine NotRelevant", result.Verdict)
	}
	if f.searcher.calls != 1 {
		t.Fatalf("web search ran %d times, want 1", f.searcher.calls)
	}
	if len(result.Answer.Citations) != 1 || result.Answer.Citations[0] != "https://diabetes.org/info" {
		t.Errorf("citations = %v, want web-only", result.Answer.Citations)
	}
}

func TestAskScorerErrorSuppressesWebSearch(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: kbPassages(2)},
		&stubScorer{err: errors.New("judge down")},
		&stubSearcher{passages: webPassages()},
		"answer [Source: 1]",
	)

	result, err := f.ctrl.Ask(context.Background(), Request{Question: "question"})
	if err != nil {
		t.Fatalf("scorer errors must never escape the pipeline: %v", err)
	}

	if result.Verdict.Score != 0.5 || result.Verdict.Decision != models.DecisionRelevant || !result.Verdict.Degraded {
		t.Errorf("verdict = %+v, want pinned fail-safe", result.Verdict)
	}
	if f.searcher.calls != 0 {
		t.Errorf("web search ran %d times under the fail-safe, want 0", f.searcher.calls)
	}
	if entry := result.Trace.Find(models.StageEvaluate); entry == nil || entry.Outcome != models.OutcomeDegraded {
		t.Errorf("evaluate entry = %+v, want degraded", entry)
	}
	if len(f.recorder.events) != 1 || !f.recorder.events[0].RelevanceDegraded {
		t.Errorf("audit must record the degraded evaluation: %+v", f.recorder.events)
	}
}

func TestAskRetrieverFailureIsFatal(t *testing.T) {
	retrieveErr := fmt.Errorf("%w: store down", models.ErrAdapterUnavailable)
	f := newFixture(t,
		&stubRetriever{err: retrieveErr},
		&stubScorer{score: 0.9},
		&stubSearcher{passages: webPassages()},
		"answer",
	)

	result, err := f.ctrl.Ask(context.Background(), Request{Question: "question"})
	if err == nil {
		t.Fatal("expected error when retrieval fails")
	}
	if !errors.Is(err, models.ErrAdapterUnavailable) {
		t.Errorf("err = %v, want wrapped ErrAdapterUnavailable", err)
	}
	if result == nil || result.Answer.Text != RetrievalFailureMessage {
		t.Errorf("expected the fixed retrieval-failure message, got %+v", result)
	}
	if f.scorer.calls != 0 || f.searcher.calls != 0 {
		t.Error("no stage may run after a retrieval failure")
	}
	if entry := result.Trace.Find(models.StageRetrieve); entry == nil || entry.Outcome != models.OutcomeFailed {
		t.Errorf("retrieve entry = %+v, want failed", entry)
	}
}

func TestAskWebSearchFailureDegradesToKnowledgeOnly(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: kbPassages(2)},
		&stubScorer{score: 0.1},
		&stubSearcher{err: fmt.Errorf("%w: search down", models.ErrAdapterUnavailable)},
		"best effort answer [Source: 1]",
	)

	result, err := f.ctrl.Ask(context.Background(), Request{Question: "question"})
	if err != nil {
		t.Fatalf("web search failures must not abort the pipeline: %v", err)
	}

	if result.Answer.UsedWebSearch {
		t.Error("UsedWebSearch must be false when search failed")
	}
	if entry := result.Trace.Find(models.StageWebSearch); entry == nil || entry.Outcome != models.OutcomeFailed {
		t.Errorf("web_search entry = %+v, want non-fatal failed", entry)
	}
	if entry := result.Trace.Find(models.StageSynthesize); entry == nil || entry.Outcome != models.OutcomeSuccess {
		t.Errorf("synthesize entry = %+v, want success after degraded search", entry)
	}
	if len(result.Answer.Citations) != 1 || result.Answer.Citations[0] != "kb://doc-1" {
		t.Errorf("citations = %v, want knowledge-base ref", result.Answer.Citations)
	}
}

func TestAskEmptyQuestionRejected(t *testing.T) {
	f := newFixture(t, &stubRetriever{}, &stubScorer{}, &stubSearcher{}, "answer")

	_, err := f.ctrl.Ask(context.Background(), Request{Question: "   "})
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	if f.retriever.calls != 0 {
		t.Error("no stage may run for a malformed request")
	}
}

func TestAskMedicationCheckOnlyWithMedications(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: kbPassages(1)},
		&stubScorer{score: 0.8},
		&stubSearcher{},
		"answer [Source: 1]",
	)

	noMeds, err := f.ctrl.Ask(context.Background(), Request{Question: "is contrast dye safe?"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if noMeds.Trace.Find(models.StageMedicationCheck) != nil {
		t.Error("medication_check must be absent without a medication list")
	}

	withMeds, err := f.ctrl.Ask(context.Background(), Request{
		Question:    "is contrast dye safe?",
		Medications: []string{"metformin"},
	})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if withMeds.Trace.Find(models.StageMedicationCheck) == nil {
		t.Fatal("medication_check missing from the trace")
	}
	if len(withMeds.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want the contrast dye contraindication", withMeds.Warnings)
	}
	if withMeds.Warnings[0].Kind != models.WarningContraindication {
		t.Errorf("warning kind = %s, want contraindication", withMeds.Warnings[0].Kind)
	}
	if len(f.recorder.events) != 2 || f.recorder.events[1].MedicationWarningsCount != 1 {
		t.Errorf("audit should carry the warning count: %+v", f.recorder.events)
	}
}

func TestAskAuditCarriesHashedPatientID(t *testing.T) {
	f := newFixture(t,
		&stubRetriever{passages: kbPassages(1)},
		&stubScorer{score: 0.8},
		&stubSearcher{},
		"answer [Source: 1]",
	)

	_, err := f.ctrl.Ask(context.Background(), Request{
		PatientID: "patient-42",
		Question:  "how often should I test?",
	})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if len(f.recorder.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(f.recorder.events))
	}
	event := f.recorder.events[0]
	if event.PatientHash == "" || event.PatientHash == "patient-42" {
		t.Errorf("patient hash = %q, want sha256 of the identifier, never raw", event.PatientHash)
	}
	if len(event.StageDurations) == 0 {
		t.Error("audit event missing stage durations")
	}
}
