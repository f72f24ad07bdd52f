package models

import (
	"sort"
	"time"
)

// PassageOrigin identifies where a retrieved passage came from
type PassageOrigin string

const (
	// OriginKnowledgeBase marks passages retrieved from the curated medical knowledge store
	OriginKnowledgeBase PassageOrigin = "knowledge_base"

	// OriginWeb marks passages retrieved from the external web search provider
	OriginWeb PassageOrigin = "web"
)

// Passage is a scored unit of retrieved text with provenance.
// Passages are immutable once created.
type Passage struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Score     float64       `json:"score"` // [0,1]
	Origin    PassageOrigin `json:"origin"`
	SourceRef string        `json:"source_ref"` // URL or internal document id
	Title     string        `json:"title,omitempty"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// SortPassagesByScore orders passages by descending score.
// Ties keep their original input order (stable sort).
func SortPassagesByScore(passages []Passage) {
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
}

// PassageTexts extracts the text of each passage, preserving order.
func PassageTexts(passages []Passage) []string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	return texts
}
