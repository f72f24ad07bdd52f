package models

// Answer is the final response handed back to the request-handling layer.
//
// Citations lists the sourceRefs of passages actually incorporated into the
// answer text, in first-use order. An emergency answer never carries
// citations: safety messaging and informational content are never mixed.
type Answer struct {
	Text          string   `json:"text"`
	Citations     []string `json:"citations"`
	UsedWebSearch bool     `json:"used_web_search"`
	Emergency     bool     `json:"emergency"`
}
