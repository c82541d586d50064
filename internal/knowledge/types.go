package knowledge

import "time"

// Entry is a question and answer learned from a resolved help request.
// Entries are never edited; a corrected answer is a new, newer entry.
type Entry struct {
	ID                 string    `json:"id"`
	Question           string    `json:"question"`
	NormalizedQuestion string    `json:"normalized_question"`
	Answer             string    `json:"answer"`
	SourceRequestID    string    `json:"source_request_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Strategy names reported on a Match.
const (
	StrategyExact   = "exact"
	StrategyOverlap = "overlap"
	StrategyFuzzy   = "fuzzy"
)

// Match is the result of a successful lookup.
type Match struct {
	Entry      Entry   `json:"entry"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"strategy"`
}
