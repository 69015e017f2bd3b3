package domain

// Suggestion types rendered by the storefront.
const (
	SuggestionCompletion = "completion"
	SuggestionProduct    = "product"
	SuggestionBrand      = "brand"
	SuggestionHistory    = "history"
	SuggestionCategory   = "category"
)

// Suggestion limits.
const (
	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 20
)

// Suggestion is one autocomplete entry. Score comes from the index; Weight
// is a secondary ordering key (the result count of a history term).
type Suggestion struct {
	Text   string  `json:"text"`
	Type   string  `json:"type"`
	Score  float64 `json:"score"`
	Weight int     `json:"weight,omitempty"`
}

// HistoryTerm is a previously executed storefront search.
type HistoryTerm struct {
	Term        string `json:"term"`
	ResultCount int    `json:"resultCount"`
}
