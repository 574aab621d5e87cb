package models

// StructuredResume is the heuristic section split of a resume. Sections that
// were not found are empty, never nil.
type StructuredResume struct {
	Summary        string            `json:"summary"`
	Skills         []string          `json:"skills"`
	Experience     []string          `json:"experience"`
	Education      []string          `json:"education"`
	Certifications []string          `json:"certifications"`
	Contact        map[string]string `json:"contact"`
	RawText        string            `json:"raw_text,omitempty"`
}

func EmptyStructuredResume() StructuredResume {
	return StructuredResume{
		Skills:         []string{},
		Experience:     []string{},
		Education:      []string{},
		Certifications: []string{},
		Contact:        map[string]string{},
	}
}

// Degraded reports whether structuring fell back to the raw text.
func (r StructuredResume) Degraded() bool {
	return r.RawText != ""
}

type AIReview struct {
	MatchScore       float64  `json:"match_score"`
	MatchingKeywords []string `json:"matching_keywords"`
	MissingKeywords  []string `json:"missing_keywords"`
	USP              []string `json:"usp"`
	Analysis         string   `json:"analysis"`
	Recommendation   string   `json:"recommendation"`
}
