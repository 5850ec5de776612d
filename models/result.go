package models

// ArchetypeScore is one archetype's scored standing in a completed
// assessment. Built fresh on every scoring run, never mutated in place.
type ArchetypeScore struct {
	Archetype   string   `json:"archetype"`
	RawScore    float64  `json:"raw_score"`
	Percentage  float64  `json:"percentage"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Traits      []string `json:"traits"`
}

// AssessmentResult is the outcome of scoring a completed response set.
// AllScores is ranked highest percentage first; ties keep taxonomy order.
type AssessmentResult struct {
	Primary    ArchetypeScore   `json:"primary"`
	Secondary  ArchetypeScore   `json:"secondary"`
	AllScores  []ArchetypeScore `json:"all_scores"`
	Confidence float64          `json:"confidence"`
}
