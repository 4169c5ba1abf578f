package model

// Recommendation is static admin-managed reference data matched against
// a user's context by several independent strategies (category risk,
// answer trigger, sector scope, direct category+risk).
type Recommendation struct {
	ID         int64  `json:"id"`
	Category   string `json:"category,omitempty"`
	QuestionID *int64 `json:"question_id,omitempty"`
	Sector     string `json:"sector,omitempty"`
	RiskLevel  string `json:"risk_level,omitempty"`
	Text       string `json:"text"`
	Impact     string `json:"impact,omitempty"`
}
