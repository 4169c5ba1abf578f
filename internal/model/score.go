package model

import "time"

// MaxRiskScore is the upper clamp applied to an aggregated risk score.
// There is no lower clamp; negative totals are preserved.
const MaxRiskScore = 999.99

// RiskLevelUnknown is returned when no risk-level range covers a score.
// It is a valid outcome, not an error.
const RiskLevelUnknown = "Unknown"

// RiskLevel is one band of the static score partition. Ranges are
// inclusive on both ends and expected to be contiguous and
// non-overlapping; that is an administrative data-quality concern
// checked by `nis2d check`, not enforced at runtime.
type RiskLevel struct {
	ID       int64   `json:"id"`
	Label    string  `json:"label"`
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
}

// Contains reports whether score falls within the level's range.
func (l RiskLevel) Contains(score float64) bool {
	return score >= l.MinScore && score <= l.MaxScore
}

// RiskScore is a user's current aggregated score. At most one row exists
// per user; recomputation upserts in place.
type RiskScore struct {
	UserID     string    `json:"user_id"`
	Score      float64   `json:"score"`
	RiskLevel  string    `json:"risk_level"`
	ComputedAt time.Time `json:"computed_at"`
}

// CategoryScore is a user's normalized score within one question
// category, used by the recommendation aggregator.
type CategoryScore struct {
	UserID   string  `json:"user_id"`
	Category string  `json:"category"`
	Score    float64 `json:"normalized_score"`
}
