package model

import "time"

// Default benchmark weights used when no settings row exists.
const (
	DefaultInternalWeight = 30
	DefaultExternalWeight = 70
)

// BenchmarkSettings is the single global weight pair, admin-mutable.
// Weights are percentages assumed to sum to 100; `nis2d check` warns
// when they do not.
type BenchmarkSettings struct {
	InternalWeight float64 `json:"internal_weight"`
	ExternalWeight float64 `json:"external_weight"`
}

// SectorBenchmark blends a sector's internally observed average risk
// with an externally sourced score. InternalAvg and BlendedScore are
// nil for sectors with no scored users.
type SectorBenchmark struct {
	Sector          string    `json:"sector"`
	InternalAvg     *float64  `json:"internal_avg"`
	ExternalScore   float64   `json:"external_score"`
	BlendedScore    *float64  `json:"blended_score"`
	SourceReference string    `json:"source_reference,omitempty"`
	Justification   string    `json:"justification,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}
