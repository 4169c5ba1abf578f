// Package monitoring runs data-quality checks over the reference data
// the scoring and benchmark components depend on. Findings are
// warnings: the runtime contracts tolerate them (overlaps resolve to
// the first row, uncovered scores classify as Unknown), but they
// usually indicate an administration mistake.
package monitoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Severity grades a finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// gapTolerance is the largest hole between adjacent ranges still treated
// as contiguous. The 1e-9 slack absorbs float subtraction error on
// two-decimal boundaries (20 - 19.99 is slightly above 0.01 in float64).
const gapTolerance = 0.01 + 1e-9

// Issue is one data-quality finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Message  string   `json:"message"`
}

// Checker inspects reference data.
type Checker struct {
	pool db.Pool
}

// NewChecker creates a Checker backed by the given pool.
func NewChecker(pool db.Pool) *Checker {
	return &Checker{pool: pool}
}

// Run executes every check and returns the combined findings.
func (c *Checker) Run(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	levels, err := c.loadRiskLevels(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, CheckRiskLevels(levels)...)

	weightIssues, err := c.checkBenchmarkWeights(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, weightIssues...)

	ruleIssues, err := c.checkScoringRules(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, ruleIssues...)

	zap.L().Info("monitoring: data-quality check complete",
		zap.Int("issues", len(issues)),
	)
	return issues, nil
}

// CheckRiskLevels finds overlaps and gaps in the risk-level partition.
// The classifier requires contiguous, non-overlapping ranges to be
// well-defined; neither is enforced at runtime.
func CheckRiskLevels(levels []model.RiskLevel) []Issue {
	var issues []Issue

	sorted := make([]model.RiskLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.MinScore <= prev.MaxScore {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Check:    "risk_level_overlap",
				Message:  fmt.Sprintf("ranges %q [%.2f, %.2f] and %q [%.2f, %.2f] overlap; classification is order-dependent", prev.Label, prev.MinScore, prev.MaxScore, cur.Label, cur.MinScore, cur.MaxScore),
			})
		} else if cur.MinScore-prev.MaxScore > gapTolerance {
			// Reference data uses two-decimal boundaries (19.99 / 20),
			// so only wider holes are real coverage gaps. Uncovered
			// scores classify as Unknown.
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Check:    "risk_level_gap",
				Message:  fmt.Sprintf("scores between %.2f and %.2f fall outside every range and classify as %s", prev.MaxScore, cur.MinScore, model.RiskLevelUnknown),
			})
		}
	}

	return issues
}

// CheckWeights flags a weight pair not summing to 100 percent.
func CheckWeights(s model.BenchmarkSettings) []Issue {
	if s.InternalWeight+s.ExternalWeight == 100 {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Check:    "benchmark_weights",
		Message:  fmt.Sprintf("benchmark weights sum to %.1f, expected 100", s.InternalWeight+s.ExternalWeight),
	}}
}

func (c *Checker) loadRiskLevels(ctx context.Context) ([]model.RiskLevel, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, label, min_score, max_score FROM risk_levels ORDER BY min_score`)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load risk levels")
	}
	defer rows.Close()

	var levels []model.RiskLevel
	for rows.Next() {
		var l model.RiskLevel
		if err := rows.Scan(&l.ID, &l.Label, &l.MinScore, &l.MaxScore); err != nil {
			return nil, eris.Wrap(err, "monitoring: scan risk level")
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "monitoring: iterate risk levels")
	}
	return levels, nil
}

func (c *Checker) checkBenchmarkWeights(ctx context.Context) ([]Issue, error) {
	var s model.BenchmarkSettings
	err := c.pool.QueryRow(ctx,
		`SELECT internal_weight, external_weight FROM benchmark_settings WHERE id = 1`,
	).Scan(&s.InternalWeight, &s.ExternalWeight)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			// Missing settings fall back to the 30/70 default.
			return []Issue{{
				Severity: SeverityInfo,
				Check:    "benchmark_weights",
				Message:  "no benchmark settings configured; using 30/70 default",
			}}, nil
		}
		return nil, eris.Wrap(err, "monitoring: load benchmark settings")
	}
	return CheckWeights(s), nil
}

func (c *Checker) checkScoringRules(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	var orphans int
	err := c.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scoring_rules sr
		 LEFT JOIN questions q ON q.id = sr.question_id
		 WHERE q.id IS NULL`,
	).Scan(&orphans)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count orphan rules")
	}
	if orphans > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Check:    "orphan_scoring_rules",
			Message:  fmt.Sprintf("%d scoring rules reference a missing question and never match", orphans),
		})
	}

	var emptyKeywords int
	err = c.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scoring_rules WHERE match_type = 'keyword' AND answer_value = ''`,
	).Scan(&emptyKeywords)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count empty keyword rules")
	}
	if emptyKeywords > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Check:    "empty_keyword_rules",
			Message:  fmt.Sprintf("%d keyword rules have an empty keyword and never match", emptyKeywords),
		})
	}

	return issues, nil
}
