// Package recommend assembles personalized recommendation lists from
// four independent matching strategies, deduplicated by text.
package recommend

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Aggregator gathers recommendations for a user.
type Aggregator struct {
	pool db.Pool
}

// NewAggregator creates an Aggregator backed by the given pool.
func NewAggregator(pool db.Pool) *Aggregator {
	return &Aggregator{pool: pool}
}

// categoryRiskSQL matches recommendations whose risk level equals the
// level computed from the user's per-category normalized score.
const categoryRiskSQL = `
SELECT r.id, COALESCE(r.category, ''), r.question_id, COALESCE(r.sector, ''), COALESCE(r.risk_level, ''), r.text, COALESCE(r.impact, '')
FROM recommendations r
JOIN category_scores cs ON cs.category = r.category AND cs.user_id = $1
JOIN risk_levels rl ON cs.normalized_score >= rl.min_score AND cs.normalized_score <= rl.max_score
WHERE r.risk_level = rl.label
ORDER BY r.id`

// answerTriggeredSQL matches recommendations linked to a question the
// user answered affirmatively.
const answerTriggeredSQL = `
SELECT DISTINCT r.id, COALESCE(r.category, ''), r.question_id, COALESCE(r.sector, ''), COALESCE(r.risk_level, ''), r.text, COALESCE(r.impact, '')
FROM recommendations r
JOIN responses resp ON resp.question_id = r.question_id AND resp.user_id = $1
WHERE r.question_id IS NOT NULL AND lower(resp.answer_value) IN ('yes', '1')
ORDER BY r.id`

// sectorSQL matches recommendations scoped to the user's sector,
// with no risk-level filter.
const sectorSQL = `
SELECT r.id, COALESCE(r.category, ''), r.question_id, COALESCE(r.sector, ''), COALESCE(r.risk_level, ''), r.text, COALESCE(r.impact, '')
FROM recommendations r
WHERE r.sector = $1
ORDER BY r.id`

// directCategorySQL matches recommendations by category and risk level
// directly against the user's normalized category scores, independent of
// any question link.
const directCategorySQL = `
SELECT r.id, COALESCE(r.category, ''), r.question_id, COALESCE(r.sector, ''), COALESCE(r.risk_level, ''), r.text, COALESCE(r.impact, '')
FROM recommendations r
JOIN category_scores cs ON cs.category = r.category AND cs.user_id = $1
JOIN risk_levels rl ON cs.normalized_score >= rl.min_score AND cs.normalized_score <= rl.max_score
WHERE r.risk_level = rl.label AND r.question_id IS NULL
ORDER BY r.id`

// Recommend returns the deduplicated recommendation list for a user.
// The four sources are queried independently and unioned in fixed order
// (category risk, answer-triggered, sector, direct category+risk);
// duplicates are dropped by exact text match, first occurrence wins.
// Output preserves source-emission order; severity sorting is left to
// the caller. An unknown user yields ErrNotFound before any source runs.
func (a *Aggregator) Recommend(ctx context.Context, userID string) ([]model.Recommendation, error) {
	var sector string
	err := a.pool.QueryRow(ctx, `SELECT sector FROM users WHERE id = $1`, userID).Scan(&sector)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "recommend: user %s", userID)
		}
		return nil, eris.Wrapf(err, "recommend: load user %s", userID)
	}

	sources := []struct {
		name string
		sql  string
		arg  string
	}{
		{"category_risk", categoryRiskSQL, userID},
		{"answer_triggered", answerTriggeredSQL, userID},
		{"sector", sectorSQL, sector},
		{"direct_category", directCategorySQL, userID},
	}

	results := make([][]model.Recommendation, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			recs, err := a.querySource(gctx, src.sql, src.arg)
			if err != nil {
				return eris.Wrapf(err, "recommend: source %s", src.name)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Union in source order; first-inserted row wins on duplicate text.
	seen := make(map[string]bool)
	merged := make([]model.Recommendation, 0)
	for _, recs := range results {
		for _, rec := range recs {
			if seen[rec.Text] {
				continue
			}
			seen[rec.Text] = true
			merged = append(merged, rec)
		}
	}

	zap.L().Debug("recommend: aggregated",
		zap.String("user_id", userID),
		zap.Int("recommendations", len(merged)),
	)
	return merged, nil
}

func (a *Aggregator) querySource(ctx context.Context, sql, arg string) ([]model.Recommendation, error) {
	rows, err := a.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, eris.Wrap(err, "query")
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		var rec model.Recommendation
		if err := rows.Scan(&rec.ID, &rec.Category, &rec.QuestionID, &rec.Sector, &rec.RiskLevel, &rec.Text, &rec.Impact); err != nil {
			return nil, eris.Wrap(err, "scan")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate")
	}
	return recs, nil
}
