package scoring

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// ClassifyScore maps a numeric score to the risk-level label whose
// [min, max] range contains it, inclusive on both ends. A score with no
// covering range yields "Unknown" — a valid outcome, not an error.
// When ranges overlap the lowest-min row wins; overlap is an
// administrative data-quality concern surfaced by `nis2d check`.
func ClassifyScore(ctx context.Context, q db.Querier, score float64) (string, error) {
	var label string
	err := q.QueryRow(ctx,
		`SELECT label FROM risk_levels
		 WHERE $1 >= min_score AND $1 <= max_score
		 ORDER BY min_score
		 LIMIT 1`,
		score,
	).Scan(&label)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return model.RiskLevelUnknown, nil
		}
		return "", eris.Wrapf(err, "scoring: classify score %.2f", score)
	}
	return label, nil
}
