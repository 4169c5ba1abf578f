package scoring

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Aggregator recomputes and persists user risk scores.
type Aggregator struct {
	pool db.Pool
}

// NewAggregator creates an Aggregator backed by the given pool.
func NewAggregator(pool db.Pool) *Aggregator {
	return &Aggregator{pool: pool}
}

// Recompute loads all of a user's responses, evaluates each against the
// scoring rules, sums the contributions, clamps the total at
// model.MaxRiskScore, classifies it, and upserts the result. The whole
// read-compute-persist sequence runs in one transaction; the user row is
// locked first so concurrent recomputation for the same user serializes
// and the last commit reflects the responses visible at commit time.
// Any failure rolls the transaction back with nothing persisted.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (*model.RiskScore, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scoring: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT true FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&exists)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "scoring: user %s", userID)
		}
		return nil, eris.Wrapf(err, "scoring: lock user %s", userID)
	}

	responses, err := loadResponses(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, resp := range responses {
		contribution, err := Evaluate(ctx, tx, resp)
		if err != nil {
			return nil, err
		}
		total += contribution
	}

	if total > model.MaxRiskScore {
		total = model.MaxRiskScore
	}

	level, err := ClassifyScore(ctx, tx, total)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO risk_scores (user_id, score, risk_level, computed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id)
		 DO UPDATE SET score = EXCLUDED.score,
		               risk_level = EXCLUDED.risk_level,
		               computed_at = EXCLUDED.computed_at`,
		userID, total, level, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: upsert score for user %s", userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "scoring: commit")
	}

	zap.L().Info("scoring: recomputed risk score",
		zap.String("user_id", userID),
		zap.Int("responses", len(responses)),
		zap.Float64("score", total),
		zap.String("risk_level", level),
	)

	return &model.RiskScore{
		UserID:     userID,
		Score:      total,
		RiskLevel:  level,
		ComputedAt: now,
	}, nil
}

// Current returns the user's persisted risk score.
func (a *Aggregator) Current(ctx context.Context, userID string) (*model.RiskScore, error) {
	var rs model.RiskScore
	err := a.pool.QueryRow(ctx,
		`SELECT user_id, score, risk_level, computed_at
		 FROM risk_scores WHERE user_id = $1`,
		userID,
	).Scan(&rs.UserID, &rs.Score, &rs.RiskLevel, &rs.ComputedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "scoring: no score for user %s", userID)
		}
		return nil, eris.Wrapf(err, "scoring: load score for user %s", userID)
	}
	return &rs, nil
}

func loadResponses(ctx context.Context, q db.Querier, userID string) ([]model.Response, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, question_id, COALESCE(answer_value, ''), COALESCE(answer_text, ''), COALESCE(category, '')
		 FROM responses WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load responses for user %s", userID)
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var r model.Response
		if err := rows.Scan(&r.ID, &r.UserID, &r.QuestionID, &r.AnswerValue, &r.AnswerText, &r.Category); err != nil {
			return nil, eris.Wrap(err, "scoring: scan response")
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "scoring: iterate responses")
	}
	return responses, nil
}
