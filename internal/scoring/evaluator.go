// Package scoring implements the risk-scoring core: per-response rule
// evaluation, score aggregation with transactional persistence, and
// range-based risk-level classification.
package scoring

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Evaluate returns the summed score impact of all scoring rules matching
// the given response. Discrete answers match rules exactly on
// (question_id, answer_value); free text matches keyword rules whose
// value is a case-sensitive substring of the text. All matching rules
// contribute (union-sum). A response with no matching rule contributes
// exactly zero; that is not an error.
func Evaluate(ctx context.Context, q db.Querier, resp model.Response) (float64, error) {
	var total float64

	if resp.AnswerValue != "" {
		var sum float64
		err := q.QueryRow(ctx,
			`SELECT COALESCE(SUM(COALESCE(score_impact, 0)), 0)
			 FROM scoring_rules
			 WHERE question_id = $1 AND match_type = $2 AND answer_value = $3`,
			resp.QuestionID, string(model.MatchExact), resp.AnswerValue,
		).Scan(&sum)
		if err != nil {
			return 0, eris.Wrapf(err, "scoring: exact rules for question %d", resp.QuestionID)
		}
		total += sum
	}

	if resp.AnswerText != "" {
		sum, err := evaluateKeywords(ctx, q, resp.QuestionID, resp.AnswerText)
		if err != nil {
			return 0, err
		}
		total += sum
	}

	return total, nil
}

// evaluateKeywords sums the impacts of keyword rules whose value occurs
// in the response text. Matching is case-sensitive substring search,
// done in process so the contract is independent of collation settings.
func evaluateKeywords(ctx context.Context, q db.Querier, questionID int64, text string) (float64, error) {
	rows, err := q.Query(ctx,
		`SELECT answer_value, COALESCE(score_impact, 0)
		 FROM scoring_rules
		 WHERE question_id = $1 AND match_type = $2`,
		questionID, string(model.MatchKeyword),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "scoring: keyword rules for question %d", questionID)
	}
	defer rows.Close()

	var sum float64
	for rows.Next() {
		var keyword string
		var impact float64
		if err := rows.Scan(&keyword, &impact); err != nil {
			return 0, eris.Wrap(err, "scoring: scan keyword rule")
		}
		if keyword != "" && strings.Contains(text, keyword) {
			sum += impact
		}
	}
	if err := rows.Err(); err != nil {
		return 0, eris.Wrap(err, "scoring: iterate keyword rules")
	}
	return sum, nil
}
