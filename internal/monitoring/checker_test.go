package monitoring

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

func TestCheckRiskLevels_Clean(t *testing.T) {
	levels := []model.RiskLevel{
		{Label: "Low", MinScore: 0, MaxScore: 19.99},
		{Label: "Medium", MinScore: 20, MaxScore: 49.99},
		{Label: "High", MinScore: 50, MaxScore: 999.99},
	}
	assert.Empty(t, CheckRiskLevels(levels))
}

func TestCheckRiskLevels_TwoDecimalBoundariesAreContiguous(t *testing.T) {
	// 20 - 19.99 is slightly above 0.01 in float64; the tolerance must
	// absorb that so every two-decimal hand-off stays clean.
	levels := []model.RiskLevel{
		{Label: "Low", MinScore: 0, MaxScore: 19.99},
		{Label: "Medium", MinScore: 20, MaxScore: 49.99},
		{Label: "High", MinScore: 50, MaxScore: 79.99},
		{Label: "Critical", MinScore: 80, MaxScore: 999.99},
	}
	assert.Empty(t, CheckRiskLevels(levels))
}

func TestCheckRiskLevels_Overlap(t *testing.T) {
	levels := []model.RiskLevel{
		{Label: "Low", MinScore: 0, MaxScore: 25},
		{Label: "Medium", MinScore: 20, MaxScore: 50},
	}
	issues := CheckRiskLevels(levels)
	require.Len(t, issues, 1)
	assert.Equal(t, "risk_level_overlap", issues[0].Check)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
}

func TestCheckRiskLevels_Gap(t *testing.T) {
	levels := []model.RiskLevel{
		{Label: "Low", MinScore: 0, MaxScore: 19.99},
		{Label: "High", MinScore: 30, MaxScore: 100},
	}
	issues := CheckRiskLevels(levels)
	require.Len(t, issues, 1)
	assert.Equal(t, "risk_level_gap", issues[0].Check)
	assert.Contains(t, issues[0].Message, "Unknown")
}

func TestCheckWeights(t *testing.T) {
	assert.Empty(t, CheckWeights(model.BenchmarkSettings{InternalWeight: 30, ExternalWeight: 70}))

	issues := CheckWeights(model.BenchmarkSettings{InternalWeight: 40, ExternalWeight: 70})
	require.Len(t, issues, 1)
	assert.Equal(t, "benchmark_weights", issues[0].Check)
}

func TestChecker_Run(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectQuery(`SELECT id, label, min_score, max_score FROM risk_levels`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "label", "min_score", "max_score"}).
			AddRow(int64(1), "Low", 0.0, 19.99).
			AddRow(int64(2), "High", 20.0, 999.99))
	mock.ExpectQuery(`SELECT internal_weight, external_weight FROM benchmark_settings`).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM scoring_rules sr`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM scoring_rules WHERE match_type = 'keyword'`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	issues, err := NewChecker(mock).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "benchmark_weights", issues[0].Check)
	assert.Equal(t, SeverityInfo, issues[0].Severity)
	assert.Equal(t, "orphan_scoring_rules", issues[1].Check)
	assert.NoError(t, mock.ExpectationsWereMet())
}
