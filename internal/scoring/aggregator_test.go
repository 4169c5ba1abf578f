package scoring

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// expectRecompute wires the full transaction for one recomputation:
// row lock, response load, per-response evaluation, classification,
// upsert, commit. Each response is (answer_value, evaluated sum).
func expectRecompute(mock pgxmock.PgxPoolIface, userID string, sums []float64, persisted float64, level string) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT true FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(true))

	respRows := pgxmock.NewRows([]string{"id", "user_id", "question_id", "answer_value", "answer_text", "category"})
	for i := range sums {
		respRows.AddRow(int64(i+1), userID, int64(i+1), "yes", "", "governance")
	}
	mock.ExpectQuery(`SELECT id, user_id, question_id, .+ FROM responses WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(respRows)

	for i, sum := range sums {
		mock.ExpectQuery(`SELECT COALESCE\(SUM`).
			WithArgs(int64(i+1), "exact", "yes").
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(sum))
	}

	mock.ExpectQuery(`SELECT label FROM risk_levels`).
		WithArgs(persisted).
		WillReturnRows(pgxmock.NewRows([]string{"label"}).AddRow(level))

	mock.ExpectExec(`INSERT INTO risk_scores .+ ON CONFLICT \(user_id\)`).
		WithArgs(userID, persisted, level, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()
}

func TestRecompute_SumsAndPersists(t *testing.T) {
	mock := newMock(t)
	expectRecompute(mock, "u-1", []float64{10, 20.5, 3}, 33.5, "Medium")

	got, err := NewAggregator(mock).Recompute(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 33.5, got.Score)
	assert.Equal(t, "Medium", got.RiskLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_ClampsAtMax(t *testing.T) {
	mock := newMock(t)
	expectRecompute(mock, "u-2", []float64{600, 500}, model.MaxRiskScore, "Critical")

	got, err := NewAggregator(mock).Recompute(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Equal(t, model.MaxRiskScore, got.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_NegativeTotalPreserved(t *testing.T) {
	mock := newMock(t)
	expectRecompute(mock, "u-3", []float64{-5, -7.5}, -12.5, "Unknown")

	got, err := NewAggregator(mock).Recompute(context.Background(), "u-3")
	require.NoError(t, err)
	assert.Equal(t, -12.5, got.Score, "no lower clamp")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_Idempotent(t *testing.T) {
	mock := newMock(t)
	agg := NewAggregator(mock)

	expectRecompute(mock, "u-4", []float64{15, 15}, 30.0, "Medium")
	first, err := agg.Recompute(context.Background(), "u-4")
	require.NoError(t, err)

	expectRecompute(mock, "u-4", []float64{15, 15}, 30.0, "Medium")
	second, err := agg.Recompute(context.Background(), "u-4")
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_UserNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT true FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := NewAggregator(mock).Recompute(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_RollsBackOnStorageError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT true FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("u-5").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(true))
	mock.ExpectQuery(`SELECT id, user_id, question_id`).
		WithArgs("u-5").
		WillReturnError(eris.New("connection reset"))
	mock.ExpectRollback()

	_, err := NewAggregator(mock).Recompute(context.Background(), "u-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load responses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrent_NotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id, score, risk_level, computed_at`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewAggregator(mock).Current(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
