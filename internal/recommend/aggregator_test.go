package recommend

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

func recColumns() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "category", "question_id", "sector", "risk_level", "text", "impact"})
}

// newMock disables ordered matching because the four source queries run
// concurrently.
func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	t.Cleanup(mock.Close)
	return mock
}

func TestRecommend_DedupFirstWins(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT sector FROM users WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"sector"}).AddRow("energy"))

	// Source 1 and source 3 both emit "Enable MFA" with different impact
	// values; the category-risk row is unioned first and wins.
	mock.ExpectQuery(`WHERE r\.risk_level = rl\.label\s+ORDER BY r\.id`).
		WithArgs("u-1").
		WillReturnRows(recColumns().
			AddRow(int64(1), "access control", nil, "", "High", "Enable MFA", "high"))
	qid := int64(4)
	mock.ExpectQuery(`JOIN responses resp`).
		WithArgs("u-1").
		WillReturnRows(recColumns().
			AddRow(int64(2), "logging", &qid, "", "", "Centralize log collection", "medium"))
	mock.ExpectQuery(`WHERE r\.sector = \$1`).
		WithArgs("energy").
		WillReturnRows(recColumns().
			AddRow(int64(3), "", nil, "energy", "", "Enable MFA", "low").
			AddRow(int64(4), "", nil, "energy", "", "Segment OT networks", "high"))
	mock.ExpectQuery(`WHERE r\.risk_level = rl\.label AND r\.question_id IS NULL`).
		WithArgs("u-1").
		WillReturnRows(recColumns())

	got, err := NewAggregator(mock).Recommend(context.Background(), "u-1")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "Enable MFA", got[0].Text)
	assert.Equal(t, "high", got[0].Impact, "first-inserted row wins")
	assert.Equal(t, "Centralize log collection", got[1].Text)
	assert.Equal(t, "Segment OT networks", got[2].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecommend_UserNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT sector FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewAggregator(mock).Recommend(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecommend_EmptySources(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT sector FROM users WHERE id = \$1`).
		WithArgs("u-2").
		WillReturnRows(pgxmock.NewRows([]string{"sector"}).AddRow("health"))
	mock.ExpectQuery(`WHERE r\.risk_level = rl\.label\s+ORDER BY r\.id`).
		WithArgs("u-2").
		WillReturnRows(recColumns())
	mock.ExpectQuery(`JOIN responses resp`).
		WithArgs("u-2").
		WillReturnRows(recColumns())
	mock.ExpectQuery(`WHERE r\.sector = \$1`).
		WithArgs("health").
		WillReturnRows(recColumns())
	mock.ExpectQuery(`WHERE r\.risk_level = rl\.label AND r\.question_id IS NULL`).
		WithArgs("u-2").
		WillReturnRows(recColumns())

	got, err := NewAggregator(mock).Recommend(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
