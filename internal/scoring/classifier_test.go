package scoring

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

func TestClassifyScore_RangeMatch(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT label FROM risk_levels`).
		WithArgs(35.0).
		WillReturnRows(pgxmock.NewRows([]string{"label"}).AddRow("Medium"))

	label, err := ClassifyScore(context.Background(), mock, 35.0)
	require.NoError(t, err)
	assert.Equal(t, "Medium", label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyScore_NoCoveringRange(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT label FROM risk_levels`).
		WithArgs(-12.0).
		WillReturnError(pgx.ErrNoRows)

	label, err := ClassifyScore(context.Background(), mock, -12.0)
	require.NoError(t, err, "an uncovered score is a valid outcome")
	assert.Equal(t, model.RiskLevelUnknown, label)
	assert.NoError(t, mock.ExpectationsWereMet())
}
