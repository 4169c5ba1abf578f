// Package export writes sector assessment reports as XLSX workbooks.
package export

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/benchmark"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Reporter builds per-sector assessment workbooks.
type Reporter struct {
	pool    db.Pool
	blender *benchmark.Blender
}

func NewReporter(pool db.Pool) *Reporter {
	return &Reporter{pool: pool, blender: benchmark.NewBlender(pool)}
}

// userScore joins a user with their current score for the report.
type userScore struct {
	Name         string
	Email        string
	Organisation string
	Tier         string
	Score        *float64
	RiskLevel    string
	ComputedAt   *time.Time
}

// Write builds the workbook for one sector and saves it to path. The
// workbook has three sheets: user scores, the sector benchmark, and the
// risk-level reference bands.
func (r *Reporter) Write(ctx context.Context, sector, path string) error {
	f := xlsx.NewFile()

	users, err := r.loadUserScores(ctx, sector)
	if err != nil {
		return err
	}
	if err := addScoreSheet(f, users); err != nil {
		return err
	}
	if err := r.addBenchmarkSheet(ctx, f, sector); err != nil {
		return err
	}
	if err := r.addRiskLevelSheet(ctx, f); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("export: report written",
		zap.String("sector", sector),
		zap.String("path", path),
		zap.Int("users", len(users)),
	)
	return nil
}

func (r *Reporter) loadUserScores(ctx context.Context, sector string) ([]userScore, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.name, u.email, u.organisation, COALESCE(c.tier, ''),
		        rs.score, COALESCE(rs.risk_level, ''), rs.computed_at
		 FROM users u
		 LEFT JOIN classifications c ON c.user_id = u.id
		 LEFT JOIN risk_scores rs ON rs.user_id = u.id
		 WHERE u.sector = $1
		 ORDER BY u.name`,
		sector,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "export: load user scores for %s", sector)
	}
	defer rows.Close()

	var users []userScore
	for rows.Next() {
		var u userScore
		if err := rows.Scan(&u.Name, &u.Email, &u.Organisation, &u.Tier, &u.Score, &u.RiskLevel, &u.ComputedAt); err != nil {
			return nil, eris.Wrap(err, "export: scan user score")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "export: iterate user scores")
	}
	return users, nil
}

func addScoreSheet(f *xlsx.File, users []userScore) error {
	sheet, err := f.AddSheet("Risk Scores")
	if err != nil {
		return eris.Wrap(err, "export: add score sheet")
	}

	addHeader(sheet, "Name", "Email", "Organisation", "Tier", "Risk Score", "Risk Level", "Computed At")
	for _, u := range users {
		row := sheet.AddRow()
		row.AddCell().SetString(u.Name)
		row.AddCell().SetString(u.Email)
		row.AddCell().SetString(u.Organisation)
		row.AddCell().SetString(u.Tier)
		if u.Score != nil {
			row.AddCell().SetFloat(*u.Score)
		} else {
			row.AddCell().SetString("not assessed")
		}
		row.AddCell().SetString(u.RiskLevel)
		if u.ComputedAt != nil {
			row.AddCell().SetString(u.ComputedAt.UTC().Format(time.RFC3339))
		} else {
			row.AddCell().SetString("")
		}
	}
	return nil
}

func (r *Reporter) addBenchmarkSheet(ctx context.Context, f *xlsx.File, sector string) error {
	sheet, err := f.AddSheet("Benchmark")
	if err != nil {
		return eris.Wrap(err, "export: add benchmark sheet")
	}
	addHeader(sheet, "Sector", "Internal Avg", "External Score", "Blended Score", "Source", "Updated At")

	bm, err := r.blender.Get(ctx, sector)
	if err != nil {
		if eris.Is(err, model.ErrNotFound) {
			row := sheet.AddRow()
			row.AddCell().SetString(sector)
			row.AddCell().SetString("no benchmark recorded")
			return nil
		}
		return err
	}

	row := sheet.AddRow()
	row.AddCell().SetString(bm.Sector)
	row.AddCell().SetString(floatOrEmpty(bm.InternalAvg))
	row.AddCell().SetFloat(bm.ExternalScore)
	row.AddCell().SetString(floatOrEmpty(bm.BlendedScore))
	row.AddCell().SetString(bm.SourceReference)
	row.AddCell().SetString(bm.UpdatedAt.UTC().Format(time.RFC3339))
	return nil
}

func (r *Reporter) addRiskLevelSheet(ctx context.Context, f *xlsx.File) error {
	sheet, err := f.AddSheet("Risk Levels")
	if err != nil {
		return eris.Wrap(err, "export: add risk level sheet")
	}
	addHeader(sheet, "Label", "Min Score", "Max Score")

	rows, err := r.pool.Query(ctx,
		`SELECT label, min_score, max_score FROM risk_levels ORDER BY min_score`)
	if err != nil {
		return eris.Wrap(err, "export: load risk levels")
	}
	defer rows.Close()

	for rows.Next() {
		var level model.RiskLevel
		if err := rows.Scan(&level.Label, &level.MinScore, &level.MaxScore); err != nil {
			return eris.Wrap(err, "export: scan risk level")
		}
		row := sheet.AddRow()
		row.AddCell().SetString(level.Label)
		row.AddCell().SetFloat(level.MinScore)
		row.AddCell().SetFloat(level.MaxScore)
	}
	return eris.Wrap(rows.Err(), "export: iterate risk levels")
}

func addHeader(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
