// Package benchmark maintains per-sector benchmarks blending the
// sector's internally observed average risk score with an externally
// sourced score under admin-configurable weights.
package benchmark

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Blender recomputes sector benchmarks.
type Blender struct {
	pool db.Pool
}

// NewBlender creates a Blender backed by the given pool.
func NewBlender(pool db.Pool) *Blender {
	return &Blender{pool: pool}
}

// Blend computes the weighted combination of an internal average and an
// external score. A nil internal average (sector with no scored users)
// propagates: the blended score is nil.
func Blend(internalAvg *float64, externalScore float64, settings model.BenchmarkSettings) *float64 {
	if internalAvg == nil {
		return nil
	}
	blended := *internalAvg*(settings.InternalWeight/100) + externalScore*(settings.ExternalWeight/100)
	return &blended
}

// Settings returns the single global weight pair, falling back to the
// 30/70 internal/external default when no settings row exists.
func (b *Blender) Settings(ctx context.Context) (model.BenchmarkSettings, error) {
	return loadSettings(ctx, b.pool)
}

// UpdateSettings replaces the global weight pair.
func (b *Blender) UpdateSettings(ctx context.Context, s model.BenchmarkSettings) error {
	if s.InternalWeight < 0 || s.ExternalWeight < 0 {
		return eris.Wrap(model.ErrInvalidInput, "benchmark: weights must be non-negative")
	}
	_, err := b.pool.Exec(ctx,
		`INSERT INTO benchmark_settings (id, internal_weight, external_weight)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id)
		 DO UPDATE SET internal_weight = EXCLUDED.internal_weight,
		               external_weight = EXCLUDED.external_weight`,
		s.InternalWeight, s.ExternalWeight,
	)
	if err != nil {
		return eris.Wrap(err, "benchmark: update settings")
	}
	return nil
}

// SetExternal stores an admin-supplied external score for a sector and
// recomputes the blended score. The internal average is refreshed from
// the sector's current risk scores as part of the same call.
func (b *Blender) SetExternal(ctx context.Context, sector string, externalScore float64, sourceRef, justification string) (*model.SectorBenchmark, error) {
	settings, err := loadSettings(ctx, b.pool)
	if err != nil {
		return nil, err
	}

	internalAvg, err := internalAverage(ctx, b.pool, sector)
	if err != nil {
		return nil, err
	}

	blended := Blend(internalAvg, externalScore, settings)
	now := time.Now().UTC()

	_, err = b.pool.Exec(ctx,
		`INSERT INTO sector_benchmarks
		     (sector, internal_avg, external_score, blended_score, source_reference, justification, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (sector)
		 DO UPDATE SET internal_avg = EXCLUDED.internal_avg,
		               external_score = EXCLUDED.external_score,
		               blended_score = EXCLUDED.blended_score,
		               source_reference = EXCLUDED.source_reference,
		               justification = EXCLUDED.justification,
		               updated_at = EXCLUDED.updated_at`,
		sector, internalAvg, externalScore, blended, sourceRef, justification, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "benchmark: upsert sector %s", sector)
	}

	zap.L().Info("benchmark: sector reblended",
		zap.String("sector", sector),
		zap.Float64("external_score", externalScore),
	)

	return &model.SectorBenchmark{
		Sector:          sector,
		InternalAvg:     internalAvg,
		ExternalScore:   externalScore,
		BlendedScore:    blended,
		SourceReference: sourceRef,
		Justification:   justification,
		UpdatedAt:       now,
	}, nil
}

// Get returns a sector's benchmark with the internal average refreshed
// at read time from the sector's current risk scores.
func (b *Blender) Get(ctx context.Context, sector string) (*model.SectorBenchmark, error) {
	var bm model.SectorBenchmark
	err := b.pool.QueryRow(ctx,
		`SELECT sector, external_score, COALESCE(source_reference, ''), COALESCE(justification, ''), updated_at
		 FROM sector_benchmarks WHERE sector = $1`,
		sector,
	).Scan(&bm.Sector, &bm.ExternalScore, &bm.SourceReference, &bm.Justification, &bm.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "benchmark: sector %s", sector)
		}
		return nil, eris.Wrapf(err, "benchmark: load sector %s", sector)
	}

	settings, err := loadSettings(ctx, b.pool)
	if err != nil {
		return nil, err
	}
	internalAvg, err := internalAverage(ctx, b.pool, sector)
	if err != nil {
		return nil, err
	}

	bm.InternalAvg = internalAvg
	bm.BlendedScore = Blend(internalAvg, bm.ExternalScore, settings)
	return &bm, nil
}

// List returns every sector benchmark, each with its internal average
// refreshed at read time.
func (b *Blender) List(ctx context.Context) ([]model.SectorBenchmark, error) {
	sectors, err := b.listSectors(ctx)
	if err != nil {
		return nil, err
	}

	benchmarks := make([]model.SectorBenchmark, 0, len(sectors))
	for _, sector := range sectors {
		bm, err := b.Get(ctx, sector)
		if err != nil {
			return nil, err
		}
		benchmarks = append(benchmarks, *bm)
	}
	return benchmarks, nil
}

// RecomputeAll reblends every known sector concurrently. Sectors are
// independent; a failure in one aborts the group.
func (b *Blender) RecomputeAll(ctx context.Context) error {
	sectors, err := b.listSectors(ctx)
	if err != nil {
		return err
	}

	settings, err := loadSettings(ctx, b.pool)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sector := range sectors {
		g.Go(func() error {
			return b.reblend(gctx, sector, settings)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("benchmark: recomputed all sectors", zap.Int("sectors", len(sectors)))
	return nil
}

func (b *Blender) reblend(ctx context.Context, sector string, settings model.BenchmarkSettings) error {
	internalAvg, err := internalAverage(ctx, b.pool, sector)
	if err != nil {
		return err
	}

	var externalScore float64
	err = b.pool.QueryRow(ctx,
		`SELECT external_score FROM sector_benchmarks WHERE sector = $1`, sector,
	).Scan(&externalScore)
	if err != nil {
		return eris.Wrapf(err, "benchmark: load external score for %s", sector)
	}

	blended := Blend(internalAvg, externalScore, settings)
	_, err = b.pool.Exec(ctx,
		`UPDATE sector_benchmarks
		 SET internal_avg = $2, blended_score = $3, updated_at = $4
		 WHERE sector = $1`,
		sector, internalAvg, blended, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "benchmark: update sector %s", sector)
	}
	return nil
}

func (b *Blender) listSectors(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(ctx, `SELECT sector FROM sector_benchmarks ORDER BY sector`)
	if err != nil {
		return nil, eris.Wrap(err, "benchmark: list sectors")
	}
	defer rows.Close()

	var sectors []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrap(err, "benchmark: scan sector")
		}
		sectors = append(sectors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "benchmark: iterate sectors")
	}
	return sectors, nil
}

// internalAverage returns the mean current risk score across the
// sector's users, or nil when the sector has no scored users.
func internalAverage(ctx context.Context, q db.Querier, sector string) (*float64, error) {
	var avg *float64
	err := q.QueryRow(ctx,
		`SELECT AVG(rs.score)
		 FROM risk_scores rs
		 JOIN users u ON u.id = rs.user_id
		 WHERE u.sector = $1`,
		sector,
	).Scan(&avg)
	if err != nil {
		return nil, eris.Wrapf(err, "benchmark: internal average for %s", sector)
	}
	return avg, nil
}

func loadSettings(ctx context.Context, q db.Querier) (model.BenchmarkSettings, error) {
	var s model.BenchmarkSettings
	err := q.QueryRow(ctx,
		`SELECT internal_weight, external_weight FROM benchmark_settings WHERE id = 1`,
	).Scan(&s.InternalWeight, &s.ExternalWeight)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return model.BenchmarkSettings{
				InternalWeight: model.DefaultInternalWeight,
				ExternalWeight: model.DefaultExternalWeight,
			}, nil
		}
		return model.BenchmarkSettings{}, eris.Wrap(err, "benchmark: load settings")
	}
	return s, nil
}
