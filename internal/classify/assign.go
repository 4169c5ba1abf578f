package classify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Assign computes and persists the tier for a newly registered user.
// The classification is immutable: if a row already exists for the user
// the insert is a no-op and the stored tier is returned unchanged.
func Assign(ctx context.Context, pool db.Pool, user model.User) (model.Tier, error) {
	tier := Classify(user.Sector, user.EmployeeCount, user.Revenue)

	_, err := pool.Exec(ctx,
		`INSERT INTO classifications (user_id, tier, assigned_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING`,
		user.ID, string(tier), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "classify: assign tier for user %s", user.ID)
	}

	stored, err := Lookup(ctx, pool, user.ID)
	if err != nil {
		return "", err
	}

	zap.L().Info("classify: tier assigned",
		zap.String("user_id", user.ID),
		zap.String("sector", user.Sector),
		zap.String("tier", string(stored)),
	)
	return stored, nil
}

// Lookup returns the stored tier for a user.
func Lookup(ctx context.Context, pool db.Pool, userID string) (model.Tier, error) {
	var tier string
	err := pool.QueryRow(ctx,
		`SELECT tier FROM classifications WHERE user_id = $1`, userID,
	).Scan(&tier)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return "", eris.Wrapf(model.ErrNotFound, "classify: no classification for user %s", userID)
		}
		return "", eris.Wrapf(err, "classify: lookup tier for user %s", userID)
	}
	return model.Tier(tier), nil
}
