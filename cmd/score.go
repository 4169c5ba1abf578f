package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/scoring"
)

var (
	scoreUserID string
	scoreAll    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute risk scores from stored responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scoreUserID == "" && !scoreAll {
			return eris.New("score: either --user or --all is required")
		}

		ctx := cmd.Context()
		st, err := initPostgres(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		scorer := scoring.NewAggregator(st.Pool())

		if scoreUserID != "" {
			score, err := scorer.Recompute(ctx, scoreUserID)
			if err != nil {
				return err
			}
			fmt.Printf("User:  %s\nScore: %.2f\nLevel: %s\n", score.UserID, score.Score, score.RiskLevel)
			return nil
		}

		rows, err := st.Pool().Query(ctx, `SELECT id FROM users ORDER BY created_at`)
		if err != nil {
			return eris.Wrap(err, "score: list users")
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return eris.Wrap(err, "score: scan user id")
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return eris.Wrap(err, "score: iterate users")
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for _, id := range ids {
			g.Go(func() error {
				if _, err := scorer.Recompute(gctx, id); err != nil {
					return eris.Wrapf(err, "score: user %s", id)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("scores recomputed", zap.Int("users", len(ids)))
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreUserID, "user", "", "recompute a single user's score")
	scoreCmd.Flags().BoolVar(&scoreAll, "all", false, "recompute every user's score")
	rootCmd.AddCommand(scoreCmd)
}
