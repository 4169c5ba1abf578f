package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/seed"
)

var seedDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load questions, scoring rules, risk levels and recommendations from YAML catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := seedDir
		if dir == "" {
			dir = cfg.Seed.Dir
		}

		catalog, err := seed.Load(dir)
		if err != nil {
			return err
		}

		st, err := initPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := seed.Apply(cmd.Context(), st.Pool(), catalog); err != nil {
			return err
		}

		zap.L().Info("seed applied",
			zap.String("dir", dir),
			zap.Int("questions", len(catalog.Questions)),
			zap.Int("scoring_rules", len(catalog.ScoringRules)),
			zap.Int("risk_levels", len(catalog.RiskLevels)),
			zap.Int("recommendations", len(catalog.Recommendations)),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "", "catalog directory (default from config)")
	rootCmd.AddCommand(seedCmd)
}
