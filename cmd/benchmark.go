package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/benchmark"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Manage sector benchmarks and blend weights",
}

var (
	benchSector        string
	benchScore         float64
	benchSource        string
	benchJustification string
)

var benchmarkSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a sector's external benchmark score and reblend",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		bm, err := benchmark.NewBlender(st.Pool()).SetExternal(
			cmd.Context(), benchSector, benchScore, benchSource, benchJustification)
		if err != nil {
			return err
		}

		fmt.Printf("Sector:   %s\nExternal: %.2f\n", bm.Sector, bm.ExternalScore)
		if bm.BlendedScore != nil {
			fmt.Printf("Blended:  %.2f\n", *bm.BlendedScore)
		} else {
			fmt.Println("Blended:  n/a (no scored users in sector)")
		}
		return nil
	},
}

var benchmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sector benchmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		benchmarks, err := benchmark.NewBlender(st.Pool()).List(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%-30s %12s %12s %12s\n", "Sector", "Internal", "External", "Blended")
		for _, bm := range benchmarks {
			fmt.Printf("%-30s %12s %12.2f %12s\n",
				bm.Sector, floatCell(bm.InternalAvg), bm.ExternalScore, floatCell(bm.BlendedScore))
		}
		return nil
	},
}

var (
	weightInternal float64
	weightExternal float64
)

var benchmarkWeightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Update blend weights and reblend every sector",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		blender := benchmark.NewBlender(st.Pool())
		settings, err := blender.Settings(cmd.Context())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("internal") {
			settings.InternalWeight = weightInternal
		}
		if cmd.Flags().Changed("external") {
			settings.ExternalWeight = weightExternal
		}

		if err := blender.UpdateSettings(cmd.Context(), settings); err != nil {
			return err
		}
		if err := blender.RecomputeAll(cmd.Context()); err != nil {
			return err
		}

		zap.L().Info("benchmark weights updated",
			zap.Float64("internal", settings.InternalWeight),
			zap.Float64("external", settings.ExternalWeight),
		)
		return nil
	},
}

func floatCell(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func init() {
	benchmarkSetCmd.Flags().StringVar(&benchSector, "sector", "", "sector name")
	benchmarkSetCmd.Flags().Float64Var(&benchScore, "score", 0, "external benchmark score")
	benchmarkSetCmd.Flags().StringVar(&benchSource, "source", "", "source reference for the external score")
	benchmarkSetCmd.Flags().StringVar(&benchJustification, "justification", "", "why this score applies")
	benchmarkSetCmd.MarkFlagRequired("sector") //nolint:errcheck
	benchmarkSetCmd.MarkFlagRequired("score")  //nolint:errcheck

	benchmarkWeightsCmd.Flags().Float64Var(&weightInternal, "internal", 0, "internal weight percentage")
	benchmarkWeightsCmd.Flags().Float64Var(&weightExternal, "external", 0, "external weight percentage")

	benchmarkCmd.AddCommand(benchmarkSetCmd, benchmarkListCmd, benchmarkWeightsCmd)
	rootCmd.AddCommand(benchmarkCmd)
}
