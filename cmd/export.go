package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/export"
)

var (
	exportSector string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a sector assessment report as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		output := exportOutput
		if output == "" {
			output = strings.ToLower(strings.ReplaceAll(exportSector, " ", "-")) + ".xlsx"
		}

		if err := export.NewReporter(st.Pool()).Write(cmd.Context(), exportSector, output); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSector, "sector", "", "sector to report on")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output path (default <sector>.xlsx)")
	exportCmd.MarkFlagRequired("sector") //nolint:errcheck
	rootCmd.AddCommand(exportCmd)
}
