package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/monitoring"
)

var checkStrict bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit reference data for gaps, overlaps and orphans",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		issues, err := monitoring.NewChecker(st.Pool()).Run(cmd.Context())
		if err != nil {
			return err
		}

		if len(issues) == 0 {
			fmt.Println("Reference data OK.")
			return nil
		}

		var warnings int
		for _, issue := range issues {
			fmt.Printf("[%s] %s: %s\n", issue.Severity, issue.Check, issue.Message)
			if issue.Severity == monitoring.SeverityWarning {
				warnings++
			}
		}
		fmt.Printf("%d finding(s), %d warning(s)\n", len(issues), warnings)

		if checkStrict && warnings > 0 {
			return eris.Errorf("check: %d warning(s) found", warnings)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "exit non-zero when warnings are found")
	rootCmd.AddCommand(checkCmd)
}
