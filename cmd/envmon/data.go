package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the reference data set into empty storage",
		Long: "Seeding runs automatically before every command; this command reports " +
			"what the run for this invocation created.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, a.seeded)
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check stored data for orphan projects and stale client counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.seeder.ValidateData(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.IsValid {
				return fmt.Errorf("data validation found %d orphan project(s)", len(report.OrphanProjects))
			}
			return nil
		},
	}
}
