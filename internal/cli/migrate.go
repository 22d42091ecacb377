package cli

import (
	"errors"
	"fmt"
	"os"

	"qms/clinic-queue/migrations"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()
			if a.pool == nil {
				return errors.New("migrate requires the postgres store driver")
			}

			if err := migrations.Apply(cmd.Context(), a.pool); err != nil {
				return err
			}
			names, err := migrations.Names()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("applied"), name)
			}
			return nil
		},
	}
}
