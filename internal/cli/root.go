package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd returns the clinic-queue command tree.
func RootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "clinic-queue",
		Short:         "Walk-in patient queue for a single clinic",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `clinic-queue issues sequential daily queue numbers to visitors, lets staff
call and complete them, and reports daily and monthly counts.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")

	rootCmd.AddCommand(ServeCmd(&configPath))
	rootCmd.AddCommand(MigrateCmd(&configPath))
	rootCmd.AddCommand(ReportCmd(&configPath))
	rootCmd.AddCommand(StaffCmd(&configPath))
	return rootCmd
}
