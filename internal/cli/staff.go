package cli

import (
	"errors"
	"fmt"
	"os"

	"qms/clinic-queue/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// StaffCmd returns the staff command
func StaffCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(staffAddCmd(configPath))
	return cmd
}

func staffAddCmd(configPath *string) *cobra.Command {
	var input store.CreateStaffInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a staff account that can call and complete tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Email == "" || input.Password == "" {
				return errors.New("--email and --password are required")
			}
			a, err := openApp(cmd.Context(), *configPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()

			staff, err := a.store.CreateStaff(cmd.Context(), input)
			if err != nil {
				if errors.Is(err, store.ErrStaffExists) {
					return fmt.Errorf("staff %s already exists", input.Email)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", color.New(color.FgGreen).Sprint("created"), staff.Email, staff.StaffID)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "login email")
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Password, "password", "", "login password")
	return cmd
}
