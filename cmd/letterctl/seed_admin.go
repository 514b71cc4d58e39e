package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedAdminCmd(a *app) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Ensure an admin user exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 8 {
				return fmt.Errorf("--password must be at least 8 characters")
			}
			if err := a.open(); err != nil {
				return err
			}
			user, created, err := a.users.EnsureAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", user.Email, user.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists (id %d), nothing to do\n", user.Email, user.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password, at least 8 characters (required)")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Admin display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
