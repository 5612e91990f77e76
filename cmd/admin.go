package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string

	limitUserID int
	limitValue  int
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account if it does not exist",
	Long: `Create the admin account. Flags override admin.email and admin.password
from the config. An existing account is left untouched.`,
	RunE: runSeedAdmin,
}

var setLimitCmd = &cobra.Command{
	Use:   "set-limit",
	Short: "Set a user's per-minute rate limit",
	Long: `Persist a new per-minute ceiling for a user. A running server picks it
up when the user's next minute starts; use POST /api/admin/rate-limit to apply
it to the current minute.`,
	RunE: runSetLimit,
}

func init() {
	seedAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")

	setLimitCmd.Flags().IntVar(&limitUserID, "user", 0, "user id")
	setLimitCmd.Flags().IntVar(&limitValue, "limit", 0, "calls per minute (>= 1)")
	_ = setLimitCmd.MarkFlagRequired("user")
	_ = setLimitCmd.MarkFlagRequired("limit")
}

func runSeedAdmin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	email, password := a.cfg.AdminEmail, a.cfg.AdminPassword
	if adminEmail != "" {
		email = adminEmail
	}
	if adminPassword != "" {
		password = adminPassword
	}
	if password == "" {
		return fmt.Errorf("admin password is empty: pass --password or set APP_ADMIN_PASSWORD")
	}

	created, err := a.services.EnsureAdmin(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", email)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", email)
	}
	return nil
}

func runSetLimit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.services.UpdateLimit(cmd.Context(), limitUserID, limitValue); err != nil {
		return fmt.Errorf("set limit for user %d: %w", limitUserID, err)
	}
	a.log.Infow("rate_limit_updated", "target_user_id", limitUserID, "rate_limit", limitValue)
	fmt.Fprintf(cmd.OutOrStdout(), "user %d: %d calls/minute\n", limitUserID, limitValue)
	return nil
}
