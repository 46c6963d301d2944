package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"forum/database"
)

var inviteLimit int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openStore()
		if err != nil {
			return err
		}
		return database.RunMigrations(db)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed invite codes and admin accounts into empty tables",
	Long: `seed generates SEED_INVITE_CODES invite codes and SEED_ADMIN_ACCOUNTS
admin accounts. Each table is only filled while it is empty. Generated
admin passwords are printed once and stored hashed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openStore()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(db); err != nil {
			return err
		}
		return database.Seed(db, cfg.SeedInviteCodes, cfg.SeedAdminAccounts)
	},
}

var invitesCmd = &cobra.Command{
	Use:   "invites",
	Short: "Print invite codes that have not been redeemed",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openStore()
		if err != nil {
			return err
		}
		codes, err := database.UnusedInviteCodes(db, inviteLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, code := range codes {
			fmt.Fprintln(out, code.Code)
		}
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair-counters",
	Short: "Recompute like and comment counters from their source rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openStore()
		if err != nil {
			return err
		}
		return database.RepairCounters(db)
	},
}

func init() {
	invitesCmd.Flags().IntVarP(&inviteLimit, "limit", "n", 10, "Number of codes to print")
}
