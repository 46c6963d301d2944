package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"forum/common"
)

var (
	// Global flags; empty values leave the environment setting in place.
	dbURL    string
	dbDriver string
)

var rootCmd = &cobra.Command{
	Use:   "forum",
	Short: "Invite-only forum API server",
	Long: `forum serves a JSON API for an invite-only discussion board:
registration with single-use invite codes, user and admin login,
posts, comments, and likes.

Configuration comes from the environment (optionally a .env file);
flags override it.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL or sqlite file (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Database driver: sqlite or postgres (overrides DB_DRIVER)")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, invitesCmd, repairCmd)
}

func loadConfig() (common.Config, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return common.Config{}, err
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if dbDriver != "" {
		cfg.DatabaseDriver = dbDriver
	}
	return cfg, nil
}

// openStore connects using the store settings only; commands that do not
// issue tokens do not need JWT_SECRET.
func openStore() (common.Config, *gorm.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	db, err := common.ConnectDb(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}
