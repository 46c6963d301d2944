package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"forum/common"
	"forum/database"
	"forum/server"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate, seed on first run, and serve the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if port != 0 {
			cfg.Port = port
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		db, err := common.ConnectDb(cfg)
		if err != nil {
			return err
		}

		if err := database.RunMigrations(db); err != nil {
			return err
		}
		if err := database.Seed(db, cfg.SeedInviteCodes, cfg.SeedAdminAccounts); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:    ":" + strconv.Itoa(cfg.Port),
			Handler: server.NewRouter(db, cfg),
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down server: %v", err)
			}
		}()

		log.Printf("Starting server on port %d...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Println("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Server port (overrides PORT)")
}
