package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"downpour/app/config"
	"downpour/app/database"
	"downpour/app/logger"
	"downpour/app/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the download server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		log := logger.New(cfg.Log)
		defer log.Sync()

		if err := database.Init(cfg, log); err != nil {
			log.Fatalf("database init failed: %v", err)
		}

		srv := server.New(cfg, log)

		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server start failed: %v", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutdown signal received, stopping server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("server shutdown failed: %v", err)
		}
		log.Info("server exited")
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
