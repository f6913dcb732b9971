package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"Bt1Zen/config"
	"Bt1Zen/core/audiocache"
	"Bt1Zen/db"
	"Bt1Zen/logger"
	"Bt1Zen/repository"
	"Bt1Zen/storage"

	"github.com/spf13/cobra"
)

var cleanupMaxAgeDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict expired generated-audio entries from the durable cache",
	Long: `Removes generated-audio entries whose generation time is older than the
retention window, deleting both the MySQL metadata and the MinIO payloads.
Meant to be run from cron; the server also exposes the same operation via
POST /api/cache/cleanup.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
		})

		if err := storage.InitMinio(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize MinIO: %v\n", err)
			os.Exit(1)
		}
		if err := db.ConnectDB(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		defer db.DB.Close()
		if err := db.InitDB(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize database schema: %v\n", err)
			os.Exit(1)
		}

		maxAge := cleanupMaxAgeDays
		if maxAge <= 0 {
			maxAge = cfg.CacheMaxAgeDays
		}

		store := audiocache.NewMySQLMinioStore(
			repository.NewMySQLAudioCacheRepository(),
			storage.NewAudioObjectStore(storage.GetMinioClient(), cfg.MinioBucket),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := time.Now().AddDate(0, 0, -maxAge)
		removed, err := store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Removed %d generated-audio entries older than %d days\n", removed, maxAge)
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupMaxAgeDays, "max-age-days", 0,
		"retention window in days (defaults to CACHE_MAX_AGE_DAYS)")
	rootCmd.AddCommand(cleanupCmd)
}
