package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"ullas/internal/config"
	"ullas/internal/database"
	"ullas/internal/kvstore"
	"ullas/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ullas-backup",
		Short:         "Export and import ULLAS learners and progress",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(exportCmd(), importCmd())
	return cmd
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of users and game progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			backupService, cleanup, err := openBackupService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()

			if err := backupService.ExportToWriter(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Printf("Backup written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func importCmd() *cobra.Command {
	var (
		input string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace all users and progress with the contents of a backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm("This replaces every existing user and their progress. Continue?") {
				fmt.Println("Import cancelled")
				return nil
			}

			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open backup: %w", err)
			}
			defer f.Close()

			backupService, cleanup, err := openBackupService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := backupService.ImportFromReader(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d users and %d progress entries\n", stats.Users, stats.Entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Backup file to import")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// openBackupService connects to the configured database and progress backend
func openBackupService(ctx context.Context) (*service.BackupService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var (
		kv  kvstore.Store
		rdb *redis.Client
	)
	switch cfg.ProgressBackend {
	case "redis":
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			db.Close()
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		kv = kvstore.NewRedis(rdb, "ullas:")
	case "memory":
		db.Close()
		return nil, nil, fmt.Errorf("the memory progress backend has nothing to back up")
	default:
		kv = kvstore.NewSQL(db)
	}

	cleanup := func() {
		if rdb != nil {
			rdb.Close()
		}
		db.Close()
	}
	return service.NewBackupService(db, kv, logger), cleanup, nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
