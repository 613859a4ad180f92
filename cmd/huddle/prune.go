package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dangerclosesec/huddle/internal/config"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/spf13/cobra"
)

var (
	pruneBatchSize int
	pruneDryRun    bool
	pruneTimeout   time.Duration
)

func init() {
	pruneCmd.Flags().IntVar(&pruneBatchSize, "batch-size", 100, "Number of invitations to delete per batch")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be deleted without making changes")
	pruneCmd.Flags().DurationVar(&pruneTimeout, "timeout", 10*time.Minute, "Maximum time to run")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune-invitations",
	Short: "Delete team invitations that have expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), pruneTimeout)
		defer cancel()

		cfg := config.Load()
		db, err := setupDatabase(ctx, cfg)
		if err != nil {
			return fmt.Errorf("setting up database: %w", err)
		}

		// Pruning never resolves teams, users or permissions.
		invitations := service.NewInvitationService(
			repository.NewInvitationRepository(db), nil, nil, nil, nil, nil, cfg.BaseURL, cfg.Invitation.TTL,
		)
		count, err := invitations.PruneExpired(ctx, pruneBatchSize, pruneDryRun)
		if err != nil {
			return fmt.Errorf("pruning invitations: %w", err)
		}

		if pruneDryRun {
			slog.Info("dry run: expired invitations found", "count", count)
		} else {
			slog.Info("expired invitations deleted", "count", count)
		}
		return nil
	},
}
