package main

import (
	"fmt"

	"github.com/dangerclosesec/huddle/internal/auth"
	"github.com/dangerclosesec/huddle/internal/config"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/spf13/cobra"
)

var displayName string

func init() {
	usersAddCmd.Flags().StringVarP(&displayName, "name", "n", "", "Display name")
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersTokenCmd)
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var usersAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Create a user and print an API token for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := setupDatabase(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("setting up database: %w", err)
		}

		users := service.NewUserService(repository.NewUserRepository(db))
		user, err := users.Register(cmd.Context(), service.RegisterInput{Email: args[0], DisplayName: displayName})
		if err != nil {
			return err
		}

		token, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod).Generate(user.ID, user.Email)
		if err != nil {
			return fmt.Errorf("generating token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "id:    %s\nslug:  %s\ntoken: %s\n", user.ID, user.Slug, token)
		return nil
	},
}

var usersTokenCmd = &cobra.Command{
	Use:   "token [email]",
	Short: "Print a fresh API token for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := setupDatabase(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("setting up database: %w", err)
		}

		user, err := service.NewUserService(repository.NewUserRepository(db)).GetByEmail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		token, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod).Generate(user.ID, user.Email)
		if err != nil {
			return fmt.Errorf("generating token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
