package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"showcase/internal/middleware"
	"showcase/internal/models"
	"showcase/internal/repository"

	"github.com/spf13/cobra"
)

func promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <user_id>",
		Short: "Give a user the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRole(cmd.Context(), args[0], models.RoleAdmin)
		},
	}
}

func demoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demote <user_id>",
		Short: "Return an admin to the user role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRole(cmd.Context(), args[0], models.RoleUser)
		},
	}
}

func setRole(ctx context.Context, rawID string, role models.UserRole) error {
	id, err := parseUserID(rawID)
	if err != nil {
		return err
	}
	_, db, err := connect()
	if err != nil {
		return err
	}
	defer closeDB(db)

	users := repository.NewUserRepository(db)
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == role {
		fmt.Printf("User %s (ID: %d) already has role %s\n", user.Name, user.ID, role)
		return nil
	}
	if err := users.SetRole(ctx, id, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	fmt.Printf("User %s (ID: %d) is now %s\n", user.Name, user.ID, role)
	return nil
}

func listAdminsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List every admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			defer closeDB(db)

			admins, err := repository.NewUserRepository(db).ListByRole(cmd.Context(), models.RoleAdmin)
			if err != nil {
				return fmt.Errorf("list admins: %w", err)
			}
			if len(admins) == 0 {
				fmt.Println("No admins found")
				return nil
			}
			for _, admin := range admins {
				fmt.Printf("ID: %d | Name: %s | Email: %s\n", admin.ID, admin.Name, admin.Email)
			}
			return nil
		},
	}
}

func issueTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token <user_id>",
		Short: "Sign a bearer token for a user",
		Long:  "Sign a bearer token for an existing user. Credentials are managed outside the API, so this is how tokens are minted for operators and tests.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl <= 0 {
				return fmt.Errorf("ttl must be positive")
			}

			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer closeDB(db)

			if _, err := repository.NewUserRepository(db).GetByID(cmd.Context(), id); err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, id, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}
