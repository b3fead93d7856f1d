package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/service"
)

// UserCmd groups account administration.
func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userSetActiveCmd("disable", false))
	cmd.AddCommand(userSetActiveCmd("enable", true))
	return cmd
}

func userCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [email]",
		Short: "Create an account with any role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			phone, _ := cmd.Flags().GetString("phone")
			rawRole, _ := cmd.Flags().GetString("role")

			role, ok := domain.ParseRole(rawRole)
			if !ok {
				return fmt.Errorf("invalid role: %s\nValid roles: user, engineer, supervisor, admin", rawRole)
			}

			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			user, err := env.services.Auth.CreateUser(cmd.Context(), service.NewUserInput{
				Name:     name,
				Email:    args[0],
				Password: password,
				Phone:    phone,
				Role:     role,
			})
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("password", "", "initial password")
	cmd.Flags().String("phone", "", "contact phone")
	cmd.Flags().String("role", string(domain.RoleUser), "user, engineer, supervisor or admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userSetActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [user-id]",
		Short: "Set whether an account may sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.services.Auth.SetActive(cmd.Context(), operator, args[0], active); err != nil {
				return fmt.Errorf("failed to %s user: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ User %s %sd\n", args[0], use)
			return nil
		},
	}
}
