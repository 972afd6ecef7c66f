package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/infra"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/server"
)

// tokenCmd выписывает HS256-токен для клиента управляющего API.
// Секрет берётся из конфигурации сервиса — той же, что читает serve.
func tokenCmd() *cobra.Command {
	var user string
	var scopes []string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is not configured: control API runs unauthenticated")
			}

			token, err := server.IssueToken(cfg.Auth.Secret, user, scopes, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "local", "user id embedded in the token")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{"execute"}, "token scopes")
	return cmd
}
