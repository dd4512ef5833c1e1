package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reservo/internal/config"
	"reservo/internal/domain"
	grpcTransport "reservo/internal/transport/grpc"
)

// newTokenCmd mints a bearer token signed with the configured secret, for
// local testing against a server that has auth enabled.
func newTokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <actor-id>",
		Short: "Issue an HS256 bearer token for an actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("RESERVO_AUTH_JWT_SECRET is not set")
			}
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			token, err := grpcTransport.IssueToken(cfg.JWTSecret, domain.Actor{ID: args[0], Role: r}, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleClient), "actor role: CLIENT or PROVIDER")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 for no expiry")
	return cmd
}
