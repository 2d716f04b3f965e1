package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doglog/internal/auth"
	"doglog/internal/config"
	"doglog/pkg/domain"
)

func newTokenCmd(opts *options) *cobra.Command {
	var (
		user domain.User
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development ID token (hmac auth driver only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Auth.Driver != config.AuthHMAC {
				return fmt.Errorf("token requires auth.driver %q, have %q", config.AuthHMAC, opts.cfg.Auth.Driver)
			}
			if user.UID == "" {
				return fmt.Errorf("--uid is required")
			}
			v, err := auth.NewHMACVerifier([]byte(opts.cfg.Auth.HMACSecret), opts.cfg.Auth.Issuer)
			if err != nil {
				return err
			}
			token, err := v.Issue(user, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.UID, "uid", "", "user id (token subject)")
	cmd.Flags().StringVar(&user.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&user.DisplayName, "name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
