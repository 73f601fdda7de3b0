package cli

import (
	"fmt"
	"time"

	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/infra/identity"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a signed identity token for local development.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		id  domain.Identity
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development identity token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if id.UID == "" {
				return fmt.Errorf("--uid is required")
			}
			verifier, err := identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience)
			if err != nil {
				return err
			}
			token, err := verifier.Issue(id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.UID, "uid", "", "user id (token subject)")
	cmd.Flags().StringVar(&id.DisplayName, "name", "", "display name claim")
	cmd.Flags().StringVar(&id.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&id.Provider, "provider", "dev", "sign-in provider claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
