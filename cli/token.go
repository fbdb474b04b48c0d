package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dosada05/court-scheduler/middleware"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		secret string
		userID int
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET_KEY")
			}
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET_KEY is required")
			}
			r := middleware.Role(role)
			switch r {
			case middleware.RoleAdmin, middleware.RoleOrganizer, middleware.RolePlayer:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := middleware.NewAuthenticator(secret, opts.logger).IssueToken(userID, r, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (defaults to JWT_SECRET_KEY)")
	cmd.Flags().IntVar(&userID, "user", 1, "user_id claim")
	cmd.Flags().StringVar(&role, "role", string(middleware.RoleOrganizer), "role claim (admin, organizer, player)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
