package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize the OAuth application",
		Long: `Authorize the OAuth application configured in the oauth section.

Visit the URL printed by "auth url" as a nation admin, then pass the code
NationBuilder redirects with to "auth exchange". The resulting token can be
stored as nation.access_token, oauth.refresh_token and oauth.expires_at.
Quote expires_at in YAML so it stays a string.`,
	}

	cmd.AddCommand(a.authURLCmd(), a.authExchangeCmd())

	return cmd
}

func (a *app) authURLCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.client.AuthorizeURL(state)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "opaque value echoed back in the redirect")

	return cmd
}

func (a *app) authExchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.TokenCreate(cmd.Context(), args[0]); err != nil {
				return err
			}

			token := a.client.Token()
			a.logger.Info().Time("expires_at", token.ExpiresAt).Msg("token created")
			return printJSON(a.out, token)
		},
	}
}
