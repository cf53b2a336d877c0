package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"portal/internal/claims"
	"portal/internal/guard"
)

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and create session tokens",
	}
	cmd.AddCommand(tokenDecodeCommand(), tokenMintCommand())
	return cmd
}

func tokenDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Print the claims of a token and how the portal would treat it",
		Long: "Print the claims of a token and how the portal would treat it.\n\n" +
			"The signature is not verified; the output shows what the portal's page\n" +
			"guard sees, not whether the backend accepts the token.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decodeToken(cmd.OutOrStdout(), args[0], guard.New(nil))
		},
	}
}

func decodeToken(out io.Writer, token string, g *guard.Guard) error {
	c, err := claims.Decode(token)
	if err != nil {
		return err
	}

	role := c.Role
	if role == "" {
		role = "(none)"
	}
	expires := "never"
	if exp, ok := c.Expiry(); ok {
		expires = strconv.FormatFloat(exp, 'g', -1, 64)
		if c.ExpiresAt != nil {
			expires = c.ExpiresAt.UTC().Format(time.RFC3339)
		}
	}

	fmt.Fprintf(out, "role:     %s\n", role)
	if id := c.AccountID(); id != "" {
		fmt.Fprintf(out, "user:     %s\n", id)
	}
	fmt.Fprintf(out, "expires:  %s\n", expires)
	for _, access := range []guard.Access{guard.Member, guard.Elevated} {
		d := g.Check(token, true, access)
		verdict := string(d.Outcome)
		if !d.Allowed() {
			verdict += " -> " + d.Redirect
		}
		fmt.Fprintf(out, "%-9s %s\n", access.String()+":", verdict)
	}
	return nil
}

func tokenMintCommand() *cobra.Command {
	var (
		role   string
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Create an unsigned development token",
		Long: "Create an unsigned development token.\n\n" +
			"The token has the shape the portal expects but carries no signature;\n" +
			"a real backend rejects it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := claims.New(role, ttl, time.Now())
			c.UserID = userID
			token, err := claims.Mint(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&role, "role", "user", "role claim")
	flags.StringVar(&userID, "user-id", "", "user_id claim")
	flags.DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime; negative values mint an expired token")
	return cmd
}
