package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"whorl/internal/identity"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and check persistent-identity tokens",
	}
	tokenCmd.AddCommand(newTokenSignCommand(ctx))
	tokenCmd.AddCommand(newTokenCheckCommand(ctx))
	return tokenCmd
}

func newTokenSignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <visitor-id>",
		Short: "Mint a signed identity token for a visitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := buildSigner(ctx)
			if err != nil {
				return err
			}
			visitorID := strings.TrimSpace(args[0])
			if visitorID == "" {
				return fmt.Errorf("visitor id is required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), signer.Sign(visitorID))
			return nil
		},
	}
}

func newTokenCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check <token>",
		Short: "Validate a presented identity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := buildSigner(ctx)
			if err != nil {
				return err
			}
			validation := signer.Validate(strings.TrimSpace(args[0]))
			if asJSON {
				return writeJSON(cmd, tokenCheckResult{
					Valid:          validation.Valid,
					VisitorID:      validation.VisitorID,
					NeedsRefresh:   validation.NeedsRefresh,
					RefreshedToken: validation.RefreshedToken,
				})
			}
			if !validation.Valid {
				return fmt.Errorf("token is invalid or expired")
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			fmt.Fprintln(stdout, renderStatusLine("Token", statusOK, "Valid", colorize))
			fmt.Fprintln(stdout, renderStatusLine("Visitor", statusInfo, validation.VisitorID, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Needs refresh", statusInfo, yesNo(validation.NeedsRefresh), colorize))
			if validation.RefreshedToken != "" {
				fmt.Fprintln(stdout, renderStatusLine("Refreshed token", statusInfo, validation.RefreshedToken, colorize))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the validation result as JSON")
	return cmd
}

type tokenCheckResult struct {
	Valid          bool   `json:"valid"`
	VisitorID      string `json:"visitorId,omitempty"`
	NeedsRefresh   bool   `json:"needsRefresh"`
	RefreshedToken string `json:"refreshedToken,omitempty"`
}

// buildSigner loads config and constructs the token signer. The secret itself
// never reaches command output.
func buildSigner(ctx *commandContext) (*identity.Signer, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireSecret(); err != nil {
		return nil, err
	}
	return identity.NewSigner(cfg.Identity.Secret, cfg.TokenMaxAge()), nil
}
