package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/claimbot/internal/account"
	"github.com/nao1215/claimbot/internal/api"
	"github.com/nao1215/claimbot/internal/captcha"
	"github.com/nao1215/claimbot/internal/config"
	"github.com/nao1215/claimbot/internal/store"
)

// NewCreateAccountsCmd creates the create-accounts command.
func NewCreateAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-accounts",
		Short: "Register new accounts and append them to the account store",
		Long: `Create-accounts asks for an email and a password for each account, solves
the registration captcha and registers the account with the configured
referral code. Every created account is appended to newtoken.txt.

The captcha service key is read from the CAPSOLVER_API_KEY environment
variable.

Examples:
  # Create three accounts
  CAPSOLVER_API_KEY=CAP-... claimbot create-accounts -n 3`,
		Args: cobra.NoArgs,
		RunE: runCreateAccountsCmd,
	}

	cmd.Flags().IntP("count", "n", 1, "Number of accounts to create")

	return cmd
}

// runCreateAccountsCmd executes the create-accounts command.
func runCreateAccountsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)

	err = runCreateAccounts(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout(), count)
	if err != nil && !isCancelled(err) {
		return err
	}
	return nil
}

// runCreateAccounts registers count accounts, prompting on in and out.
// Registration requests are always made directly.
func runCreateAccounts(ctx context.Context, cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer, count int) error {
	if err := cfg.ValidateAccountCreation(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	solver := captcha.NewSolver(captcha.Options{
		BaseURL: cfg.CaptchaBaseURL,
		APIKey:  cfg.CaptchaAPIKey,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	registrar := api.New(apiOptions(cfg, logger), "", nil)
	accounts := store.NewAccountStore(cfg.AccountsFile, logger)

	creator := account.NewCreator(registrar, solver, accounts,
		account.WithIO(in, out),
		account.WithLogger(logger),
		account.WithDelay(cfg.AccountDelay),
		account.WithCaptchaTarget(cfg.SiteKey, cfg.PageURL),
		account.WithReferralCode(cfg.ReferralCode),
	)

	_, err := creator.Create(ctx, count)
	return err
}
