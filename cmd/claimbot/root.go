package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/config"
)

// Menu entries.
const (
	menuRunPlain       = "1"
	menuCreateAccounts = "2"
	menuRunAccounts    = "3"
	menuExit           = "4"
)

// NewRootCmd creates the root command for claimbot.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claimbot",
		Short: "Claim task rewards for a list of accounts through rotating proxies",
		Long: `claimbot claims the rewards of every task of your accounts, cycle after cycle.

Each request goes through the next proxy of proxies.txt. A failed proxy is
recorded in failed_proxies.txt and the next one is tried; when every proxy
failed, the request is made directly.

Without a subcommand an interactive menu is shown:
  1. Run with token.txt (one token per line)
  2. Create new accounts (needs CAPSOLVER_API_KEY)
  3. Run with newtoken.txt (accounts, wallets are linked)
  4. Exit`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runMenuCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: ./.claimbot, ~/.config/claimbot/config.yaml or ~/.claimbot)")
	cmd.PersistentFlags().String("log-format", config.LogFormatText,
		"Log record format on stderr: text or json")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCreateAccountsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
// SIGINT and SIGTERM cancel the context shared by every command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

// runMenuCmd shows the interactive menu until the user exits, the input
// ends or the context is cancelled.
func runMenuCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx := cmd.Context()
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	for {
		printMenu(out)

		choice, err := readLine(in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch choice {
		case menuRunPlain, menuRunAccounts:
			modeCfg := *cfg
			modeCfg.UseAccounts = choice == menuRunAccounts
			if err := runClaimLoop(ctx, &modeCfg, logger, out); err != nil {
				fmt.Fprintf(out, "Run stopped: %v\n", err)
			}
		case menuCreateAccounts:
			fmt.Fprint(out, "How many accounts do you want to create? ")
			line, err := readLine(in)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			count, err := strconv.Atoi(line)
			if err != nil || count < 1 {
				fmt.Fprintln(out, "Invalid number of accounts.")
				continue
			}
			if err := runCreateAccounts(ctx, cfg, logger, in, out, count); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil
				}
				fmt.Fprintf(out, "Account creation stopped: %v\n", err)
			}
		case menuExit:
			fmt.Fprintln(out, "Exiting...")
			return nil
		default:
			fmt.Fprintln(out, "Invalid choice. Please select 1, 2, 3 or 4.")
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(out, "\nReturning to the menu in %s...\n", cfg.MenuPause)
		if err := clock.Sleep(ctx, cfg.MenuPause); err != nil {
			return nil
		}
	}
}

func printMenu(w io.Writer) {
	fmt.Fprintf(w, "\n=== %s ===\n", config.AppName)
	fmt.Fprintln(w, "1. Run with token.txt")
	fmt.Fprintln(w, "2. Create new accounts")
	fmt.Fprintln(w, "3. Run with newtoken.txt")
	fmt.Fprintln(w, "4. Exit")
	fmt.Fprint(w, "Select an option: ")
}

// readLine reads one trimmed line. A last line without newline is returned
// as is; io.EOF is only returned when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
