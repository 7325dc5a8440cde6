package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/marshallshelly/pebble-ledger/cmd/ledger/output"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

// SecretEnvVar supplies the account secret when --secret is not given.
const SecretEnvVar = "LEDGER_ACCOUNT_SECRET"

var (
	// Account flags
	accountSecret string
	searchLimit   int
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage ledger accounts",
	Long: `Register and inspect the accounts transfers move between.

Accounts are never deleted; deactivate them instead.`,
}

var accountCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a new account",
	Long: `Register a new active account. The secret is stored as a bcrypt hash.

Examples:
  ledger account create alice --secret s3cret
  LEDGER_ACCOUNT_SECRET=s3cret ledger account create alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountCreate(cmd.Context(), args[0])
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show ID|NAME",
	Short: "Show an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountShow(cmd.Context(), args[0])
	},
}

var accountSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search active accounts by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountSearch(cmd.Context(), args[0])
	},
}

var accountSetSecretCmd = &cobra.Command{
	Use:   "set-secret ID|NAME",
	Short: "Replace an account's secret",
	Long: `Replace the stored secret of an account with the bcrypt hash of a new one.

Examples:
  ledger account set-secret alice --secret n3w-s3cret
  LEDGER_ACCOUNT_SECRET=n3w-s3cret ledger account set-secret 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountSetSecret(cmd.Context(), args[0])
	},
}

var accountActivateCmd = &cobra.Command{
	Use:   "activate ID|NAME",
	Short: "Reactivate an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountSetActive(cmd.Context(), args[0], true)
	},
}

var accountDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID|NAME",
	Short: "Deactivate an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountSetActive(cmd.Context(), args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd, accountShowCmd, accountSearchCmd, accountSetSecretCmd, accountActivateCmd, accountDeactivateCmd)

	accountCreateCmd.Flags().StringVar(&accountSecret, "secret", "", "Account secret (or set "+SecretEnvVar+")")
	accountSetSecretCmd.Flags().StringVar(&accountSecret, "secret", "", "New account secret (or set "+SecretEnvVar+")")
	accountSearchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results (default 20, max 100)")
}

func hashSecret(secret string) (string, error) {
	if secret == "" {
		secret = os.Getenv(SecretEnvVar)
	}
	if secret == "" {
		return "", fmt.Errorf("a secret is required: pass --secret or set %s", SecretEnvVar)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

func runAccountCreate(ctx context.Context, name string) error {
	hash, err := hashSecret(accountSecret)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	acct, err := a.accounts().Create(ctx, name, hash)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(acct)
	}
	output.Success("Created account %d (%s)", acct.ID, acct.Name)
	return nil
}

func runAccountShow(ctx context.Context, ref string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	acct, err := findAccount(ctx, a.accounts(), ref)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(acct)
	}
	printAccount(acct)
	return nil
}

func runAccountSearch(ctx context.Context, query string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.accounts().Search(ctx, query, searchLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(accounts)
	}
	if len(accounts) == 0 {
		output.Info("No accounts match %q", query)
		return nil
	}

	w := tabwriter.NewWriter(output.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCREATED AT")
	_, _ = fmt.Fprintln(w, "--\t----\t----------")
	for _, acct := range accounts {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", acct.ID, acct.Name, acct.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runAccountSetSecret(ctx context.Context, ref string) error {
	hash, err := hashSecret(accountSecret)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.accounts()
	id, err := resolveAccount(ctx, repo, ref)
	if err != nil {
		return err
	}

	acct, err := repo.UpdateSecret(ctx, id, hash)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(acct)
	}
	output.Success("Updated secret for account %d (%s)", acct.ID, acct.Name)
	return nil
}

func runAccountSetActive(ctx context.Context, ref string, active bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.accounts()
	id, err := resolveAccount(ctx, repo, ref)
	if err != nil {
		return err
	}

	acct, err := repo.SetActive(ctx, id, active)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(acct)
	}
	if active {
		output.Success("Activated account %d (%s)", acct.ID, acct.Name)
	} else {
		output.Warning("Deactivated account %d (%s)", acct.ID, acct.Name)
	}
	return nil
}

func printAccount(acct *models.Account) {
	status := "inactive"
	if acct.Active {
		status = "active"
	}

	output.Section("Account " + acct.Name)
	output.Field("ID", acct.ID)
	output.Field("Name", acct.Name)
	output.Field("Status", output.StatusIcon(status)+" "+status)
	output.Field("Created", acct.CreatedAt.Format("2006-01-02 15:04:05"))
}
