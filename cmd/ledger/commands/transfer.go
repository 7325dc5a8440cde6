package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-ledger/cmd/ledger/output"
	"github.com/marshallshelly/pebble-ledger/cmd/ledger/tui"
	"github.com/marshallshelly/pebble-ledger/internal/ledger"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

var (
	// History flags
	historyLimit       int
	historyOffset      int
	historyInteractive bool
	historyStatus      string
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Record and inspect transfers",
	Long: `Record monetary transfers between accounts and read the ledger.

Transfers are append-only: once recorded they cannot be changed or removed.`,
}

var transferSendCmd = &cobra.Command{
	Use:   "send FROM TO AMOUNT",
	Short: "Record a transfer",
	Long: `Record AMOUNT moving from account FROM to account TO.
Accounts are given by id or name. AMOUNT is a positive decimal with at most
two fractional digits.

Examples:
  ledger transfer send 1 2 100.00
  ledger transfer send alice bob 12.50 --json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransferSend(cmd.Context(), args[0], args[1], args[2])
	},
}

var transferShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a transfer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransferShow(cmd.Context(), args[0])
	},
}

var transferHistoryCmd = &cobra.Command{
	Use:   "history ACCOUNT",
	Short: "List an account's transfers, newest first",
	Long: `List the transfers an account sent or received, newest first.

Examples:
  ledger transfer history alice
  ledger transfer history 1 --limit 50 --offset 50
  ledger transfer history alice --status completed
  ledger transfer history alice -i     # Browse interactively`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransferHistory(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(transferCmd)
	transferCmd.AddCommand(transferSendCmd, transferShowCmd, transferHistoryCmd)

	transferHistoryCmd.Flags().IntVar(&historyLimit, "limit", ledger.DefaultPageLimit, "Maximum transfers to list (max 100)")
	transferHistoryCmd.Flags().IntVar(&historyOffset, "offset", 0, "Number of newer transfers to skip")
	transferHistoryCmd.Flags().StringVar(&historyStatus, "status", "", "Only list transfers with this status (pending, completed, failed)")
	transferHistoryCmd.Flags().BoolVarP(&historyInteractive, "interactive", "i", false, "Browse history in a TUI")
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a decimal amount", ledger.ErrInvalidTransfer, s)
	}
	return amount, nil
}

func runTransferSend(ctx context.Context, from, to, rawAmount string) error {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.accounts()
	senderID, err := resolveAccount(ctx, repo, from)
	if err != nil {
		return err
	}
	receiverID, err := resolveAccount(ctx, repo, to)
	if err != nil {
		return err
	}

	transfer, err := a.ledger().Transfer(ctx, senderID, receiverID, amount)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(transfer)
	}
	output.Success("Recorded transfer %d: %s from %d to %d",
		transfer.ID, transfer.Amount.StringFixed(models.AmountScale), transfer.SenderID, transfer.ReceiverID)
	output.Muted("reference %s", transfer.Reference)
	return nil
}

func runTransferShow(ctx context.Context, rawID string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid transfer id %q", rawID)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	transfer, err := a.ledger().Get(ctx, id)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(transfer)
	}

	output.Section(fmt.Sprintf("Transfer %d", transfer.ID))
	output.Field("Reference", transfer.Reference)
	output.Field("From", transfer.SenderID)
	output.Field("To", transfer.ReceiverID)
	output.Field("Amount", transfer.Amount.StringFixed(models.AmountScale))
	output.Field("Status", output.StatusIcon(string(transfer.Status))+" "+string(transfer.Status))
	output.Field("Created", transfer.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// historyPage builds the page the history flags select. An empty status
// lists every status.
func historyPage(limit, offset int, status string) (ledger.Page, error) {
	page := ledger.Page{Limit: limit, Offset: offset}
	if status != "" {
		s, err := models.ParseTransferStatus(status)
		if err != nil {
			return ledger.Page{}, fmt.Errorf("%w: %w", ledger.ErrInvalidTransfer, err)
		}
		page.Status = s
	}
	return page, nil
}

func runTransferHistory(ctx context.Context, ref string) error {
	page, err := historyPage(historyLimit, historyOffset, historyStatus)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	accountID, err := resolveAccount(ctx, a.accounts(), ref)
	if err != nil {
		return err
	}

	svc := a.ledger()

	if historyInteractive {
		return tui.RunHistoryUI(ctx, svc, accountID, page)
	}

	transfers, err := svc.History(ctx, accountID, page)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(transfers)
	}
	if len(transfers) == 0 {
		output.Info("No transfers for account %d", accountID)
		return nil
	}

	w := tabwriter.NewWriter(output.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDIR\tCOUNTERPARTY\tAMOUNT\tSTATUS\tCREATED AT")
	_, _ = fmt.Fprintln(w, "--\t---\t------------\t------\t------\t----------")
	for _, t := range transfers {
		counterparty := t.ReceiverID
		if t.Direction(accountID) == "in" {
			counterparty = t.SenderID
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s %s\t%s\n",
			t.ID,
			t.Direction(accountID),
			counterparty,
			output.Amount(t.SignedAmount(accountID)),
			output.StatusIcon(string(t.Status)),
			t.Status,
			t.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}
