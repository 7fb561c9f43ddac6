package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"giveaway/config"
	"giveaway/models"
	"giveaway/service"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	adminNote       string
	auditOutput     string
	auditGiveawayID int64
	auditUserID     string
	auditAction     string
	auditFrom       string
	auditTo         string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator commands, run as the system actor",
}

var adminCreditCmd = &cobra.Command{
	Use:   "credit <user-id> <amount>",
	Short: "Credit a user's fiat balance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return adjustBalance(cmd, args[0], args[1], true)
	},
}

var adminDebitCmd = &cobra.Command{
	Use:   "debit <user-id> <amount>",
	Short: "Debit a user's fiat balance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return adjustBalance(cmd, args[0], args[1], false)
	},
}

var adminSetRoleCmd = &cobra.Command{
	Use:   "set-role <user-id> <admin|user>",
	Short: "Grant or revoke the admin capability",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer a.close()

		changed, err := a.access.SetUserRole(cmd.Context(), service.SystemActorID, args[0], models.Role(args[1]))
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already has role %s\n", args[0], args[1])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], args[1])
		return nil
	},
}

var adminAuditExportCmd = &cobra.Command{
	Use:   "audit-export",
	Short: "Export the audit log as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := auditFilterFromFlags()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer a.close()

		var out io.Writer = cmd.OutOrStdout()
		if auditOutput != "" && auditOutput != "-" {
			file, err := os.Create(auditOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", auditOutput, err)
			}
			defer file.Close()
			out = file
		}

		rows, err := a.auditLog.ExportCSV(cmd.Context(), out, filter)
		if err != nil {
			return err
		}
		log.WithField("rows", rows).Info("Exported audit log")
		return nil
	},
}

func init() {
	adminCmd.PersistentFlags().StringVar(&adminNote, "note", "", "reason recorded in the audit log")

	adminAuditExportCmd.Flags().StringVarP(&auditOutput, "output", "o", "-", "file to write, - for stdout")
	adminAuditExportCmd.Flags().Int64Var(&auditGiveawayID, "giveaway", 0, "only entries for this giveaway")
	adminAuditExportCmd.Flags().StringVar(&auditUserID, "user", "", "only entries where the user is actor or target")
	adminAuditExportCmd.Flags().StringVar(&auditAction, "action", "", "only entries with this action")
	adminAuditExportCmd.Flags().StringVar(&auditFrom, "from", "", "RFC3339 lower bound")
	adminAuditExportCmd.Flags().StringVar(&auditTo, "to", "", "RFC3339 upper bound")

	adminCmd.AddCommand(adminCreditCmd, adminDebitCmd, adminSetRoleCmd, adminAuditExportCmd)
}

func adjustBalance(cmd *cobra.Command, userID, rawAmount string, credit bool) error {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), config.Get())
	if err != nil {
		return err
	}
	defer a.close()

	var entry *models.LedgerEntry
	if credit {
		entry, err = a.wallets.AdminCredit(cmd.Context(), service.SystemActorID, userID, amount, adminNote)
	} else {
		entry, err = a.wallets.AdminDebit(cmd.Context(), service.SystemActorID, userID, amount, adminNote)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Entry %d: %s %s, balance now %s\n",
		entry.ID, entry.Reason, entry.Amount.StringFixed(2), entry.BalanceAfter.StringFixed(2))
	return nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", raw)
	}
	return amount, nil
}

func auditFilterFromFlags() (models.AuditFilter, error) {
	filter := models.AuditFilter{
		UserID: auditUserID,
		Action: models.AuditAction(auditAction),
	}
	if auditGiveawayID > 0 {
		id := auditGiveawayID
		filter.GiveawayID = &id
	}
	if auditFrom != "" {
		from, err := time.Parse(time.RFC3339, auditFrom)
		if err != nil {
			return filter, fmt.Errorf("invalid --from: %w", err)
		}
		filter.From = &from
	}
	if auditTo != "" {
		to, err := time.Parse(time.RFC3339, auditTo)
		if err != nil {
			return filter, fmt.Errorf("invalid --to: %w", err)
		}
		filter.To = &to
	}
	return filter, nil
}
