package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mail reminders once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.dispatcher.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pairs=%d sent=%d skipped=%d failed=%d prompts=%d\n",
			report.Pairs, report.Sent, report.Skipped, report.Failed, report.Prompts)
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Complete every fully paid share",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.settler.Run(cmd.Context())
		if err != nil {
			return err
		}
		for _, b := range result.Balances {
			fmt.Fprintf(cmd.OutOrStdout(), "%d owes %d %s\n", b.Holder, b.Receiver, b.Amount.StringFixed(2))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "completed %d shares\n", len(result.Settled))
		return nil
	},
}

var importOwner int64

var importCmd = &cobra.Command{
	Use:   "import-statement <file.csv>",
	Short: "Record incoming bank transfers from a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.importer.Import(cmd.Context(), importOwner, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "lines=%d imported=%d duplicates=%d debits=%d invalid=%d matched=%d payments=%d\n",
			report.Lines, report.Imported, report.Duplicates, report.Debits, report.Invalid, report.Matched, report.Payments)
		return nil
	},
}

func init() {
	importCmd.Flags().Int64Var(&importOwner, "owner", 0, "ID of the account holder the statement belongs to")
	_ = importCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(sweepCmd, settleCmd, importCmd)
}
