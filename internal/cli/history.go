package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCount int

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "How many recent transfers to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent executed transfers, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		records := a.vault.GetHistory(historyCount)
		if len(records) == 0 {
			fmt.Println("No transfers yet.")
			return nil
		}
		for _, rec := range records {
			memo := rec.Memo
			if memo == "" {
				memo = "-"
			}
			fmt.Printf("#%-6d %-20s %10s  %-30s %s\n",
				rec.Nonce, rec.Recipient, cents(rec.Amount), memo, humanize.Time(rec.Timestamp))
		}
		return nil
	},
}
