package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/colops/internal/admin"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status and coerced columns",
	Long: `Show the .colops/ workspace, the last operation, today's journal
summary and every column colops left as TEXT.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}

		factory := admin.NewManagerFactory(workDir)
		status, err := factory.Status()
		if err != nil {
			return err
		}
		if status == "not_initialized" {
			printWarning("Not initialized. Run 'colops init' first.")
			return nil
		}

		fmt.Println()
		fmt.Print(status)

		tracker, err := factory.CreateStateTracker()
		if err != nil {
			return fmt.Errorf("failed to initialize state tracker: %w", err)
		}

		current, err := tracker.LoadCurrent()
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		if current.LastOperation != "" {
			fmt.Printf("  Last operation: %s at %s (%d total)\n",
				shortID(current.LastOperation), current.LastOperationAt.Local().Format("2006-01-02 15:04:05"), current.Operations)
		}

		logger, err := factory.CreateJournalLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize journal: %w", err)
		}
		index, err := logger.LoadIndex()
		if err != nil {
			return fmt.Errorf("failed to read journal index: %w", err)
		}
		if index.Entries > 0 {
			fmt.Printf("  Journal today: %d entries (%d ok, %d noop, %d error)\n",
				index.Entries, index.ByStatus["ok"], index.ByStatus["noop"], index.ByStatus["error"])
		}

		coercions, err := tracker.Coercions()
		if err != nil {
			return fmt.Errorf("failed to read coercions: %w", err)
		}

		fmt.Println()
		if len(coercions) == 0 {
			printSuccess("No columns converted to TEXT")
			return nil
		}

		fmt.Println("Columns converted to TEXT:")
		fmt.Printf("  %-32s %-20s %-10s %-8s %s\n", "Column", "Original type", "Operation", "Rows", "When")
		for _, c := range coercions {
			fmt.Printf("  %-32s %-20s %-10s %-8d %s\n",
				c.Table+"."+c.Column, c.OriginalType, c.Operation, c.AffectedRows, c.CoercedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Println()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
