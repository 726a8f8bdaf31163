package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/colops/internal/admin"
	"github.com/chameleon-db/colops/internal/journal"
)

var journalFormat string

var journalCmd = &cobra.Command{
	Use:   "journal <subcommand>",
	Short: "Query and audit the operation journal",
	Long: `View and search the operation journal (audit log).

The journal is an append-only log of all colops operations.
Stored in .colops/journal/ with daily rotation.

Subcommands:
  journal last        Show last N entries
  journal errors      Show failed operations
  journal operations  Show column operations
  journal show <id>   Show the entries of one operation`,
	Args: cobra.MinimumNArgs(1),
}

var journalLastCmd = &cobra.Command{
	Use:   "last [n]",
	Short: "Show last N journal entries",
	Long: `Display the most recent journal entries.

Examples:
  colops journal last        # Last 10 entries
  colops journal last 20     # Last 20 entries
  colops journal last 5 --format=json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := 10
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid number: %s", args[0])
			}
			limit = n
		}

		return showEntries("No journal entries found", func(l *journal.Logger) ([]*journal.Entry, error) {
			return l.Last(limit)
		})
	},
}

var journalErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show error journal entries",
	Long: `Display every failed operation in the journal.

Examples:
  colops journal errors
  colops journal errors --format=json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showEntries("", (*journal.Logger).Errors)
	},
}

var journalOperationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "Show column operation history",
	Long: `Display every column operation in the journal with its outcome.

Examples:
  colops journal operations
  colops journal operations --format=json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showEntries("No operations found", (*journal.Logger).Operations)
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <operation-id>",
	Short: "Show the entries of one operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showEntries("No entries for operation "+args[0], func(l *journal.Logger) ([]*journal.Entry, error) {
			return l.Find(args[0])
		})
	},
}

func init() {
	journalCmd.AddCommand(journalLastCmd)
	journalCmd.AddCommand(journalErrorsCmd)
	journalCmd.AddCommand(journalOperationsCmd)
	journalCmd.AddCommand(journalShowCmd)

	journalCmd.PersistentFlags().StringVar(&journalFormat, "format", "table", "output format (table|json)")

	rootCmd.AddCommand(journalCmd)
}

// showEntries opens the journal, reads entries with read and prints them.
// With no entries it prints empty, or a success line when empty is "".
func showEntries(empty string, read func(*journal.Logger) ([]*journal.Entry, error)) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	factory := admin.NewManagerFactory(workDir)
	logger, err := factory.CreateJournalLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	entries, err := read(logger)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if len(entries) == 0 {
		if empty == "" {
			printSuccess("No errors found")
		} else {
			printInfo(empty)
		}
		return nil
	}

	if journalFormat == "json" {
		return printEntriesJSON(entries)
	}
	printEntriesTable(entries)
	return nil
}

// printEntriesTable prints entries in table format
func printEntriesTable(entries []*journal.Entry) {
	fmt.Println()
	fmt.Println("Timestamp            Operation  Action      Status  Details")
	fmt.Println("──────────────────────────────────────────────────────────────────────────")

	for _, entry := range entries {
		timestamp := entry.Timestamp.Local().Format("2006-01-02 15:04:05")
		id := "-"
		if entry.OperationID != "" {
			id = shortID(entry.OperationID)
		}

		status := entry.Status
		if entry.Error != "" {
			status = errorColor.Sprint(journal.StatusError)
		}

		fmt.Printf("%-20s %-10s %-11s %-7s %s\n", timestamp, id, entry.Action, status, entryDetails(entry))
	}

	fmt.Println()
}

// entryDetails summarizes an entry on one line
func entryDetails(entry *journal.Entry) string {
	details := ""
	add := func(format string, args ...interface{}) {
		if details != "" {
			details += " "
		}
		details += fmt.Sprintf(format, args...)
	}

	if table, ok := entry.Details["table"].(string); ok {
		add("%s.%v", table, entry.Details["column"])
	}
	if rows, ok := entry.Details["affected_rows"].(float64); ok {
		add("rows=%d", int64(rows))
	}
	if coerced, _ := entry.Details["coerced"].(bool); coerced {
		if reverted, _ := entry.Details["reverted"].(bool); !reverted {
			add("type=%v->TEXT", entry.Details["original_type"])
		}
	}
	if entry.Duration > 0 {
		add("duration=%dms", entry.Duration)
	}
	if entry.Code != "" {
		add("code=%s", entry.Code)
	}
	if entry.Error != "" {
		add("error=%s", truncate(entry.Error, 50))
	}
	return details
}

// printEntriesJSON prints entries in JSON format
func printEntriesJSON(entries []*journal.Entry) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate truncates a string to max length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
