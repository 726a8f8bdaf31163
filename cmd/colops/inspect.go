package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/colops/internal/state"
	"github.com/chameleon-db/colops/pkg/engine"
	"github.com/chameleon-db/colops/pkg/engine/introspect"
)

var inspectAll bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [table]",
	Short: "List tables or the columns of a table",
	Long: `Without arguments, list the tables of the current schema.
With a table name, list its columns and their declared types.
With --all, list the columns of every table.

Columns colops converted to TEXT are marked with their original type.

Examples:
  colops inspect
  colops inspect users
  colops inspect --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx := cmd.Context()
		inspector := sess.engine.Inspector()

		manifest := &state.Manifest{}
		if sess.tracker != nil {
			if manifest, err = sess.tracker.LoadManifest(); err != nil {
				printWarning("Could not read coercions: %v", err)
				manifest = &state.Manifest{}
			}
		}

		switch {
		case len(args) == 1:
			table, err := inspector.InspectTable(ctx, args[0])
			if err != nil {
				return err
			}
			printTable(table, manifest)

		case inspectAll:
			tables, err := inspector.GetAllTables(ctx)
			if err != nil {
				return err
			}
			for i := range tables {
				printTable(&tables[i], manifest)
			}
			printInfo("%d table(s)", len(tables))

		default:
			tables, err := inspector.ListTables(ctx)
			if err != nil {
				return err
			}
			if len(tables) == 0 {
				printInfo("No tables found")
				return nil
			}
			fmt.Println()
			for _, t := range tables {
				fmt.Printf("  %s\n", t)
			}
			fmt.Println()
			printInfo("%d table(s)", len(tables))
		}

		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectAll, "all", false, "show the columns of every table")
	rootCmd.AddCommand(inspectCmd)
}

func printTable(table *introspect.TableInfo, manifest *state.Manifest) {
	fmt.Println()
	fmt.Printf("Table: %s\n\n", table.Name)
	fmt.Printf("  %-4s %-24s %-28s %-9s %s\n", "#", "Column", "Type", "Nullable", "Notes")
	fmt.Println("  ─────────────────────────────────────────────────────────────────────────")
	for _, col := range table.Columns {
		nullable := "no"
		if col.Nullable {
			nullable = "yes"
		}
		fmt.Printf("  %-4d %-24s %-28s %-9s %s\n", col.Position, col.Name, col.Type.SQL, nullable, columnNotes(table.Name, col, manifest))
	}
	fmt.Println()
}

// columnNotes explains what an operation would do to col
func columnNotes(table string, col introspect.ColumnInfo, manifest *state.Manifest) string {
	if c := manifest.Find(table, col.Name); c != nil {
		return fmt.Sprintf("was %s before %s", c.OriginalType, c.Operation)
	}
	if !engine.IsTextType(col.Type.Name) {
		return "widened to TEXT on write"
	}
	return ""
}
