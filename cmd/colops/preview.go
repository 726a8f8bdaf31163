package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/colops/pkg/engine"
	"github.com/chameleon-db/colops/pkg/engine/operation"
)

var (
	previewFlags  replaceFlags
	previewLimit  int
	previewFormat string
)

var previewCmd = &cobra.Command{
	Use:   "preview <operation> <table> <column>",
	Short: "Show what an operation would change",
	Long: `Count the rows an operation would change and show a sample of them,
before and after. Nothing is written and the column type is never altered.

Operations: trim, lower, upper, replace

Examples:
  colops preview trim users email
  colops preview replace test age --find 25 --replace 35
  colops preview upper products sku --limit 20 --format json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := operation.ParseKind(args[0])
		if err != nil {
			return err
		}

		var params operation.Params
		if kind == operation.Replace {
			params = previewFlags.params()
		}
		req := buildRequest(kind, args[1:], params)
		if err := req.Validate(); err != nil {
			return err
		}

		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		limit := previewLimit
		if !cmd.Flags().Changed("limit") {
			limit = sess.cfg.Operations.PreviewLimit
		}

		ctx, cancel := sess.operationContext(cmd.Context())
		defer cancel()

		result, err := sess.engine.Preview(ctx, req, limit)
		if err != nil {
			return err
		}

		if previewFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printPreview(result)
		return nil
	},
}

func init() {
	previewFlags.bind(previewCmd)
	previewCmd.Flags().IntVar(&previewLimit, "limit", engine.DefaultPreviewLimit, "number of sample rows")
	previewCmd.Flags().StringVar(&previewFormat, "format", "table", "output format (table|json)")

	rootCmd.AddCommand(previewCmd)
}

func printPreview(result *engine.PreviewResult) {
	fmt.Println()
	fmt.Printf("Operation: %s on %s (%s)\n", result.Request.Kind, result.Request.Ref, result.ColumnType)
	fmt.Printf("Rows that would change: %d\n", result.Total)
	if result.WouldCoerce && result.Total > 0 {
		printWarning("Column would be converted to TEXT")
	}

	if len(result.Samples) == 0 {
		fmt.Println()
		return
	}

	fmt.Println()
	fmt.Printf("%-32s %s\n", "Before", "After")
	fmt.Println("─────────────────────────────────────────────────────────────────")
	for _, row := range result.Samples {
		marker := ""
		if !row.Agrees {
			marker = warningColor.Sprint("  (differs from local transform)")
		}
		fmt.Printf("%-32s %s%s\n", quote(row.Before, 30), quote(row.After, 30), marker)
	}
	if int64(len(result.Samples)) < result.Total {
		fmt.Printf("... and %d more\n", result.Total-int64(len(result.Samples)))
	}
	fmt.Println()
}

// quote renders a value with visible surrounding whitespace
func quote(s string, maxLen int) string {
	return fmt.Sprintf("%q", truncate(s, maxLen))
}
