package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chameleon-db/colops/internal/journal"
	"github.com/chameleon-db/colops/internal/state"
	"github.com/chameleon-db/colops/pkg/engine"
	"github.com/chameleon-db/colops/pkg/engine/operation"
)

// replaceFlags holds the flags shared by replace and preview
type replaceFlags struct {
	find          string
	replace       string
	caseSensitive bool
	wholeWord     bool
}

func (f *replaceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.find, "find", "", "text to search for (literal)")
	cmd.Flags().StringVar(&f.replace, "replace", "", "replacement text")
	cmd.Flags().BoolVar(&f.caseSensitive, "case-sensitive", false, "match case exactly")
	cmd.Flags().BoolVar(&f.wholeWord, "whole-word", false, "match whole words only")
}

func (f *replaceFlags) params() operation.Params {
	return operation.Params{
		Find:          f.find,
		Replace:       f.replace,
		CaseSensitive: f.caseSensitive,
		WholeWord:     f.wholeWord,
	}
}

var (
	applyFlags replaceFlags
	assumeYes  bool
)

// buildRequest assembles a request from positional args
func buildRequest(kind operation.Kind, args []string, params operation.Params) engine.Request {
	return engine.Request{
		Ref:    engine.ColumnRef{Table: args[0], Column: args[1]},
		Kind:   kind,
		Params: params,
	}
}

func newOperationCmd(kind operation.Kind, use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <table> <column>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params operation.Params
			if kind == operation.Replace {
				params = applyFlags.params()
			}
			return runOperation(cmd, buildRequest(kind, args, params))
		},
	}
}

var (
	trimCmd = newOperationCmd(operation.Trim, "trim",
		"Remove leading and trailing whitespace",
		`Trim spaces, tabs and newlines from both ends of every value.

Examples:
  colops trim users email`)

	lowerCmd = newOperationCmd(operation.Lowercase, "lower",
		"Convert values to lowercase",
		`Lowercase every value of the column.

Examples:
  colops lower users email`)

	upperCmd = newOperationCmd(operation.Uppercase, "upper",
		"Convert values to uppercase",
		`Uppercase every value of the column.

Examples:
  colops upper products sku`)

	replaceCmd = newOperationCmd(operation.Replace, "replace",
		"Replace text in every value",
		`Replace every occurrence of --find with --replace.

--find is matched literally, case-insensitive unless --case-sensitive.
--whole-word only matches occurrences between word boundaries.
A non-text column (e.g. INTEGER) is widened to TEXT; it is restored
when no row changes.

Examples:
  colops replace users city --find "NYC" --replace "New York"
  colops replace test age --find 25 --replace 35
  colops replace posts body --find cat --replace dog --whole-word`)
)

func init() {
	lowerCmd.Aliases = []string{"lowercase"}
	upperCmd.Aliases = []string{"uppercase"}

	applyFlags.bind(replaceCmd)
	_ = replaceCmd.MarkFlagRequired("find")

	for _, cmd := range []*cobra.Command{trimCmd, lowerCmd, upperCmd, replaceCmd} {
		cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask before widening a column to TEXT")
		rootCmd.AddCommand(cmd)
	}
}

func runOperation(cmd *cobra.Command, req engine.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := sess.operationContext(cmd.Context())
	defer cancel()

	if sess.cfg.Operations.ConfirmCoercion && !assumeYes {
		proceed, err := confirmCoercion(ctx, sess.engine, req, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !proceed {
			printInfo("Aborted, nothing changed")
			return nil
		}
	}

	printInfo("Running %s on %s...", req.Kind, req.Ref)
	result, opErr := sess.engine.PerformOperation(ctx, req)

	sess.record(req, result, opErr)

	if opErr != nil {
		if result != nil && result.TypeChanged() {
			printWarning("%s was left as TEXT (was %s)", req.Ref, result.OriginalType)
		}
		return opErr
	}

	switch {
	case result.AffectedRows == 0:
		printInfo("No rows changed")
		if result.Reverted {
			printInfo("%s restored to %s", req.Ref, result.OriginalType)
		}
	default:
		printSuccess("%d row(s) updated in %s", result.AffectedRows, result.Duration.Round(time.Millisecond))
		if result.TypeChanged() {
			printWarning("%s is now TEXT (was %s)", req.Ref, result.OriginalType)
		}
	}

	return nil
}

// confirmCoercion asks before an operation that would leave a non-text
// column as TEXT. Operations on text columns, or matching no rows, pass.
func confirmCoercion(ctx context.Context, eng *engine.Engine, req engine.Request, in io.Reader, out io.Writer) (bool, error) {
	preview, err := eng.Preview(ctx, req, 1)
	if err != nil {
		return false, err
	}
	if !preview.WouldCoerce || preview.Total == 0 {
		return true, nil
	}

	warningColor.Fprintf(out, "⚠ %s is %s; %d row(s) would change and the column would become TEXT\n",
		req.Ref, preview.ColumnType, preview.Total)
	fmt.Fprint(out, "Continue? [y/N] ")

	return readConfirmation(in)
}

func readConfirmation(in io.Reader) (bool, error) {
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// record writes the outcome to the journal and the state tracker.
// Failures here are reported but never fail the operation.
func (s *session) record(req engine.Request, result *engine.Result, opErr error) {
	var operationID string
	if result != nil {
		operationID = result.OperationID
	}

	if s.journal != nil {
		details := operationDetails(req, result)
		var err error
		if result == nil {
			err = s.journal.LogError(req.Kind.String(), opErr, details)
		} else {
			err = s.journal.LogOperation(operationID, req.Kind.String(), journalStatus(result, opErr), result.Duration, details, opErr)
		}
		if err != nil {
			printWarning("Could not write journal: %v", err)
		}
	}

	if s.tracker == nil || result == nil {
		return
	}

	if result.TypeChanged() && s.cfg.Operations.TrackCoercions {
		added, err := s.tracker.RecordCoercion(&state.Coercion{
			OperationID:  operationID,
			Table:        req.Ref.Table,
			Column:       req.Ref.Column,
			OriginalType: result.OriginalType,
			Operation:    req.Kind.String(),
			AffectedRows: result.AffectedRows,
		})
		if err != nil {
			printWarning("Could not record coercion: %v", err)
		} else if added {
			s.logger.Info("coercion recorded",
				zap.String("table", req.Ref.Table),
				zap.String("column", req.Ref.Column),
				zap.String("original_type", result.OriginalType))
		}
	}

	if opErr == nil {
		if err := s.tracker.RecordOperation(operationID, s.database); err != nil {
			printWarning("Could not update state: %v", err)
		}
	}
}

// journalStatus classifies an operation outcome
func journalStatus(result *engine.Result, err error) string {
	switch {
	case err != nil:
		return journal.StatusError
	case result.AffectedRows == 0:
		return journal.StatusNoop
	default:
		return journal.StatusOK
	}
}

// operationDetails is the journal payload of an operation
func operationDetails(req engine.Request, result *engine.Result) map[string]interface{} {
	details := map[string]interface{}{
		"table":  req.Ref.Table,
		"column": req.Ref.Column,
	}

	if req.Kind == operation.Replace {
		details["find"] = req.Params.Find
		details["replace"] = req.Params.Replace
		details["case_sensitive"] = req.Params.CaseSensitive
		details["whole_word"] = req.Params.WholeWord
	}

	if result != nil {
		details["affected_rows"] = result.AffectedRows
		details["original_type"] = result.OriginalType
		details["final_type"] = result.FinalType
		details["coerced"] = result.Coerced
		details["reverted"] = result.Reverted
	}

	return details
}
