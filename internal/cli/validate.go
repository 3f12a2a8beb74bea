package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/pipeline"
)

// validationReport is the --json output of validate.
type validationReport struct {
	flame.Validation
	Intervals   int                `json:"intervals"`
	Levels      int                `json:"levels"`
	Diagnostics []flame.Diagnostic `json:"diagnostics"`
}

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		inputFmt string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "validate [file|url|-]",
		Short: "Check that a document forms a single-rooted hierarchy",
		Long: `Check that a document forms a single-rooted hierarchy.

Reports the blocking problem (no root, several roots) and the non-blocking
diagnostics: orphans, cycles, detached subtrees, duplicate ids and inverted
bounds. Exits non-zero when the hierarchy is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], inputFmt, asJSON)
		},
	}

	cmd.Flags().StringVar(&inputFmt, "input-format", "", "document format for stdin: json (default), yaml, toml")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, input, inputFmt string, asJSON bool) error {
	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := pipeline.Options{}
	c.applyConfig(&opts)
	doc, _, err := loadDocument(ctx, runner, input, inputFmt, opts)
	if err != nil {
		return err
	}

	l, err := runner.Layout(ctx, doc, opts)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(validationReport{
			Validation:  l.Validation,
			Intervals:   len(doc.Intervals),
			Levels:      l.Levels(),
			Diagnostics: l.Diagnostics,
		}); err != nil {
			return err
		}
		return l.Validation.Err()
	}

	if !l.Valid() {
		printError("Invalid hierarchy")
		printDetail("%s", l.Validation.Message)
		printDiagnostics(l.Diagnostics)
		return l.Validation.Err()
	}

	printSuccess("Valid hierarchy")
	printKeyValue("Root", strings.Join(l.Validation.Roots, ", "))
	printKeyValue("Intervals", strconv.Itoa(len(doc.Intervals)))
	printKeyValue("Drawn", strconv.Itoa(len(l.Rects)))
	printKeyValue("Levels", strconv.Itoa(l.Levels()))
	printDiagnostics(l.Diagnostics)
	if input != stdinArg {
		printNextStep("Render it", "flametower render "+input)
	}
	return nil
}
