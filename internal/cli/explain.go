package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/pipeline"
	"github.com/matzehuels/flametower/pkg/render"
	"github.com/matzehuels/flametower/pkg/source/explain"
)

// explainCommand creates the explain command.
func (c *CLI) explainCommand() *cobra.Command {
	var (
		output  string
		save    string
		metric  string
		noHints bool
		noCache bool
		flags   renderFlags
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "explain [plan.json|-]",
		Short: "Render a PostgreSQL query plan as a flame graph",
		Long: `Render a PostgreSQL query plan as a flame graph.

The input is the output of EXPLAIN (FORMAT JSON), optionally with ANALYZE.
Analyzed plans are sized by actual time, plain plans by estimated cost.
Nodes that dominate the plan are highlighted unless --no-hints is given.

  psql -XqAt -c "EXPLAIN (ANALYZE, FORMAT JSON) SELECT ..." | flametower explain - -f svg,term

Use --save to keep the converted interval document for later renders.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := explain.ParseMetric(metric)
			if err != nil {
				return err
			}
			flags.apply(&opts)
			c.applyConfig(&opts)
			return c.runExplain(cmd.Context(), args[0], explainParams{
				metric:  m,
				hints:   !noHints,
				output:  output,
				save:    save,
				noCache: noCache,
				opts:    opts,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVar(&save, "save", "", "also write the interval document (.json, .yaml or .toml)")
	cmd.Flags().StringVar(&metric, "metric", "", "width metric: time, cost (default: time when analyzed)")
	cmd.Flags().BoolVar(&noHints, "no-hints", false, "do not highlight hotspots")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.register(cmd, &opts)

	return cmd
}

type explainParams struct {
	metric  explain.Metric
	hints   bool
	output  string
	save    string
	noCache bool
	opts    pipeline.Options
}

func (c *CLI) runExplain(ctx context.Context, input string, p explainParams) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}
	plan, err := explain.Decode(data)
	if err != nil {
		return err
	}
	res, err := explain.Convert(plan,
		explain.WithMetric(p.metric),
		explain.WithHints(p.hints),
		explain.WithLogger(c.Logger),
	)
	if err != nil {
		return err
	}
	doc := res.Document()

	if p.save != "" {
		if err := fio.ExportFile(doc, p.save); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
		printFile(p.save)
	}

	opts := p.opts
	if opts.Unit == "" {
		opts.Unit = res.Metric.Unit()
	}
	opts.SetRenderDefaults()
	formats, err := render.ParseFormats(opts.Formats)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, p.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	result, err := runner.Run(ctx, doc, opts)
	if err != nil {
		return fmt.Errorf("render plan: %w", err)
	}

	printHotspots(res.Stats, res.Metric)
	if err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   formats,
		input:     input,
		output:    p.output,
		stdout:    os.Stdout,
	}); err != nil {
		return err
	}
	printStats(result.Stats, result.CacheInfo.RenderHit)
	return nil
}

// printHotspots lists the hinted plan nodes, most severe first as found.
func printHotspots(stats []explain.Stats, metric explain.Metric) {
	for _, s := range stats {
		if s.Hint == nil {
			continue
		}
		self := strconv.FormatFloat(s.Hint.Self, 'f', 1, 64) + metric.Unit()
		line := fmt.Sprintf("%s: %s self, %.0f%% of the plan", s.Label, self, s.Hint.Share*100)
		if s.Hint.Severity == explain.SeverityAlert {
			printError("%s", line)
		} else {
			printWarning("%s", line)
		}
	}
}

// readInput returns the bytes of a file, or of stdin for "-".
func readInput(input string) ([]byte, error) {
	if input == stdinArg {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}
	return data, nil
}
