package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/editcore/internal/render"
	"github.com/Sumatoshi-tech/editcore/internal/script"
	"github.com/Sumatoshi-tech/editcore/internal/session"
	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
	"github.com/Sumatoshi-tech/editcore/pkg/observability"
	"github.com/Sumatoshi-tech/editcore/pkg/persist"
)

// replayOutput is the --json form of a replay.
type replayOutput struct {
	*script.Report

	Text     string           `json:"text"`
	Original string           `json:"original"`
	Markers  []session.Marker `json:"markers"`
	Invalid  markerindex.Set  `json:"invalid"`
}

type replayCommand struct {
	configPath string
	outPath    string
	metricsOut string
	reportPath string
	noColor    bool
	asJSON     bool
	printText  bool
}

// NewReplayCommand creates the replay subcommand.
func NewReplayCommand() *cobra.Command {
	rc := &replayCommand{}

	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay an edit script and report how its markers fared",
		Long: `Replay a YAML edit script in a fresh session.

The recorded patch can be saved with --out and inspected later with
"editcore inspect". With --metrics-out, session metrics are written in the
Prometheus text format once the replay finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVar(&rc.configPath, configFlag, "", configFlagUsage)
	cmd.Flags().StringVarP(&rc.outPath, outFlag, "o", "", "Write the recorded patch to this file")
	cmd.Flags().StringVar(&rc.metricsOut, "metrics-out", "", "Write Prometheus metrics to this file")
	cmd.Flags().StringVar(&rc.reportPath, "report", "", "Write the JSON replay report to this file")
	cmd.Flags().BoolVar(&rc.noColor, noColorFlag, false, noColorUsage)
	cmd.Flags().BoolVar(&rc.asJSON, jsonFlag, false, "Print the replay report as JSON")
	cmd.Flags().BoolVar(&rc.printText, "print-text", false, "Print the final document")

	return cmd
}

func (rc *replayCommand) run(cmd *cobra.Command, args []string) error {
	s, err := script.Load(args[0])
	if err != nil {
		return err
	}

	env, err := setup(cmd, rc.configPath, rc.metricsOut != "")
	if err != nil {
		return err
	}
	defer env.close()

	opts, err := env.sessionOptions()
	if err != nil {
		return err
	}

	runner := script.NewRunner(env.providers.Logger, env.providers.Tracer, opts...)

	report, err := runner.Run(cmd.Context(), s)
	if err != nil {
		return fmt.Errorf("replay %s: %w", args[0], err)
	}

	sess := report.Session

	if rc.outPath != "" {
		err = persist.Save(rc.outPath, persist.NewPatchCodec(env.cfg.Patch.Compress), sess.Patch())
		if err != nil {
			return fmt.Errorf("write patch: %w", err)
		}

		progressf(cmd, cmd.ErrOrStderr(), "patch written to %s", rc.outPath)
	}

	if rc.metricsOut != "" {
		err = observability.WriteMetricsFile(rc.metricsOut, env.providers.Registry)
		if err != nil {
			return err
		}
	}

	output := replayOutput{
		Report:   report,
		Text:     sess.Text(),
		Original: sess.Original(),
		Markers:  sess.Markers(),
		Invalid:  sess.Invalid(),
	}

	if rc.reportPath != "" {
		err = persist.Save(rc.reportPath, persist.NewJSONCodec(), output)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	out := cmd.OutOrStdout()

	switch {
	case rc.asJSON:
		err = persist.NewJSONCodec().Encode(out, output)
		if err != nil {
			return err
		}
	case rc.printText:
		_, err = fmt.Fprint(out, sess.Text())
		if err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	case !flagBool(cmd, "quiet"):
		cfg := render.NewConfig()
		cfg.NoColor = cfg.NoColor || rc.noColor

		render.New(out, cfg).Replay(report)
	}

	return nil
}
