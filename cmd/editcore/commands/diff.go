package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/editcore/internal/render"
	"github.com/Sumatoshi-tech/editcore/pkg/patch"
	"github.com/Sumatoshi-tech/editcore/pkg/persist"
)

// binarySniffLength is how many leading bytes are searched for a NUL byte.
const binarySniffLength = 8000

// ErrBinaryFile is returned when diff is given a file that is not text.
var ErrBinaryFile = errors.New("binary file")

type diffCommand struct {
	outPath  string
	byLine   bool
	compress bool
	noColor  bool
	asJSON   bool
}

// NewDiffCommand creates the diff subcommand.
func NewDiffCommand() *cobra.Command {
	dc := &diffCommand{}

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Build the patch that turns one file into another",
		Args:  cobra.ExactArgs(2),
		RunE:  dc.run,
	}

	cmd.Flags().StringVarP(&dc.outPath, outFlag, "o", "", "Write the patch to this file")
	cmd.Flags().BoolVar(&dc.byLine, "by-line", false, "Diff whole lines instead of characters")
	cmd.Flags().BoolVar(&dc.compress, "compress", true, "Compress the written patch")
	cmd.Flags().BoolVar(&dc.noColor, noColorFlag, false, noColorUsage)
	cmd.Flags().BoolVar(&dc.asJSON, jsonFlag, false, "Print the hunks as JSON")

	return cmd
}

func (dc *diffCommand) run(cmd *cobra.Command, args []string) error {
	oldData, err := readTextFile(args[0])
	if err != nil {
		return err
	}

	newData, err := readTextFile(args[1])
	if err != nil {
		return err
	}

	mode := patch.ByCharacter
	if dc.byLine {
		mode = patch.ByLine
	}

	p := patch.Diff(string(oldData), string(newData), mode)

	if dc.outPath != "" {
		err = persist.Save(dc.outPath, persist.NewPatchCodec(dc.compress), p)
		if err != nil {
			return fmt.Errorf("write patch: %w", err)
		}

		progressf(cmd, cmd.ErrOrStderr(), "patch written to %s", dc.outPath)
	}

	return printPatch(cmd, p, dc.asJSON, dc.noColor)
}

func readTextFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if bytes.IndexByte(data[:min(len(data), binarySniffLength)], 0) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}

	return data, nil
}

func printPatch(cmd *cobra.Command, p *patch.Patch, asJSON, noColor bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		data, err := p.MarshalJSON()
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, string(data))
		if err != nil {
			return fmt.Errorf("write patch: %w", err)
		}

		return nil
	}

	if flagBool(cmd, "quiet") {
		return nil
	}

	cfg := render.NewConfig()
	cfg.NoColor = cfg.NoColor || noColor

	render.New(out, cfg).Patch(p)

	return nil
}
