package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/editcore/pkg/patch"
	"github.com/Sumatoshi-tech/editcore/pkg/persist"
)

type inspectCommand struct {
	invert  bool
	noColor bool
	asJSON  bool
}

// NewInspectCommand creates the inspect subcommand.
func NewInspectCommand() *cobra.Command {
	ic := &inspectCommand{}

	cmd := &cobra.Command{
		Use:   "inspect <patch>",
		Short: "Show the hunks of a serialized patch",
		Args:  cobra.ExactArgs(1),
		RunE:  ic.run,
	}

	cmd.Flags().BoolVar(&ic.invert, "invert", false, "Show the inverse patch")
	cmd.Flags().BoolVar(&ic.noColor, noColorFlag, false, noColorUsage)
	cmd.Flags().BoolVar(&ic.asJSON, jsonFlag, false, "Print the hunks as JSON")

	return cmd
}

func (ic *inspectCommand) run(cmd *cobra.Command, args []string) error {
	p := patch.New()

	err := persist.Load(args[0], persist.NewPatchCodec(false), p)
	if err != nil {
		return err
	}

	if ic.invert {
		p = p.Invert()
	}

	return printPatch(cmd, p, ic.asJSON, ic.noColor)
}
