package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smazurov/uvcnode/internal/input"
	"github.com/smazurov/uvcnode/internal/uvc"
	"github.com/spf13/cobra"
)

// CreateControlsCmd creates the controls command.
func CreateControlsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "controls [device]",
		Short: "List the controls of a capture device",
		Long: `Queries the V4L2 controls of a device node without starting capture. ` +
			`The IDs shown are the ones accepted by the device command group.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initCommandLogging()
			device := input.DefaultConfig().Device
			if len(args) == 1 {
				device = args[0]
			}

			controls, err := uvc.QueryControls(device)
			if err != nil {
				return fmt.Errorf("failed to query controls of %s: %w", device, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), controls)
			}
			printControls(cmd.OutOrStdout(), controls)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	return cmd
}

func printControls(w io.Writer, controls []input.ControlDescriptor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tVALUE\tRANGE\tDEFAULT")
	for _, c := range controls {
		value := fmt.Sprint(c.Value)
		if c.ReadOnly {
			value += " (ro)"
		}
		fmt.Fprintf(tw, "0x%08x\t%s\t%s\t%s\t%d..%d/%d\t%d\n",
			c.ID, c.Name, c.Type, value, c.Min, c.Max, c.Step, c.Default)
		for _, m := range c.Menu {
			fmt.Fprintf(tw, "\t  %d: %s\t\t\t\t\n", m.Index, m.Name)
		}
	}
	tw.Flush()
}
