// Package cmd holds the auxiliary CLI commands.
package cmd

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/uvcnode/internal/config"
	"github.com/smazurov/uvcnode/internal/logging"
	"github.com/smazurov/uvcnode/internal/uvc"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var (
		asJSON bool
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List V4L2 capture devices",
		Long:  `Lists every V4L2 capture node with its pixel formats and frame sizes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			initCommandLogging()
			devices, err := uvc.ListDevices(logging.GetLogger("uvc"))
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), devices); err != nil {
					return err
				}
			} else {
				printDevices(cmd.OutOrStdout(), devices)
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return uvc.Watch(ctx, func(ev uvc.DeviceEvent) {
				printDeviceEvent(cmd.OutOrStdout(), ev)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and print devices as they are plugged or unplugged")
	return cmd
}

func printDevices(w io.Writer, devices []uvc.DeviceSummary) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No capture devices found")
		return
	}
	for _, d := range devices {
		fmt.Fprintf(w, "%s  %s (%s)\n", d.Path, d.Name, d.Driver)
		if d.ID != "" {
			fmt.Fprintf(w, "  id: %s\n", d.ID)
		}
		for _, f := range d.Formats {
			kind := "raw"
			if f.Compressed {
				kind = "compressed"
			}
			sizes := make([]string, 0, len(f.Resolutions))
			for _, r := range f.Resolutions {
				sizes = append(sizes, r.String())
			}
			fmt.Fprintf(w, "  %s %s, %s: %s\n", f.FourCC, f.Name, kind, strings.Join(sizes, " "))
		}
	}
}

func printDeviceEvent(w io.Writer, ev uvc.DeviceEvent) {
	fmt.Fprintf(w, "%s %-6s %s\n", time.Now().Format(time.TimeOnly), ev.Action, ev.Path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// initCommandLogging sets up logging for one-shot commands. Module levels
// come from the config file; the global level stays at warn unless
// UVCNODE_LOGGING_LEVEL asks otherwise.
func initCommandLogging() {
	cfg := config.LoadLoggingConfig(cmp.Or(os.Getenv("UVCNODE_CONFIG"), "uvcnode.toml"))
	cfg.Level = cmp.Or(os.Getenv("UVCNODE_LOGGING_LEVEL"), "warn")
	logging.Initialize(cfg)
}
