package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/use-agent/smartpick/extractor"
	"github.com/use-agent/smartpick/pipeline"
	"github.com/use-agent/smartpick/render"
)

func newDeviceCmd(root *rootOptions) *cobra.Command {
	var mode, format string

	cmd := &cobra.Command{
		Use:   "device <url>",
		Short: "Fetches one detail page and prints its record.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return checkFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := pipeline.New(root.cfg).Device(cmd.Context(), args[0], mode)
			if err != nil {
				return err
			}
			return render.Device(cmd.OutOrStdout(), format, *dev, extractor.Missing(*dev))
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "fetch mode: http, browser or auto")
	cmd.Flags().StringVar(&format, "format", render.FormatTable, "output format: "+strings.Join(render.Formats, ", "))
	return cmd
}

func newExtractCmd(_ *rootOptions) *cobra.Command {
	var pageURL, format string

	cmd := &cobra.Command{
		Use:   "extract <file|->",
		Short: "Extracts the record from a saved detail page without fetching.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return checkFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read page: %w", err)
			}

			dev := extractor.Extract(string(raw), pageURL)
			return render.Device(cmd.OutOrStdout(), format, dev, extractor.Missing(dev))
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "address the page was saved from, used to resolve relative links")
	cmd.Flags().StringVar(&format, "format", render.FormatJSON, "output format: "+strings.Join(render.Formats, ", "))
	return cmd
}
