package cfg

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// initProbeCmd returns the command reporting the detected hardware encoders.
func initProbeCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report the GPU vendor and H.264 encoders usable for video transcodes",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			core, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer core.Close()

			p := core.Capabilities(ctx)
			fmt.Fprintf(c.OutOrStdout(), "GPU vendor: %s\nEncoders:   %s\n", p.GPUVendor, strings.Join(p.Encoders(), ", "))
			return nil
		},
	}
}
