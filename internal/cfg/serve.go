package cfg

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"grabarr/internal/cmd"
	"grabarr/internal/domain/keys"
	"grabarr/internal/server"
)

// initServeCmd returns the command running the HTTP API until interrupted.
func initServeCmd(ctx context.Context) (*cobra.Command, error) {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the link queue, search and downloads over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			core, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer core.Close()

			s := server.New(ctx, core)
			defer s.Close()
			return s.Run(ctx, viper.GetString(keys.ServerHost), viper.GetInt(keys.ServerPort))
		},
	}

	if err := cmd.InitServerFlags(c); err != nil {
		return nil, err
	}
	return c, nil
}
