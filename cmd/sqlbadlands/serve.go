package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			info := a.EngineInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "sqlbadlands %s on http://%s (%s %s, %s isolation)\n",
				a.Curriculum().Version, c.cfg.Addr, info.Name, info.Version, info.Isolation)
			return a.Serve(ctx)
		},
	}
	cmd.Flags().String(flagAddr, "", "listen address (default 127.0.0.1:3000)")
	return cmd
}
