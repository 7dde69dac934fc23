package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

func (c *cli) verifyCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every reference solution against its mission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			results, err := a.Game().Verify(cmd.Context(), parallel)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), c.renderer(cmd.OutOrStdout()).Verification(results)); err != nil {
				return err
			}
			failed := 0
			for _, v := range results {
				if !v.Passed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d reference solutions failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", runtime.NumCPU(), "solutions to check concurrently")
	return cmd
}
