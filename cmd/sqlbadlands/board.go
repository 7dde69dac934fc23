package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

func (c *cli) chapterCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "chapter [number]",
		Short: "Show a chapter's narration and missions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.LoadProgress(cmd.Context())
			if err != nil {
				return err
			}
			number := p.Chapter
			if len(args) == 1 {
				if number, err = strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("invalid chapter %q", args[0])
				}
			}
			view, err := a.Game().Chapter(number)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), c.renderer(cmd.OutOrStdout()).Chapter(view, p, a.Curriculum()))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (c *cli) missionsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List every mission and whether it is unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), a.Game().Missions())
			}
			p, err := a.LoadProgress(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.renderer(cmd.OutOrStdout()).Board(a.Curriculum(), p))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (c *cli) schemaCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the tables and columns of the case files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			tables, err := a.Game().Catalog(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tables)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), c.renderer(cmd.OutOrStdout()).Schema(tables))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
