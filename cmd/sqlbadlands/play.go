package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sqlbadlands/internal/game"
)

func (c *cli) playCmd() *cobra.Command {
	var (
		chapter int
		mission int
		rows    int
	)
	cmd := &cobra.Command{
		Use:     "play [sql]",
		Aliases: []string{"run"},
		Short:   "Submit a query for the current mission",
		Long: `Submit a query for the current mission, or for another unlocked mission
with --chapter and --mission. The query is read from stdin when no argument
is given or the argument is "-".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if len(args) == 0 || query == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				query = string(b)
			}
			if strings.TrimSpace(query) == "" {
				return errors.New("no query provided")
			}

			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.LoadProgress(cmd.Context())
			if err != nil {
				return err
			}
			sub := game.Submission{Query: query, Chapter: p.Chapter, Mission: p.Mission}
			if cmd.Flags().Changed("chapter") {
				sub.Chapter = chapter
			}
			if cmd.Flags().Changed("mission") {
				sub.Mission = mission
			}

			play, err := a.Play(cmd.Context(), sub)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r := c.renderer(out)
			if m, err := a.Curriculum().MissionAt(sub.Chapter, sub.Mission); err == nil {
				fmt.Fprintf(out, "Mission %d.%d: %s\n\n", m.Chapter, m.Number, m.Text)
			}
			if _, err := io.WriteString(out, r.Outcome(play.Outcome, rows)); err != nil {
				return err
			}
			switch {
			case play.Progress.AllCompleted(a.Curriculum()) && play.Outcome.Correct:
				fmt.Fprintln(out, "\nCase closed. Run `sqlbadlands certificate` to claim your certificate.")
			case play.Advanced:
				next, _ := a.Curriculum().MissionAt(play.Progress.Chapter, play.Progress.Mission)
				fmt.Fprintf(out, "\nNext up, mission %d.%d: %s\n", next.Chapter, next.Number, next.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&chapter, "chapter", "c", 0, "chapter number (default: current)")
	cmd.Flags().IntVarP(&mission, "mission", "m", 0, "mission number within the chapter (default: current)")
	cmd.Flags().IntVar(&rows, "rows", 20, "maximum result rows to print (0 for all)")
	return cmd
}

func (c *cli) jumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jump <chapter> <mission>",
		Short: "Make an unlocked mission the current one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapter, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid chapter %q", args[0])
			}
			mission, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid mission %q", args[1])
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.Jump(cmd.Context(), chapter, mission)
			if err != nil {
				return err
			}
			m, _ := a.Curriculum().MissionAt(p.Chapter, p.Mission)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Now on mission %d.%d: %s\n", m.Chapter, m.Number, m.Text)
			return err
		},
	}
}
