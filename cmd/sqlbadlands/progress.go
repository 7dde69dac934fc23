package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sqlbadlands/internal/progress"
)

func (c *cli) progressCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show completed missions and the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.LoadProgress(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			stats, err := a.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r := c.renderer(out)
			if _, err := io.WriteString(out, r.Progress(a.Curriculum(), p, stats.Summary)); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, r.Board(a.Curriculum(), p))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the stored progress record as JSON")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.LoadProgress(cmd.Context())
			if err != nil {
				return err
			}
			entries := p.History
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			_, err = io.WriteString(cmd.OutOrStdout(), c.renderer(cmd.OutOrStdout()).History(entries, time.Now()))
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, fmt.Sprintf("entries to show (at most %d are kept)", progress.HistoryLimit))
	return cmd
}

func (c *cli) certificateCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "certificate",
		Short: "Show the certificate of completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			cert, err := a.Certificate(cmd.Context())
			if errors.Is(err, progress.ErrNotComplete) {
				return fmt.Errorf("complete every mission first: %w", err)
			}
			if err != nil {
				return err
			}
			title := a.Curriculum().Title
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(cert.Text(title)), 0o644); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Certificate %s written to %s\n", cert.Code, outPath)
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), c.renderer(cmd.OutOrStdout()).Certificate(cert, title))
			return err
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the certificate as text to this file")
	return cmd
}

func (c *cli) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase local progress and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && isInteractive(cmd.InOrStdin(), cmd.OutOrStdout()) {
				confirmed, err := confirmReset(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !confirmed {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "Progress kept.")
					return err
				}
				yes = true
			}
			if !yes {
				return errors.New("refusing to erase progress without --yes")
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.ResetProgress(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Progress reset. Back to chapter 1, mission 1.")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

// isInteractive reports whether both streams are attached to a terminal.
func isInteractive(in io.Reader, out io.Writer) bool {
	fin, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(fin.Fd())) {
		return false
	}
	fout, ok := out.(*os.File)
	return ok && term.IsTerminal(int(fout.Fd()))
}

func confirmReset(ctx context.Context, in io.Reader, out io.Writer) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Erase local progress and history?").
			Description("Completed missions and query history will be lost.").
			Affirmative("Erase").
			Negative("Keep").
			Value(&confirmed),
	)).WithInput(in).WithOutput(out)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirm reset: %w", err)
	}
	return confirmed, nil
}
