// Package main provides the sqlbadlands CLI: the HTTP server and a terminal
// client that plays the game against local progress.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sqlbadlands/internal/app"
	"sqlbadlands/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	configFile string
	cfg        app.Config
	app        *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "sqlbadlands",
		Short:         "Learn SQL by working a case in the badlands",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app != nil {
				c.app.Close()
				c.app = nil
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: ./sqlbadlands.yaml or $XDG_CONFIG_HOME/sqlbadlands/sqlbadlands.yaml)")
	flags.String(flagDataDir, "", "directory for the state database and logs")
	flags.String(flagIsolation, "", "isolation mode: snapshot or rollback")
	flags.Duration(flagQueryTimeout, 0, "per-query timeout")
	flags.String(flagLogPath, "", "log file path")
	flags.String(flagLogFormat, "", "log format: json, logfmt or text")
	flags.String(flagCurriculum, "", "curriculum YAML file (default: built-in)")
	flags.Bool(flagRecordAttempts, true, "record every submission in the attempt log")
	flags.String(flagStyle, "", "output theme: badlands, retro_terminal or plain")
	flags.Bool(flagDebug, false, "enable debug logging")

	root.AddCommand(
		c.serveCmd(),
		c.chapterCmd(),
		c.missionsCmd(),
		c.playCmd(),
		c.jumpCmd(),
		c.progressCmd(),
		c.historyCmd(),
		c.certificateCmd(),
		c.resetCmd(),
		c.verifyCmd(),
		c.schemaCmd(),
	)
	return root
}

// open builds the application on first use so that commands which only
// print help never touch the data directory.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) renderer(w io.Writer) ui.Renderer {
	cols := 0
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			cols = width
		}
	}
	return ui.NewRenderer(c.cfg.Style, cols)
}
