// Package cmd holds the autoclean command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/autoclean-api/internal/config"
	"github.com/tjfontaine/autoclean-api/internal/logging"
)

// app is the state shared by subcommands once the root has loaded config.
type app struct {
	configPath string
	envFile    string
	out        io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the root command with process arguments.
func Execute() error {
	root := NewRootCommand(os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// NewRootCommand builds the command tree writing logs and output to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "autoclean",
		Short:         "AutoClean back-office API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before config")

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newDBCommand(a))

	return root
}

func (a *app) load() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.Log, a.out)
	slog.SetDefault(a.logger)
	return nil
}
