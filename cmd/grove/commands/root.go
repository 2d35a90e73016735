package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"grove/internal/app"
)

var (
	home       string
	passphrase string
	logLevel   string
	appCtx     *app.App
	deps       *app.Wire
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "grove",
		Short:         "Secure group messaging key agreement CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".grove")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log, err := app.NewLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if deps, err = app.NewWire(cfg, log); err != nil {
				return err
			}
			appCtx = app.New(deps)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if deps == nil {
				return nil
			}
			return deps.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.grove)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		keyPackageCmd(),
		createGroupCmd(),
		joinCmd(),
		exportTreeCmd(),
		checkGroupIDCmd(),
		showCmd(),
		addCmd(),
		removeCmd(),
		updateCmd(),
		leaveCmd(),
		commitCmd(),
		applyCmd(),
	)
	return root
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}
