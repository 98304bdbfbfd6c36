package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunehub/internal/app"
	"github.com/tejashwikalptaru/tunehub/internal/config"
)

// cli holds the global flags shared by every command.
type cli struct {
	configPath string
	envFiles   []string
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "tunehub",
		Short:         "A music library and player for local and plugged-in sources",
		Version:       app.GetVersionInfo().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath(), "path to the configuration file (.toml, .yaml)")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env", []string{".env"}, "environment files to load before the configuration")

	root.AddCommand(
		c.runCommand(),
		c.scanCommand(),
		c.libraryCommand(),
		c.queueCommand(),
		c.playlistsCommand(),
		c.providersCommand(),
		c.configCommand(),
		versionCommand(),
	)
	return root
}

// loadConfig loads the environment files and the configuration. A missing file at
// the default path falls back to the built-in defaults.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(c.envFiles...); err != nil {
		return nil, err
	}
	path := c.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}

// start builds the application and restores the session. The caller shuts it down.
func (c *cli) start(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, app.Options{})
	if err != nil {
		return nil, err
	}
	if err := a.Start(cmd.Context()); err != nil {
		_ = a.Shutdown()
		return nil, err
	}
	return a, nil
}
