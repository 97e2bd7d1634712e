// Package initcmder provides the init command that writes a default
// config.toml.
package initcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsgraph/opsgraph/pkg/config"
	"github.com/opsgraph/opsgraph/pkg/logger"
)

type initCommander struct {
	dir string
}

const initLongDesc string = `Write a default config.toml.

The file goes to ~/.opsgraph/ unless --dir (or the global --config-dir)
points somewhere else. Values can then be overridden per-key by
OPSGRAPH_* environment variables or CLI flags.`

const initShortDesc string = "Write a default config.toml"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.dir == "" {
				cmder.dir, _ = cmd.Flags().GetString("config-dir")
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.dir, "dir", "", "Directory to write config.toml to (default ~/.opsgraph)")

	return cmd
}

func (c *initCommander) run() error {
	log := logger.New(logger.WithPretty(true))

	dir := c.dir
	if dir == "" {
		var err error
		dir, err = config.DefaultConfigDir()
		if err != nil {
			return err
		}
	}

	path, err := config.WriteConfig(dir, config.NewDefaultConfig())
	if err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	log.Info("wrote default config", "path", path)
	return nil
}
