// Package loadcmder provides the load command that ingests inventory CSVs
// into the graph store.
package loadcmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/pkg/config"
	"github.com/opsgraph/opsgraph/pkg/graph/neo4j"
	"github.com/opsgraph/opsgraph/pkg/loader"
	"github.com/opsgraph/opsgraph/pkg/logger"
)

type LoadCommander struct {
	dir           string
	keep          bool
	neo4jURI      string
	neo4jUser     string
	neo4jPassword string
	debug         bool

	config *config.Config
	logger *zap.Logger
}

const loadLongDesc string = `Load inventory relation CSVs into the graph store.

Expects a directory containing:
  servers.csv, applications.csv, oses.csv   (id,name)
  runs_on.csv, hosts.csv, located_in.csv    (start,end)

Locations are derived from the located_in endpoints. By default the
database is cleared before loading; --keep preserves existing data.`

const loadShortDesc string = "Load inventory CSVs into the graph store"

func NewLoadCmd() *cobra.Command {
	cmder := &LoadCommander{}
	flags := config.DefaultFlags()

	cmd := &cobra.Command{
		Use:   "load",
		Short: loadShortDesc,
		Long:  loadLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			keys := []string{config.FlagNeo4jURI, config.FlagNeo4jUser, config.FlagNeo4jPassword}
			if err := config.BindRegisteredFlags(cmd, v, flags, keys...); err != nil {
				return err
			}

			cmder.config, err = config.FromViper(v)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.dir, "dir", "D", "relations", "Directory containing the relation CSVs")
	cmd.Flags().BoolVar(&cmder.keep, "keep", false, "Keep existing graph data instead of clearing first")
	config.AddStringFlag(cmd, flags, config.FlagNeo4jURI, &cmder.neo4jURI)
	config.AddStringFlag(cmd, flags, config.FlagNeo4jUser, &cmder.neo4jUser)
	config.AddStringFlag(cmd, flags, config.FlagNeo4jPassword, &cmder.neo4jPassword)

	return cmd
}

func (c *LoadCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg := c.config

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	driver, err := neo4j.NewDriver(ctx, neo4j.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		return fmt.Errorf("connecting to graph store: %w", err)
	}
	defer driver.Close(context.Background())

	l := loader.NewLoader(driver, c.dir, c.logger)
	if err := l.LoadAll(ctx, !c.keep); err != nil {
		return err
	}

	counts, err := driver.Summary(ctx)
	if err != nil {
		return fmt.Errorf("fetching post-load summary: %w", err)
	}

	c.logger.Info("load complete",
		zap.Int("servers", counts.Servers),
		zap.Int("applications", counts.Applications),
		zap.Int("operating_systems", counts.OperatingSystems),
		zap.Int("locations", counts.Locations),
		zap.Int("relationships", counts.Relationships),
	)
	return nil
}
