// Package servecmder provides the serve command that runs the API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/api"
	"github.com/opsgraph/opsgraph/pkg/chat"
	"github.com/opsgraph/opsgraph/pkg/config"
	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/graph/neo4j"
	"github.com/opsgraph/opsgraph/pkg/llm/openai"
	"github.com/opsgraph/opsgraph/pkg/logger"
)

type ServeCommander struct {
	listen        string
	neo4jURI      string
	neo4jUser     string
	neo4jPassword string
	model         string
	debug         bool

	config *config.Config
	logger *zap.Logger
}

const serveLongDesc string = `Run the opsgraph API server.

The server connects to the Neo4j graph store and the completion provider,
then serves the chat and graph browse endpoints:
  POST /chat              Ask a question (graph-grounded by default)
  GET  /graph/summary     Node and relationship counts
  GET  /graph/:kind       Entity listings
  GET  /graph/:kind/:id   Entity relations`

const serveShortDesc string = "Run the opsgraph API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}
	flags := config.DefaultFlags()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			keys := []string{config.FlagListen, config.FlagNeo4jURI, config.FlagNeo4jUser, config.FlagNeo4jPassword, config.FlagModel}
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

	config.AddStringFlag(cmd, flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, flags, config.FlagNeo4jURI, &cmder.neo4jURI)
	config.AddStringFlag(cmd, flags, config.FlagNeo4jUser, &cmder.neo4jUser)
	config.AddStringFlag(cmd, flags, config.FlagNeo4jPassword, &cmder.neo4jPassword)
	config.AddStringFlag(cmd, flags, config.FlagModel, &cmder.model)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg := c.config

	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	driver, err := neo4j.NewDriver(connectCtx, neo4j.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		return fmt.Errorf("connecting to graph store: %w", err)
	}
	defer driver.Close(context.Background())

	c.logger.Info("connected to graph store", zap.String("uri", cfg.Neo4j.URI))

	// Boot-time visibility into what the graph holds.
	if counts, err := driver.Summary(connectCtx); err == nil {
		c.logger.Info("graph summary",
			zap.Int("servers", counts.Servers),
			zap.Int("applications", counts.Applications),
			zap.Int("operating_systems", counts.OperatingSystems),
			zap.Int("locations", counts.Locations),
			zap.Int("relationships", counts.Relationships),
		)
	} else {
		c.logger.Warn("could not fetch graph summary", zap.Error(err))
	}

	completions := openai.NewClient(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
	})

	store := convo.NewStore(cfg.Chat.MaxTurns)
	assembler := chat.NewAssembler(driver, cfg.Chat.ContextBudget, c.logger)
	prompts := chat.NewPromptBuilder(cfg.Chat.PromptBudget)
	engine := chat.NewEngine(chat.Config{
		HistoryTurns:    cfg.Chat.HistoryTurns,
		MaxOutputTokens: cfg.OpenAI.MaxTokens,
		Temperature:     cfg.OpenAI.Temperature,
	}, assembler, prompts, store, completions, c.logger)

	apiServer := api.NewServer(api.Config{ListenAddr: cfg.API.Listen}, engine, driver, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}
