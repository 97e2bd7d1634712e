// Package opsgraphcmder
package opsgraphcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/opsgraph/opsgraph/cmd/opsgraph/chat"
	initcmder "github.com/opsgraph/opsgraph/cmd/opsgraph/init"
	loadcmder "github.com/opsgraph/opsgraph/cmd/opsgraph/load"
	servecmder "github.com/opsgraph/opsgraph/cmd/opsgraph/serve"
	versioncmder "github.com/opsgraph/opsgraph/cmd/version"
)

const opsgraphLongDesc string = `Opsgraph answers natural-language questions about your infrastructure
inventory by grounding an LLM in a knowledge graph of servers,
applications, operating systems, and locations.

Common workflows:
  opsgraph init        Write a default config.toml
  opsgraph load        Load inventory CSVs into the graph store
  opsgraph serve       Run the API server
  opsgraph chat        Chat with a running server`

const opsgraphShortDesc string = "Opsgraph - graph-grounded infrastructure Q&A"

func NewOpsgraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opsgraph",
		Short: opsgraphShortDesc,
		Long:  opsgraphLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing config.toml")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(loadcmder.NewLoadCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
