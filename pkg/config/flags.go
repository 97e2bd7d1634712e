package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag. Commands reference
// flags by registry key rather than hard-coding names, shorthands, defaults,
// and descriptions inline, so the same logical flag cannot drift between
// commands (e.g., --neo4j-uri on both "opsgraph serve" and "opsgraph load").
type Flag struct {
	// Name is the long flag name (e.g. "neo4j-uri").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "neo4j.uri").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet maps registry keys to their Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen        = "listen"
	FlagNeo4jURI      = "neo4j-uri"
	FlagNeo4jUser     = "neo4j-user"
	FlagNeo4jPassword = "neo4j-password"
	FlagModel         = "model"
	FlagAPITarget     = "api-target"
)

// DefaultFlags returns the registry of all opsgraph flags.
func DefaultFlags() FlagSet {
	return FlagSet{
		FlagListen: {
			Name: "listen", Shorthand: "l", ViperKey: "api.listen",
			Description: "Address for the API server to listen on",
		},
		FlagNeo4jURI: {
			Name: "neo4j-uri", ViperKey: "neo4j.uri",
			Description: "Neo4j bolt connection URI",
		},
		FlagNeo4jUser: {
			Name: "neo4j-user", ViperKey: "neo4j.username",
			Description: "Neo4j username",
		},
		FlagNeo4jPassword: {
			Name: "neo4j-password", ViperKey: "neo4j.password",
			Description: "Neo4j password",
		},
		FlagModel: {
			Name: "model", Shorthand: "m", ViperKey: "openai.model",
			Description: "Completion model name",
		},
		FlagAPITarget: {
			Name: "api-target", ViperKey: "client.api_target",
			Description: "Base URL of the opsgraph API server",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's default comes from NewDefaultConfig() via its viper key.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds each changed flag to its viper key, so flags
// take precedence over env vars and file values.
func BindRegisteredFlags(cmd *cobra.Command, v *viper.Viper, fs FlagSet, keys ...string) error {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		flag := cmd.Flags().Lookup(def.Name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(def.ViperKey, flag); err != nil {
			return err
		}
	}
	return nil
}

func defaultViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
