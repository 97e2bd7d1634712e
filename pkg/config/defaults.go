package config

const (
	// v0 is the alpha version of the config.
	v0 = 0

	// CurrentV is the currently supported config version, points to v0.
	CurrentV = v0
)

// NewDefaultConfig returns a fully-populated Config with sane defaults.
// It is the single source of truth for default values; viper defaults and
// flag defaults are both derived from it.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "password",
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		API: APIConfig{
			Listen: ":8080",
		},
		Chat: ChatConfig{
			HistoryTurns:  10,
			MaxTurns:      20,
			ContextBudget: 4000,
			PromptBudget:  24000,
		},
		Client: ClientConfig{
			APITarget: "http://localhost:8080",
		},
	}
}
