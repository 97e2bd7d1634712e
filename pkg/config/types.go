package config

// Config is the full opsgraph configuration, loadable from config.toml,
// OPSGRAPH_* environment variables, and CLI flags.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version" mapstructure:"version"`

	Neo4j  Neo4jConfig  `toml:"neo4j" mapstructure:"neo4j"`
	OpenAI OpenAIConfig `toml:"openai" mapstructure:"openai"`
	API    APIConfig    `toml:"api" mapstructure:"api"`
	Chat   ChatConfig   `toml:"chat" mapstructure:"chat"`
	Client ClientConfig `toml:"client" mapstructure:"client"`
}

// Neo4jConfig holds the graph store connection settings.
type Neo4jConfig struct {
	URI      string `toml:"uri" mapstructure:"uri"`
	Username string `toml:"username" mapstructure:"username"`
	Password string `toml:"password" mapstructure:"password"`
	Database string `toml:"database" mapstructure:"database"`
}

// OpenAIConfig holds the completion provider settings.
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key" mapstructure:"api_key"`
	Model       string  `toml:"model" mapstructure:"model"`
	BaseURL     string  `toml:"base_url" mapstructure:"base_url"`
	Temperature float64 `toml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `toml:"max_tokens" mapstructure:"max_tokens"`
}

// APIConfig holds the HTTP server settings.
type APIConfig struct {
	// Listen is the address the API server binds (e.g., ":8080").
	Listen string `toml:"listen" mapstructure:"listen"`
}

// ChatConfig tunes the conversational query engine.
type ChatConfig struct {
	// HistoryTurns is the window of recent turns included in each prompt.
	HistoryTurns int `toml:"history_turns" mapstructure:"history_turns"`

	// MaxTurns bounds retained history per conversation (FIFO eviction).
	MaxTurns int `toml:"max_turns" mapstructure:"max_turns"`

	// ContextBudget bounds the rendered graph context in characters.
	ContextBudget int `toml:"context_budget" mapstructure:"context_budget"`

	// PromptBudget bounds the whole assembled prompt in characters.
	PromptBudget int `toml:"prompt_budget" mapstructure:"prompt_budget"`
}

// ClientConfig holds settings for CLI commands talking to a running server.
type ClientConfig struct {
	// APITarget is the base URL of the opsgraph API server.
	APITarget string `toml:"api_target" mapstructure:"api_target"`
}
