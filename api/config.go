// Package api provides the HTTP server for the conversational query engine
// and the graph browse endpoints.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string
}
