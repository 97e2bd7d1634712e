// Package graph defines the read contract against the infrastructure
// knowledge graph. The Driver is the capability the chat engine depends on:
// summary counts, entity listings, and per-entity relation lookups. Each call
// maps to exactly one query against the backing store and is side-effect-free;
// caching, if any, belongs to the caller.
package graph

import (
	"context"
)

// Kind identifies one of the four entity kinds stored in the graph.
type Kind string

const (
	KindServer      Kind = "server"
	KindApplication Kind = "application"
	KindOS          Kind = "os"
	KindLocation    Kind = "location"
)

// Kinds returns all known entity kinds in display order.
func Kinds() []Kind {
	return []Kind{KindServer, KindApplication, KindOS, KindLocation}
}

// ParseKind normalizes a kind string, accepting the common aliases used in
// API paths and user-facing text. Returns a NotFoundError for unknown kinds.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "server", "servers":
		return KindServer, nil
	case "application", "applications", "app", "apps":
		return KindApplication, nil
	case "os", "oses", "operating_system":
		return KindOS, nil
	case "location", "locations":
		return KindLocation, nil
	}
	return "", NotFoundError{Kind: Kind(s)}
}

// SummaryCounts holds the node and relationship totals for the whole graph.
type SummaryCounts struct {
	Servers          int `json:"servers"`
	Applications     int `json:"applications"`
	OperatingSystems int `json:"operating_systems"`
	Locations        int `json:"locations"`
	Relationships    int `json:"relationships"`
}

// EntityList is an ordered listing of entity identifiers of one kind.
type EntityList struct {
	Kind Kind     `json:"kind"`
	IDs  []string `json:"ids"`
}

// EntityDetail maps an entity's relation names to the identifiers of related
// entities, e.g. a server's "runs_on" relation to its OS, or an OS's
// "runs_on" relation to every server running it.
type EntityDetail struct {
	Kind      Kind                `json:"kind"`
	ID        string              `json:"id"`
	Relations map[string][]string `json:"relations"`
}

// Driver is the read capability over the graph store. Implementations must
// honor context cancellation and report unreachable stores as UpstreamError
// so callers can degrade rather than fail.
type Driver interface {
	// Summary returns the node and relationship counts for the graph.
	Summary(ctx context.Context) (SummaryCounts, error)

	// ListEntities returns the ordered identifiers of all entities of the
	// given kind. Returns NotFoundError if the kind is unknown.
	ListEntities(ctx context.Context, kind Kind) (EntityList, error)

	// EntityDetail returns the relations of a single entity. Returns
	// NotFoundError if the kind is unknown or the identifier does not exist.
	EntityDetail(ctx context.Context, kind Kind, id string) (EntityDetail, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
