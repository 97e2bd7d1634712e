// Package neo4j implements graph.Driver against a Neo4j database using the
// official v5 driver. Sessions are opened per call and all reads run inside
// managed read transactions.
package neo4j

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/opsgraph/opsgraph/pkg/graph"
)

// Config holds the Neo4j connection settings.
type Config struct {
	// URI is the bolt connection URI (e.g., bolt://localhost:7687).
	URI string

	// Username and Password are the basic-auth credentials.
	Username string
	Password string

	// Database is the target database name. Empty selects the default.
	Database string
}

// Driver implements graph.Driver over a Neo4j connection.
type Driver struct {
	config Config
	driver neo4j.DriverWithContext
}

// NewDriver creates a Neo4j-backed graph driver and verifies connectivity.
func NewDriver(ctx context.Context, config Config) (*Driver, error) {
	auth := neo4j.BasicAuth(config.Username, config.Password, "")

	driver, err := neo4j.NewDriverWithContext(config.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, graph.UpstreamError{Op: "connect", Err: err}
	}

	return &Driver{config: config, driver: driver}, nil
}

// Close releases the underlying driver and its connection pool.
func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

const summaryQuery = `
RETURN
  COUNT { (:Server) }       AS servers,
  COUNT { (:Application) }  AS applications,
  COUNT { (:OS) }           AS oses,
  COUNT { (:Location) }     AS locations,
  COUNT { ()-[]->() }       AS relationships`

// Summary returns node and relationship counts for the whole graph.
func (d *Driver) Summary(ctx context.Context) (graph.SummaryCounts, error) {
	records, err := d.read(ctx, summaryQuery, nil)
	if err != nil {
		return graph.SummaryCounts{}, graph.UpstreamError{Op: "summary", Err: err}
	}
	if len(records) == 0 {
		return graph.SummaryCounts{}, graph.UpstreamError{Op: "summary", Err: fmt.Errorf("empty result")}
	}

	rec := records[0]
	return graph.SummaryCounts{
		Servers:          intValue(rec, "servers"),
		Applications:     intValue(rec, "applications"),
		OperatingSystems: intValue(rec, "oses"),
		Locations:        intValue(rec, "locations"),
		Relationships:    intValue(rec, "relationships"),
	}, nil
}

// ListEntities returns the ordered identifiers of all entities of one kind.
func (d *Driver) ListEntities(ctx context.Context, kind graph.Kind) (graph.EntityList, error) {
	label, idProp, err := kindSchema(kind)
	if err != nil {
		return graph.EntityList{}, err
	}

	query := fmt.Sprintf("MATCH (n:%s) RETURN n.%s AS id ORDER BY id", label, idProp)
	records, err := d.read(ctx, query, nil)
	if err != nil {
		return graph.EntityList{}, graph.UpstreamError{Op: "list " + string(kind), Err: err}
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if id := stringValue(rec, "id"); id != "" {
			ids = append(ids, id)
		}
	}

	return graph.EntityList{Kind: kind, IDs: ids}, nil
}

// EntityDetail returns the relations of one entity. Relation keys follow the
// edge names in the graph: runs_on, hosts, located_in.
func (d *Driver) EntityDetail(ctx context.Context, kind graph.Kind, id string) (graph.EntityDetail, error) {
	query, relations, err := detailQuery(kind)
	if err != nil {
		return graph.EntityDetail{}, err
	}

	records, err := d.read(ctx, query, map[string]any{"id": id})
	if err != nil {
		return graph.EntityDetail{}, graph.UpstreamError{Op: "detail " + string(kind), Err: err}
	}
	if len(records) == 0 {
		return graph.EntityDetail{}, graph.NotFoundError{Kind: kind, ID: id}
	}

	rec := records[0]
	detail := graph.EntityDetail{
		Kind:      kind,
		ID:        stringValue(rec, "id"),
		Relations: make(map[string][]string, len(relations)),
	}
	for _, rel := range relations {
		related := stringsValue(rec, rel)
		sort.Strings(related)
		detail.Relations[rel] = related
	}

	return detail, nil
}

// ExecWrite runs a write query inside a managed write transaction. Used by
// the data loader; the chat engine never writes.
func (d *Driver) ExecWrite(ctx context.Context, query string, params map[string]any) error {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.config.Database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return graph.UpstreamError{Op: "write", Err: err}
	}
	return nil
}

func (d *Driver) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: d.config.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	return result.([]*neo4j.Record), nil
}

// kindSchema maps an entity kind to its node label and identifying property.
// Servers and locations carry synthetic ids; applications and operating
// systems are identified by name.
func kindSchema(kind graph.Kind) (label, idProp string, err error) {
	switch kind {
	case graph.KindServer:
		return "Server", "id", nil
	case graph.KindApplication:
		return "Application", "name", nil
	case graph.KindOS:
		return "OS", "name", nil
	case graph.KindLocation:
		return "Location", "id", nil
	}
	return "", "", graph.NotFoundError{Kind: kind}
}

func detailQuery(kind graph.Kind) (query string, relations []string, err error) {
	switch kind {
	case graph.KindServer:
		return `
MATCH (s:Server {id: $id})
OPTIONAL MATCH (s)-[:RUNS_ON]->(os:OS)
OPTIONAL MATCH (s)-[:HOSTS]->(app:Application)
OPTIONAL MATCH (s)-[:LOCATED_IN]->(loc:Location)
RETURN s.id AS id,
       collect(DISTINCT os.name) AS runs_on,
       collect(DISTINCT app.name) AS hosts,
       collect(DISTINCT loc.id) AS located_in`,
			[]string{"runs_on", "hosts", "located_in"}, nil

	case graph.KindApplication:
		return `
MATCH (app:Application) WHERE toLower(app.name) = toLower($id)
OPTIONAL MATCH (s:Server)-[:HOSTS]->(app)
RETURN app.name AS id,
       collect(DISTINCT s.id) AS hosts`,
			[]string{"hosts"}, nil

	case graph.KindOS:
		return `
MATCH (os:OS) WHERE toLower(os.name) = toLower($id)
OPTIONAL MATCH (s:Server)-[:RUNS_ON]->(os)
RETURN os.name AS id,
       collect(DISTINCT s.id) AS runs_on`,
			[]string{"runs_on"}, nil

	case graph.KindLocation:
		return `
MATCH (loc:Location {id: $id})
OPTIONAL MATCH (s:Server)-[:LOCATED_IN]->(loc)
RETURN loc.id AS id,
       collect(DISTINCT s.id) AS located_in`,
			[]string{"located_in"}, nil
	}
	return "", nil, graph.NotFoundError{Kind: kind}
}

func intValue(rec *neo4j.Record, key string) int {
	v, ok := rec.Get(key)
	if !ok {
		return 0
	}
	if n, ok := v.(int64); ok {
		return int(n)
	}
	return 0
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func stringsValue(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
