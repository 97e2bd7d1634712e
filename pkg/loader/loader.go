// Package loader ingests the inventory relation CSVs into the graph store.
// Nodes are upserted with MERGE so reloading is idempotent; relationships are
// loaded after all nodes exist.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Execer is the write capability the loader needs from the graph store.
type Execer interface {
	ExecWrite(ctx context.Context, query string, params map[string]any) error
}

// Loader reads relation CSVs from a directory and writes them to the graph.
type Loader struct {
	exec   Execer
	dir    string
	logger *zap.Logger
}

// NewLoader creates a loader reading CSVs from dir.
func NewLoader(exec Execer, dir string, logger *zap.Logger) *Loader {
	return &Loader{exec: exec, dir: dir, logger: logger}
}

// Clear removes all nodes and relationships from the database.
func (l *Loader) Clear(ctx context.Context) error {
	l.logger.Info("clearing existing graph data")
	return l.exec.ExecWrite(ctx, "MATCH (n) DETACH DELETE n", nil)
}

// CreateConstraints ensures unique-id constraints for every node label.
func (l *Loader) CreateConstraints(ctx context.Context) error {
	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:Server) REQUIRE s.id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (a:Application) REQUIRE a.id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (os:OS) REQUIRE os.id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (loc:Location) REQUIRE loc.id IS UNIQUE",
	}
	for _, constraint := range constraints {
		if err := l.exec.ExecWrite(ctx, constraint, nil); err != nil {
			return fmt.Errorf("creating constraint: %w", err)
		}
	}
	return nil
}

// LoadAll ingests every CSV: nodes first, then relationships. When clearFirst
// is set the database is wiped before loading.
func (l *Loader) LoadAll(ctx context.Context, clearFirst bool) error {
	if clearFirst {
		if err := l.Clear(ctx); err != nil {
			return err
		}
	}

	if err := l.CreateConstraints(ctx); err != nil {
		return err
	}

	nodes := []struct {
		file  string
		query string
	}{
		{"servers.csv", `
UNWIND $rows AS row
MERGE (s:Server {id: row.id})
SET s.name = row.name`},
		{"applications.csv", `
UNWIND $rows AS row
MERGE (a:Application {id: row.id})
SET a.name = row.name`},
		{"oses.csv", `
UNWIND $rows AS row
MERGE (o:OS {id: row.id})
SET o.name = row.name`},
	}
	for _, n := range nodes {
		if err := l.loadFile(ctx, n.file, n.query); err != nil {
			return err
		}
	}

	// Location nodes come from the located_in relationship endpoints; the
	// inventory export carries no standalone locations file.
	if err := l.loadLocations(ctx); err != nil {
		return err
	}

	rels := []struct {
		file  string
		query string
	}{
		{"runs_on.csv", `
UNWIND $rows AS row
MATCH (s:Server {id: row.start})
MATCH (os:OS {id: row.end})
MERGE (s)-[:RUNS_ON]->(os)`},
		{"hosts.csv", `
UNWIND $rows AS row
MATCH (s:Server {id: row.start})
MATCH (a:Application {id: row.end})
MERGE (s)-[:HOSTS]->(a)`},
		{"located_in.csv", `
UNWIND $rows AS row
MATCH (s:Server {id: row.start})
MATCH (l:Location {id: row.end})
MERGE (s)-[:LOCATED_IN]->(l)`},
	}
	for _, r := range rels {
		if err := l.loadFile(ctx, r.file, r.query); err != nil {
			return err
		}
	}

	l.logger.Info("graph data load complete")
	return nil
}

func (l *Loader) loadFile(ctx context.Context, file, query string) error {
	rows, err := readCSV(filepath.Join(l.dir, file))
	if err != nil {
		return err
	}

	if err := l.exec.ExecWrite(ctx, query, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("loading %s: %w", file, err)
	}

	l.logger.Info("loaded csv", zap.String("file", file), zap.Int("rows", len(rows)))
	return nil
}

func (l *Loader) loadLocations(ctx context.Context) error {
	rows, err := readCSV(filepath.Join(l.dir, "located_in.csv"))
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows {
		id, _ := row["end"].(string)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	query := `
UNWIND $ids AS id
MERGE (l:Location {id: id})
SET l.name = id`
	if err := l.exec.ExecWrite(ctx, query, map[string]any{"ids": ids}); err != nil {
		return fmt.Errorf("loading locations: %w", err)
	}

	l.logger.Info("loaded locations", zap.Int("count", len(ids)))
	return nil
}

// readCSV parses a header-rowed CSV into one map per record.
func readCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", path, err)
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
