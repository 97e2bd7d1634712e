package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/graph"
)

// DefaultContextBudget bounds the rendered context block in characters.
const DefaultContextBudget = 4000

// degradedMarker is appended to the context block whenever a fact could not
// be retrieved, so the model (and the caller) know the context is partial.
const degradedMarker = "[context degraded: some graph facts could not be retrieved]"

// intentKeywords is the explicit token table for entity-kind intent
// detection. Tokens are matched whole after lowercasing and splitting on
// non-alphanumeric runs, so "application" never fires on substrings.
var intentKeywords = map[string]graph.Kind{
	"server":       graph.KindServer,
	"servers":      graph.KindServer,
	"app":          graph.KindApplication,
	"apps":         graph.KindApplication,
	"application":  graph.KindApplication,
	"applications": graph.KindApplication,
	"os":           graph.KindOS,
	"oses":         graph.KindOS,
	"operating":    graph.KindOS,
	"location":     graph.KindLocation,
	"locations":    graph.KindLocation,
	"loc":          graph.KindLocation,
}

// osNames are the operating system names recognized as specific identifiers.
var osNames = map[string]bool{
	"ubuntu":  true,
	"windows": true,
	"centos":  true,
	"linux":   true,
	"rhel":    true,
	"debian":  true,
}

var (
	serverIDPattern   = regexp.MustCompile(`^server[0-9]+$`)
	locationIDPattern = regexp.MustCompile(`^loc[0-9]+$`)
	tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// factClass orders facts by trim priority: summary is never dropped, lists
// go before details only when details alone cannot fit the budget.
type factClass int

const (
	classSummary factClass = iota
	classList
	classDetail
)

type fact struct {
	class   factClass
	text    string
	sources []convo.Source
}

// Assembler turns a free-text message into zero or more graph fetches and
// renders the results into a bounded, provenance-tagged context block.
// It is resilient to individual fetch failures: a missing fact degrades the
// block rather than failing the request.
type Assembler struct {
	graph  graph.Driver
	budget int
	logger *zap.Logger
}

// NewAssembler creates a context assembler with the given character budget.
// Non-positive budgets fall back to DefaultContextBudget.
func NewAssembler(driver graph.Driver, budget int, logger *zap.Logger) *Assembler {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &Assembler{graph: driver, budget: budget, logger: logger}
}

// intent is the outcome of scanning one message.
type intent struct {
	kinds       []graph.Kind // kinds to list, in first-match order
	identifiers []identifier // specific entities to look up, in match order
}

type identifier struct {
	kind graph.Kind
	id   string
}

func (in intent) matched() bool {
	return len(in.kinds) > 0 || len(in.identifiers) > 0
}

// scanMessage tokenizes the message and resolves entity-kind keywords and
// specific identifiers against the fixed tables above. A kind with a specific
// identifier is not also listed.
func scanMessage(message string) intent {
	tokens := tokenSplitPattern.Split(strings.ToLower(message), -1)

	var in intent
	seenKind := make(map[graph.Kind]bool)
	seenID := make(map[identifier]bool)
	idKinds := make(map[graph.Kind]bool)

	addID := func(id identifier) {
		if !seenID[id] {
			seenID[id] = true
			idKinds[id.kind] = true
			in.identifiers = append(in.identifiers, id)
		}
	}

	for _, tok := range tokens {
		switch {
		case tok == "":
		case serverIDPattern.MatchString(tok):
			addID(identifier{kind: graph.KindServer, id: tok})
		case locationIDPattern.MatchString(tok):
			addID(identifier{kind: graph.KindLocation, id: tok})
		case osNames[tok]:
			addID(identifier{kind: graph.KindOS, id: tok})
		default:
			if kind, ok := intentKeywords[tok]; ok && !seenKind[kind] {
				seenKind[kind] = true
				in.kinds = append(in.kinds, kind)
			}
		}
	}

	// Drop listing intents already narrowed to a specific identifier.
	kinds := in.kinds[:0]
	for _, kind := range in.kinds {
		if !idKinds[kind] {
			kinds = append(kinds, kind)
		}
	}
	in.kinds = kinds

	return in
}

// Assemble builds the context block for one message. prev is the tail of the
// conversation (most recent turns, oldest first) and is only consulted to
// avoid repeating the summary fact two turns in a row.
//
// When useGraphContext is false the block is empty and no graph call occurs.
func (a *Assembler) Assemble(ctx context.Context, message string, useGraphContext bool, prev []convo.Turn) *ContextBlock {
	block := &ContextBlock{}
	if !useGraphContext {
		return block
	}

	in := scanMessage(message)

	var facts []fact

	if in.matched() || !summaryAlreadySupplied(prev) {
		if f, ok := a.fetchSummary(ctx, block); ok {
			facts = append(facts, f)
		}
	}

	for _, kind := range in.kinds {
		if f, ok := a.fetchList(ctx, kind, block); ok {
			facts = append(facts, f)
		}
	}

	for _, ident := range in.identifiers {
		if f, ok := a.fetchDetail(ctx, ident, block); ok {
			facts = append(facts, f)
		}
	}

	a.render(block, facts)
	return block
}

func (a *Assembler) fetchSummary(ctx context.Context, block *ContextBlock) (fact, bool) {
	counts, err := a.graph.Summary(ctx)
	if err != nil {
		a.degrade(block, "summary", err)
		return fact{}, false
	}

	text := fmt.Sprintf(
		"Graph summary: %d servers, %d applications, %d operating systems, %d locations, %d relationships. [source: summary]",
		counts.Servers, counts.Applications, counts.OperatingSystems, counts.Locations, counts.Relationships,
	)
	return fact{
		class:   classSummary,
		text:    text,
		sources: []convo.Source{{Kind: SourceSummary, Attribute: "counts"}},
	}, true
}

func (a *Assembler) fetchList(ctx context.Context, kind graph.Kind, block *ContextBlock) (fact, bool) {
	list, err := a.graph.ListEntities(ctx, kind)
	if err != nil {
		a.degrade(block, "list "+string(kind), err)
		return fact{}, false
	}

	if len(list.IDs) == 0 {
		return fact{
			class: classList,
			text:  fmt.Sprintf("No %s are present in the graph. [source: %s/list]", kindPlural(kind), kind),
		}, true
	}

	sources := make([]convo.Source, 0, len(list.IDs))
	for _, id := range list.IDs {
		sources = append(sources, convo.Source{Kind: kind, ID: id, Attribute: "list"})
	}

	text := fmt.Sprintf("Known %s (%d): %s. [source: %s/list]",
		kindPlural(kind), len(list.IDs), strings.Join(list.IDs, ", "), kind)
	return fact{class: classList, text: text, sources: sources}, true
}

func (a *Assembler) fetchDetail(ctx context.Context, ident identifier, block *ContextBlock) (fact, bool) {
	detail, err := a.graph.EntityDetail(ctx, ident.kind, ident.id)
	if err != nil {
		var notFound graph.NotFoundError
		if errors.As(err, &notFound) {
			// Negative fact: the model should know the id does not exist
			// rather than hallucinate an answer for it.
			block.Degraded = true
			return fact{
				class: classDetail,
				text: fmt.Sprintf("No %s with identifier %q exists in the graph. [source: %s/%s]",
					ident.kind, ident.id, ident.kind, ident.id),
				sources: []convo.Source{{Kind: ident.kind, ID: ident.id, Attribute: "not_found"}},
			}, true
		}
		a.degrade(block, fmt.Sprintf("detail %s/%s", ident.kind, ident.id), err)
		return fact{}, false
	}

	sources := []convo.Source{{Kind: detail.Kind, ID: detail.ID, Attribute: "detail"}}
	var parts []string
	for _, rel := range relationOrder {
		related, ok := detail.Relations[rel]
		if !ok {
			continue
		}
		if len(related) == 0 {
			parts = append(parts, rel+": none")
			continue
		}
		parts = append(parts, rel+": "+strings.Join(related, ", "))
		target := relatedKind(detail.Kind, rel)
		for _, id := range related {
			sources = append(sources, convo.Source{Kind: target, ID: id, Attribute: rel})
		}
	}

	text := fmt.Sprintf("%s %q — %s. [source: %s/%s]",
		kindLabel(detail.Kind), detail.ID, strings.Join(parts, "; "), detail.Kind, detail.ID)
	return fact{class: classDetail, text: text, sources: sources}, true
}

// render enforces the character budget: details are dropped from the end of
// the list first, then lists; the summary is never dropped. Sources of
// dropped facts never appear on the block.
func (a *Assembler) render(block *ContextBlock, facts []fact) {
	for len(facts) > 0 && renderedLen(facts, block.Degraded) > a.budget {
		if !dropLast(&facts, classDetail) && !dropLast(&facts, classList) {
			break
		}
	}

	if len(facts) == 0 && !block.Degraded {
		return
	}

	lines := make([]string, 0, len(facts)+1)
	for _, f := range facts {
		lines = append(lines, f.text)
		block.Sources = append(block.Sources, f.sources...)
	}
	if block.Degraded {
		lines = append(lines, degradedMarker)
	}
	block.Text = strings.Join(lines, "\n")
}

func (a *Assembler) degrade(block *ContextBlock, op string, err error) {
	block.Degraded = true
	if a.logger != nil {
		a.logger.Warn("graph fact unavailable, degrading context",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// summaryAlreadySupplied reports whether the most recent assistant turn
// already cited the graph summary.
func summaryAlreadySupplied(prev []convo.Turn) bool {
	for i := len(prev) - 1; i >= 0; i-- {
		if prev[i].Role != convo.RoleAssistant {
			continue
		}
		for _, src := range prev[i].Sources {
			if src.Kind == SourceSummary {
				return true
			}
		}
		return false
	}
	return false
}

func renderedLen(facts []fact, degraded bool) int {
	total := 0
	for _, f := range facts {
		total += len(f.text) + 1
	}
	if degraded {
		total += len(degradedMarker) + 1
	}
	return total
}

// dropLast removes the last fact of the given class. Returns false when none
// of that class remain.
func dropLast(facts *[]fact, class factClass) bool {
	fs := *facts
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].class == class {
			*facts = append(fs[:i], fs[i+1:]...)
			return true
		}
	}
	return false
}

var relationOrder = []string{"runs_on", "hosts", "located_in"}

// relatedKind resolves which entity kind sits on the far side of a relation
// from the perspective of the detailed entity.
func relatedKind(kind graph.Kind, relation string) graph.Kind {
	switch relation {
	case "runs_on":
		if kind == graph.KindServer {
			return graph.KindOS
		}
		return graph.KindServer
	case "hosts":
		if kind == graph.KindServer {
			return graph.KindApplication
		}
		return graph.KindServer
	case "located_in":
		if kind == graph.KindServer {
			return graph.KindLocation
		}
		return graph.KindServer
	}
	return kind
}

func kindLabel(kind graph.Kind) string {
	switch kind {
	case graph.KindServer:
		return "Server"
	case graph.KindApplication:
		return "Application"
	case graph.KindOS:
		return "OS"
	case graph.KindLocation:
		return "Location"
	}
	return string(kind)
}

func kindPlural(kind graph.Kind) string {
	switch kind {
	case graph.KindServer:
		return "servers"
	case graph.KindApplication:
		return "applications"
	case graph.KindOS:
		return "operating systems"
	case graph.KindLocation:
		return "locations"
	}
	return string(kind) + "s"
}
