// Package pipeline runs the full validation pass over a corpus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/ingest"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/registry"
	"github.com/starford/raido/internal/resolve"
	"github.com/starford/raido/internal/storage"
)

// Concurrency controls the parallel extraction stage. Extraction is the only
// stage that fans out; resolution and graph analysis need the frozen corpus
// view and stay single-threaded.
type Concurrency struct {
	Enabled bool
	Workers int
	// MinDocs is the corpus size below which fan-out is not worth the
	// scheduling overhead.
	MinDocs int
}

// Config carries the validation knobs.
type Config struct {
	EntryPoints    []string
	SkipCodeFences bool
	Concurrency    Concurrency
}

// Pipeline wires storage, extraction, resolution, and graph analysis into
// one validation pass.
type Pipeline struct {
	store  storage.Provider
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline over the given corpus provider.
func New(store storage.Provider, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: store, cfg: cfg, logger: logger}
}

// Run executes one full validation pass. Every run rescans the corpus from
// scratch, so the result is a function of corpus contents and config alone.
// Ingestion violations (duplicate ids, malformed records) abort the run
// before any graph analysis happens; all violations are reported together.
func (p *Pipeline) Run(ctx context.Context) (*models.Result, error) {
	files, err := p.store.List()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	digestEntries := make([]string, 0, len(files))
	docs := make([]*ingest.Document, 0, len(files))
	var violations []error
	for _, fi := range files {
		digestEntries = append(digestEntries, fi.Path+":"+fi.Checksum)
		data, err := p.store.Read(fi.Path)
		if err != nil {
			violations = append(violations, err)
			continue
		}
		doc, err := ingest.Parse(fi.Path, data)
		if err != nil {
			violations = append(violations, err)
			continue
		}
		docs = append(docs, doc)
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("pipeline: corpus rejected: %w", errors.Join(violations...))
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Record.ID < docs[j].Record.ID })

	records := make([]models.DocumentRecord, len(docs))
	for i, d := range docs {
		records[i] = d.Record
	}
	reg, err := registry.New(records)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	occs, err := p.extractAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	resolver := resolve.New(reg.Documents())
	links := make([]models.ResolvedLink, 0, len(occs))
	for _, occ := range occs {
		links = append(links, resolver.Resolve(occ))
	}
	models.SortLinks(links)

	entries := p.entryPoints(reg)
	metrics, anomalies := graph.Validate(reg.Documents(), links, entries)

	p.logger.Info("validation complete",
		slog.Int("documents", metrics.Documents),
		slog.Int("links", metrics.Links),
		slog.Int("broken", metrics.Broken),
		slog.Int("orphans", metrics.Orphans),
	)

	return &models.Result{
		CorpusDigest: checksum.Combine(digestEntries),
		EntryPoints:  entries,
		Documents:    reg.Documents(),
		Links:        links,
		Metrics:      metrics,
		Anomalies:    anomalies,
	}, nil
}

// extractAll scans every document body for occurrences. Results land in
// per-document slots merged in document order, so the concurrent and
// sequential paths produce identical output.
func (p *Pipeline) extractAll(ctx context.Context, docs []*ingest.Document) ([]models.LinkOccurrence, error) {
	opts := extract.Options{SkipCodeFences: p.cfg.SkipCodeFences}
	slots := make([][]models.LinkOccurrence, len(docs))

	c := p.cfg.Concurrency
	if c.Enabled && c.Workers > 1 && len(docs) >= c.MinDocs {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.Workers)
		for i, d := range docs {
			i, d := i, d // per-iteration copies: go.mod targets go 1.21, which shares loop variables across iterations
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				slots[i] = extract.Extract(d.Record.ID, d.Body, d.BodyLine, opts)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("pipeline: extract: %w", err)
		}
	} else {
		for i, d := range docs {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("pipeline: extract: %w", err)
			}
			slots[i] = extract.Extract(d.Record.ID, d.Body, d.BodyLine, opts)
		}
	}

	var out []models.LinkOccurrence
	for _, s := range slots {
		out = append(out, s...)
	}
	return out, nil
}

// entryPoints returns the configured entry points, deduplicated and sorted.
// Unknown ids stay in the list and simply match no document, but they
// usually indicate a stale config so they are logged.
func (p *Pipeline) entryPoints(reg *registry.Registry) []string {
	out := make([]string, 0, len(p.cfg.EntryPoints))
	seen := make(map[string]struct{}, len(p.cfg.EntryPoints))
	for _, id := range p.cfg.EntryPoints {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !reg.Contains(id) {
			p.logger.Warn("entry point not in corpus", slog.String("id", id))
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
