// Package docservice coordinates validation runs and read access to the
// latest snapshot for the serving layer.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/snapshot"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
)

// DocumentDetail is the full representation of one document: its record,
// who links to it, and the raw file content.
type DocumentDetail struct {
	models.DocumentRecord
	Backlinks []string `json:"backlinks"`
	Content   string   `json:"content"`
}

// GraphNode is one document in the graph view.
type GraphNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// GraphEdge is one deduplicated valid link.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphView is the graph visualization payload.
type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Service runs validation passes and answers reads from the latest snapshot.
type Service struct {
	store  storage.Provider
	pipe   *pipeline.Pipeline
	snap   *snapshot.Store
	broker *sse.Broker
	logger *slog.Logger

	// validateMu serializes passes so snapshot runs land in trigger order.
	validateMu sync.Mutex
}

// NewService creates a document service.
func NewService(store storage.Provider, pipe *pipeline.Pipeline, snap *snapshot.Store, broker *sse.Broker, logger *slog.Logger) *Service {
	return &Service{store: store, pipe: pipe, snap: snap, broker: broker, logger: logger}
}

// Validate runs one full pass and stores the result as the newest snapshot
// run. trigger names what kicked it off ("startup", "watcher", "api", "mcp").
// A failed pass leaves the previous snapshot in place.
func (s *Service) Validate(ctx context.Context, trigger string) (*models.Result, error) {
	s.validateMu.Lock()
	defer s.validateMu.Unlock()

	s.broker.PublishValidationStarted(trigger)
	res, err := s.pipe.Run(ctx)
	if err != nil {
		s.logger.Error("validation failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		return nil, err
	}
	if _, err := s.snap.SaveRun(res); err != nil {
		return nil, fmt.Errorf("docservice: %w", err)
	}
	s.broker.PublishValidationCompleted(res.Metrics)
	return res, nil
}

// Ready reports whether at least one validation run has completed.
func (s *Service) Ready() bool {
	_, err := s.snap.LatestResult()
	return err == nil
}

// Report returns the latest run's full result.
func (s *Service) Report(_ context.Context) (*models.Result, error) {
	return s.snap.LatestResult()
}

// Documents returns the latest run's document records in id order.
func (s *Service) Documents(_ context.Context) ([]models.DocumentRecord, error) {
	docs, err := s.snap.Documents()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(docs), nil
}

// Document returns one document with backlinks and raw content.
func (s *Service) Document(_ context.Context, id string) (*DocumentDetail, error) {
	rec, err := s.snap.Document(id)
	if err != nil {
		return nil, err
	}
	bl, err := s.snap.Backlinks(id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(rec.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("docservice: %s vanished since last run: %w", rec.Path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return &DocumentDetail{
		DocumentRecord: rec,
		Backlinks:      nonNilSlice(bl),
		Content:        string(data),
	}, nil
}

// Backlinks returns the ids of documents that validly link to id.
func (s *Service) Backlinks(_ context.Context, id string) ([]string, error) {
	if _, err := s.snap.Document(id); err != nil {
		return nil, err
	}
	bl, err := s.snap.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(bl), nil
}

// Anomalies returns the latest run's anomaly report.
func (s *Service) Anomalies(_ context.Context) (*models.AnomalyReport, error) {
	res, err := s.snap.LatestResult()
	if err != nil {
		return nil, err
	}
	return &res.Anomalies, nil
}

// Graph returns nodes and deduplicated valid edges for visualization.
func (s *Service) Graph(_ context.Context) (*GraphView, error) {
	res, err := s.snap.LatestResult()
	if err != nil {
		return nil, err
	}
	return buildGraph(res), nil
}

func buildGraph(res *models.Result) *GraphView {
	type edgeKey struct{ source, target string }
	seen := make(map[edgeKey]struct{})
	edges := []GraphEdge{}
	for _, l := range res.Links {
		if l.Status != models.StatusValid {
			continue
		}
		k := edgeKey{l.SourceID, l.TargetID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		edges = append(edges, GraphEdge{Source: l.SourceID, Target: l.TargetID})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	inbound := make(map[string]int)
	outbound := make(map[string]int)
	for _, e := range edges {
		outbound[e.Source]++
		inbound[e.Target]++
	}

	nodes := make([]GraphNode, len(res.Documents))
	for i, d := range res.Documents {
		nodes[i] = GraphNode{
			ID:       d.ID,
			Title:    d.Title,
			Category: string(d.Category),
			Inbound:  inbound[d.ID],
			Outbound: outbound[d.ID],
		}
	}
	return &GraphView{Nodes: nodes, Edges: edges}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
