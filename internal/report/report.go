// Package report renders a validation result for machines and humans.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/raido/internal/models"
)

// Payload is the machine-readable report. It carries the digest, metrics,
// and anomalies of a run but not the full document and link sets, which can
// dwarf the interesting part on large corpora.
type Payload struct {
	CorpusDigest string               `json:"corpus_digest"`
	EntryPoints  []string             `json:"entry_points"`
	Metrics      models.HealthMetrics `json:"metrics"`
	Anomalies    models.AnomalyReport `json:"anomalies"`
}

// NewPayload condenses a result into the report payload.
func NewPayload(res *models.Result) Payload {
	return Payload{
		CorpusDigest: res.CorpusDigest,
		EntryPoints:  res.EntryPoints,
		Metrics:      res.Metrics,
		Anomalies:    res.Anomalies,
	}
}

// JSON renders the report payload as indented JSON with a trailing newline.
func JSON(res *models.Result) ([]byte, error) {
	data, err := json.MarshalIndent(NewPayload(res), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	return append(data, '\n'), nil
}

// Markdown renders the report as a human-readable summary. Sections for
// anomaly classes appear only when the class is non-empty.
func Markdown(res *models.Result) string {
	var b strings.Builder
	m := res.Metrics

	b.WriteString("# Corpus Health Report\n\n")
	fmt.Fprintf(&b, "Corpus digest: `%s`\n\n", res.CorpusDigest)
	if len(res.EntryPoints) > 0 {
		fmt.Fprintf(&b, "Entry points: %s\n\n", strings.Join(res.EntryPoints, ", "))
	}

	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Documents | %d |\n", m.Documents)
	fmt.Fprintf(&b, "| Links | %d |\n", m.Links)
	fmt.Fprintf(&b, "| Valid | %d |\n", m.Valid)
	fmt.Fprintf(&b, "| Broken | %d |\n", m.Broken)
	fmt.Fprintf(&b, "| External | %d |\n", m.External)
	fmt.Fprintf(&b, "| Ambiguous | %d |\n", m.Ambiguous)
	fmt.Fprintf(&b, "| Unresolved | %d |\n", m.Unresolved)
	fmt.Fprintf(&b, "| Orphans | %d |\n", m.Orphans)
	fmt.Fprintf(&b, "| Dead ends | %d |\n", m.DeadEnds)
	fmt.Fprintf(&b, "| Connectivity | %.1f%% |\n", m.ConnectivityScore*100)
	fmt.Fprintf(&b, "| Link health | %.1f%% |\n", m.LinkHealthScore*100)

	writeLinkSection(&b, "Broken Links", res.Anomalies.Broken)
	writeLinkSection(&b, "Ambiguous Links", res.Anomalies.Ambiguous)
	writeLinkSection(&b, "Unresolved References", res.Anomalies.Unresolved)
	writeIDSection(&b, "Orphans", res.Anomalies.Orphans)
	writeIDSection(&b, "Dead Ends", res.Anomalies.DeadEnds)

	return b.String()
}

func writeLinkSection(b *strings.Builder, title string, links []models.ResolvedLink) {
	if len(links) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s (%d)\n\n", title, len(links))
	for _, l := range links {
		fmt.Fprintf(b, "- %s:%d:%d %s `%s`", l.SourceID, l.Line, l.Column, l.Type, l.RawTarget)
		if len(l.Candidates) > 0 {
			fmt.Fprintf(b, " matches %s", strings.Join(l.Candidates, ", "))
		}
		b.WriteByte('\n')
	}
}

func writeIDSection(b *strings.Builder, title string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s (%d)\n\n", title, len(ids))
	for _, id := range ids {
		fmt.Fprintf(b, "- %s\n", id)
	}
}
