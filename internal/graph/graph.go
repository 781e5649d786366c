// Package graph inverts the resolved edge set and computes corpus health.
package graph

import (
	"sort"

	"github.com/starford/raido/internal/models"
)

// Validate classifies every document and link of one run into health metrics
// and an anomaly report. It is a pure function of its inputs: the output is
// canonical regardless of the order links arrive in.
//
// Inbound connectivity counts valid links only. Outbound counts links of any
// status, so a document whose every link is broken is still not a dead end.
// A document with neither direction is reported as both orphan and dead end;
// the two categories answer different questions.
func Validate(docs []models.DocumentRecord, links []models.ResolvedLink, entryPoints []string) (models.HealthMetrics, models.AnomalyReport) {
	entry := make(map[string]struct{}, len(entryPoints))
	for _, id := range entryPoints {
		entry[id] = struct{}{}
	}

	outbound := make(map[string]int, len(docs))
	inbound := Inbound(links)
	for _, l := range links {
		outbound[l.SourceID]++
	}

	metrics := models.HealthMetrics{
		Documents: len(docs),
		Links:     len(links),
	}
	report := models.AnomalyReport{
		Orphans:    []string{},
		DeadEnds:   []string{},
		Broken:     []models.ResolvedLink{},
		Ambiguous:  []models.ResolvedLink{},
		Unresolved: []models.ResolvedLink{},
	}

	for _, l := range links {
		switch l.Status {
		case models.StatusValid:
			metrics.Valid++
		case models.StatusBroken:
			metrics.Broken++
			report.Broken = append(report.Broken, l)
		case models.StatusExternal:
			metrics.External++
		case models.StatusAmbiguous:
			metrics.Ambiguous++
			report.Ambiguous = append(report.Ambiguous, l)
		case models.StatusUnresolved:
			metrics.Unresolved++
			report.Unresolved = append(report.Unresolved, l)
		}
	}

	connected, population := 0, 0
	for _, d := range docs {
		_, isEntry := entry[d.ID]
		hasInbound := len(inbound[d.ID]) > 0

		if !isEntry {
			population++
			if hasInbound {
				connected++
			} else {
				report.Orphans = append(report.Orphans, d.ID)
			}
		}
		if outbound[d.ID] == 0 {
			report.DeadEnds = append(report.DeadEnds, d.ID)
		}
	}
	metrics.Orphans = len(report.Orphans)
	metrics.DeadEnds = len(report.DeadEnds)
	metrics.ConnectivityScore = ratio(connected, population)
	metrics.LinkHealthScore = ratio(metrics.Valid, metrics.Links-metrics.External)

	sort.Strings(report.Orphans)
	sort.Strings(report.DeadEnds)
	models.SortLinks(report.Broken)
	models.SortLinks(report.Ambiguous)
	models.SortLinks(report.Unresolved)

	return metrics, report
}

// Inbound inverts the edge set: for each referenced document, the sorted
// source ids of valid links targeting it. Broken, ambiguous, and unresolved
// links never contribute an edge.
func Inbound(links []models.ResolvedLink) map[string][]string {
	sets := make(map[string]map[string]struct{})
	for _, l := range links {
		if l.Status != models.StatusValid {
			continue
		}
		set := sets[l.TargetID]
		if set == nil {
			set = make(map[string]struct{})
			sets[l.TargetID] = set
		}
		set[l.SourceID] = struct{}{}
	}

	out := make(map[string][]string, len(sets))
	for target, set := range sets {
		sources := make([]string, 0, len(set))
		for s := range set {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		out[target] = sources
	}
	return out
}

// ratio treats an empty denominator as perfect health: nothing measurable is
// missing.
func ratio(num, den int) float64 {
	if den <= 0 {
		return 1.0
	}
	return float64(num) / float64(den)
}
