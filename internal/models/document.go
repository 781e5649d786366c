// Package models defines the domain types for Raido.
package models

import "sort"

// DocCategory classifies a document's role in the corpus.
type DocCategory string

const (
	CategoryKnowledge DocCategory = "knowledge"
	CategoryGuide     DocCategory = "guide"
	CategoryReference DocCategory = "reference"
	CategoryNote      DocCategory = "note"
)

// ParseCategory maps a frontmatter category string to a DocCategory.
// Unknown or empty values fall back to CategoryNote.
func ParseCategory(s string) DocCategory {
	switch DocCategory(s) {
	case CategoryKnowledge, CategoryGuide, CategoryReference, CategoryNote:
		return DocCategory(s)
	}
	return CategoryNote
}

// LinkType identifies the syntactic form a reference was written in.
type LinkType string

const (
	LinkWiki      LinkType = "wiki"       // [[Target]]
	LinkWikiAlias LinkType = "wiki_alias" // [[Target|display text]]
	LinkMarkdown  LinkType = "markdown"   // [text](dest)
	LinkCode      LinkType = "code"       // `pkg.Symbol` or `dir/file.md`
)

// LinkStatus is the outcome of resolving a reference against the registry.
type LinkStatus string

const (
	StatusValid      LinkStatus = "valid"
	StatusBroken     LinkStatus = "broken"
	StatusExternal   LinkStatus = "external"
	StatusAmbiguous  LinkStatus = "ambiguous"
	StatusUnresolved LinkStatus = "unresolved"
)

// DocumentRecord is the registry's view of one Markdown file. Records are
// immutable once ingested; all graph edges refer to documents by ID.
type DocumentRecord struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Path      string      `json:"path"`
	Category  DocCategory `json:"category"`
	RelatesTo string      `json:"relates_to,omitempty"`
	Aliases   []string    `json:"aliases,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
}

// LinkOccurrence is one raw reference found in a document body, before
// resolution. Line and Column are 1-based and file-absolute.
type LinkOccurrence struct {
	SourceID  string   `json:"source_id"`
	RawTarget string   `json:"raw_target"`
	Alias     string   `json:"alias,omitempty"`
	Type      LinkType `json:"type"`
	Line      int      `json:"line"`
	Column    int      `json:"column"`
	Context   string   `json:"context,omitempty"`
}

// ResolvedLink is an occurrence after resolution. TargetID is set only for
// valid links; Candidates is populated only for ambiguous ones.
type ResolvedLink struct {
	LinkOccurrence
	TargetID   string     `json:"target_id,omitempty"`
	Status     LinkStatus `json:"status"`
	Candidates []string   `json:"candidates,omitempty"`
}

// HealthMetrics summarizes one validation run. Scores are in [0,1]; a score
// with an empty denominator reports 1.0. Metrics carry no timestamps so that
// repeated runs over an unchanged corpus serialize identically.
type HealthMetrics struct {
	Documents         int     `json:"documents"`
	Links             int     `json:"links"`
	Valid             int     `json:"valid"`
	Broken            int     `json:"broken"`
	External          int     `json:"external"`
	Ambiguous         int     `json:"ambiguous"`
	Unresolved        int     `json:"unresolved"`
	Orphans           int     `json:"orphans"`
	DeadEnds          int     `json:"dead_ends"`
	ConnectivityScore float64 `json:"connectivity_score"`
	LinkHealthScore   float64 `json:"link_health_score"`
}

// AnomalyReport lists everything a maintainer should look at. Document ID
// slices are sorted; link slices are sorted by source, line, column.
type AnomalyReport struct {
	Orphans    []string       `json:"orphans"`
	DeadEnds   []string       `json:"dead_ends"`
	Broken     []ResolvedLink `json:"broken"`
	Ambiguous  []ResolvedLink `json:"ambiguous"`
	Unresolved []ResolvedLink `json:"unresolved"`
}

// Result is the complete outcome of one validation run: the corpus as
// ingested, every resolved link, and the derived health summary.
type Result struct {
	CorpusDigest string           `json:"corpus_digest"`
	EntryPoints  []string         `json:"entry_points"`
	Documents    []DocumentRecord `json:"documents"`
	Links        []ResolvedLink   `json:"links"`
	Metrics      HealthMetrics    `json:"metrics"`
	Anomalies    AnomalyReport    `json:"anomalies"`
}

// SortLinks puts links in canonical order: source, line, column, with raw
// target and type as final tie-breaks so the order is total.
func SortLinks(links []ResolvedLink) {
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.RawTarget != b.RawTarget {
			return a.RawTarget < b.RawTarget
		}
		return a.Type < b.Type
	})
}

// Document returns the record with the given ID, or nil.
func (r *Result) Document(id string) *DocumentRecord {
	for i := range r.Documents {
		if r.Documents[i].ID == id {
			return &r.Documents[i]
		}
	}
	return nil
}

// Backlinks returns the valid links pointing at the given document ID,
// in the canonical link order.
func (r *Result) Backlinks(id string) []ResolvedLink {
	var out []ResolvedLink
	for _, l := range r.Links {
		if l.Status == StatusValid && l.TargetID == id {
			out = append(out, l)
		}
	}
	return out
}
