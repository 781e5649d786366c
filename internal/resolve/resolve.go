// Package resolve turns raw link occurrences into resolved links using
// lookup indices built once per validation run.
package resolve

import (
	"path"
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
)

// externalSchemes is the closed set of prefixes classified as external.
var externalSchemes = []string{"http://", "https://", "ftp://", "ftps://", "mailto:", "tel:"}

// Resolver holds the per-run indices. Build once with New, then treat as
// read-only; Resolve is safe for concurrent use on a built Resolver.
type Resolver struct {
	ids     map[string]struct{}
	paths   map[string][]string // normalized path → candidate IDs, sorted
	titles  map[string][]string // folded title or alias → candidate IDs, sorted
	docPath map[string]string   // document ID → corpus path
}

// New builds the resolution indices from the full registry contents.
func New(docs []models.DocumentRecord) *Resolver {
	r := &Resolver{
		ids:     make(map[string]struct{}, len(docs)),
		paths:   make(map[string][]string, len(docs)),
		titles:  make(map[string][]string, len(docs)),
		docPath: make(map[string]string, len(docs)),
	}
	for _, d := range docs {
		r.ids[d.ID] = struct{}{}
		r.docPath[d.ID] = d.Path
		if p := normalizePath(d.Path); p != "" {
			r.paths[p] = append(r.paths[p], d.ID)
		}
		if f := fold(d.Title); f != "" {
			r.titles[f] = append(r.titles[f], d.ID)
		}
		for _, alias := range d.Aliases {
			if f := fold(alias); f != "" {
				r.titles[f] = append(r.titles[f], d.ID)
			}
		}
	}
	for _, m := range []map[string][]string{r.paths, r.titles} {
		for k := range m {
			m[k] = sortedUnique(m[k])
		}
	}
	return r
}

// Resolve classifies one occurrence. Strategies run in a fixed order (id,
// then path, then title, then external scheme) and the first strategy
// yielding candidates decides the outcome: exactly one candidate is valid,
// more than one is ambiguous. Ties are never silently broken, and nothing
// here matches approximately beyond case folding and path normalization.
func (r *Resolver) Resolve(occ models.LinkOccurrence) models.ResolvedLink {
	link := models.ResolvedLink{LinkOccurrence: occ}
	target := strings.TrimSpace(occ.RawTarget)

	if _, ok := r.ids[target]; ok {
		link.TargetID = target
		link.Status = models.StatusValid
		return link
	}

	if ids := r.pathCandidates(occ, target); len(ids) > 0 {
		return withCandidates(link, ids)
	}

	if ids := r.titles[fold(target)]; len(ids) > 0 {
		return withCandidates(link, ids)
	}

	if isExternal(target) {
		link.Status = models.StatusExternal
		return link
	}

	// Code references name symbols that live outside the corpus; one that
	// matches no document is advisory, not a broken link.
	if occ.Type == models.LinkCode {
		link.Status = models.StatusUnresolved
		return link
	}

	link.Status = models.StatusBroken
	return link
}

func withCandidates(link models.ResolvedLink, ids []string) models.ResolvedLink {
	if len(ids) == 1 {
		link.TargetID = ids[0]
		link.Status = models.StatusValid
		return link
	}
	link.Status = models.StatusAmbiguous
	link.Candidates = ids
	return link
}

// pathCandidates looks the target up as a corpus path. Markdown destinations
// are written relative to the containing file, so those try the source
// directory first, then the corpus root.
func (r *Resolver) pathCandidates(occ models.LinkOccurrence, target string) []string {
	if occ.Type == models.LinkMarkdown {
		if src, ok := r.docPath[occ.SourceID]; ok {
			if p := normalizePath(path.Join(path.Dir(src), target)); p != "" {
				if ids, ok := r.paths[p]; ok {
					return ids
				}
			}
		}
	}
	if p := normalizePath(target); p != "" {
		return r.paths[p]
	}
	return nil
}

// normalizePath canonicalizes a path for index lookup: slash-cleaned,
// root-relative, trailing slash dropped, Markdown extension and any
// #fragment stripped. Case is preserved; only titles fold.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return ""
	}
	// Cleaning against a synthetic root keeps ../ from escaping upward.
	p = path.Clean("/" + p)[1:]
	if p == "" {
		return ""
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		p = strings.TrimSuffix(p, path.Ext(p))
	}
	return p
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isExternal reports whether the target carries a recognized URL scheme.
// The scheme set is closed: anything else is a resolution miss, never an
// external.
func isExternal(target string) bool {
	lower := strings.ToLower(target)
	for _, scheme := range externalSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

func sortedUnique(ids []string) []string {
	sort.Strings(ids)
	var out []string
	for _, id := range ids {
		if len(out) == 0 || out[len(out)-1] != id {
			out = append(out, id)
		}
	}
	return out
}
