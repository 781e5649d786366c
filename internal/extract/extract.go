// Package extract scans Markdown bodies for cross-reference occurrences.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
)

// maxContext bounds the diagnostic snippet attached to each occurrence.
const maxContext = 120

var (
	wikiRe     = regexp.MustCompile(`\[\[(.*?)\]\]`)
	markdownRe = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)]+)\)`)
	codeRe     = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_-]*(?:(?:::|->|[.#/])[A-Za-z_][A-Za-z0-9_-]*)+)`")
)

// Options control extraction behavior.
type Options struct {
	// SkipCodeFences drops occurrences found inside ``` / ~~~ fenced blocks.
	SkipCodeFences bool
}

// Extract scans body text and returns every reference occurrence, ordered by
// line then column. bodyLine is the file-absolute 1-based line number of the
// body's first line. Overlapping candidates on a line keep the earliest
// start; malformed syntax produces no occurrence.
func Extract(sourceID, body string, bodyLine int, opts Options) []models.LinkOccurrence {
	var out []models.LinkOccurrence

	inFence := false
	fenceDelim := ""

	for i, line := range strings.Split(body, "\n") {
		if opts.SkipCodeFences {
			if delim := fenceMarker(line); delim != "" {
				if !inFence {
					inFence = true
					fenceDelim = delim
				} else if delim == fenceDelim {
					inFence = false
					fenceDelim = ""
				}
				continue
			}
			if inFence {
				continue
			}
		}

		for _, sp := range scanLine(sourceID, line) {
			occ := sp.occ
			occ.Line = bodyLine + i
			occ.Column = sp.start + 1
			occ.Context = snippet(line)
			out = append(out, occ)
		}
	}
	return out
}

// span is a candidate match with its byte range on the line.
type span struct {
	start, end int
	occ        models.LinkOccurrence
}

// scanLine runs every pattern over one line and resolves overlaps.
func scanLine(sourceID, line string) []span {
	var spans []span

	for _, m := range wikiRe.FindAllStringSubmatchIndex(line, -1) {
		target, alias, typ := splitWikiTarget(line[m[2]:m[3]])
		if target == "" {
			continue
		}
		spans = append(spans, span{start: m[0], end: m[1], occ: models.LinkOccurrence{
			SourceID:  sourceID,
			RawTarget: target,
			Alias:     alias,
			Type:      typ,
		}})
	}

	for _, m := range markdownRe.FindAllStringSubmatchIndex(line, -1) {
		if line[m[2]:m[3]] == "!" {
			// Image embed, names an asset rather than a document.
			continue
		}
		dest := destTarget(line[m[6]:m[7]])
		if dest == "" {
			continue
		}
		spans = append(spans, span{start: m[0], end: m[1], occ: models.LinkOccurrence{
			SourceID:  sourceID,
			RawTarget: dest,
			Alias:     line[m[4]:m[5]],
			Type:      models.LinkMarkdown,
		}})
	}

	for _, m := range codeRe.FindAllStringSubmatchIndex(line, -1) {
		spans = append(spans, span{start: m[0], end: m[1], occ: models.LinkOccurrence{
			SourceID:  sourceID,
			RawTarget: line[m[2]:m[3]],
			Type:      models.LinkCode,
		}})
	}

	return dedupe(spans)
}

// dedupe sorts candidate spans and drops overlaps: earliest start wins, and
// on a shared start the longer match wins.
func dedupe(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		if spans[i].end != spans[j].end {
			return spans[i].end > spans[j].end
		}
		return spans[i].occ.Type < spans[j].occ.Type
	})

	var out []span
	lastEnd := -1
	for _, sp := range spans {
		if sp.start < lastEnd {
			continue
		}
		out = append(out, sp)
		lastEnd = sp.end
	}
	return out
}

// splitWikiTarget handles the alias form: [[Target|Displayed]] resolves by
// Target, the display text is kept for diagnostics only.
func splitWikiTarget(raw string) (string, string, models.LinkType) {
	if i := strings.Index(raw, "|"); i >= 0 {
		return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:]), models.LinkWikiAlias
	}
	return strings.TrimSpace(raw), "", models.LinkWiki
}

// destTarget cleans a markdown link destination: surrounding angle brackets
// are stripped and a trailing link title is dropped.
func destTarget(raw string) string {
	dest := strings.TrimSpace(raw)
	if strings.HasPrefix(dest, "<") && strings.HasSuffix(dest, ">") && len(dest) > 1 {
		return strings.TrimSpace(dest[1 : len(dest)-1])
	}
	fields := strings.Fields(dest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// fenceMarker reports the fence delimiter opening or closing on this line.
func fenceMarker(line string) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~"
	}
	return ""
}

// snippet bounds a context line for diagnostics.
func snippet(line string) string {
	s := strings.TrimSpace(line)
	if len(s) <= maxContext {
		return s
	}
	return s[:maxContext-3] + "..."
}
