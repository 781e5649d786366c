// Package ingest turns raw Markdown files into document records.
package ingest

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Document is one ingested file: the immutable record plus the body text the
// extractor scans. BodyLine is the 1-based file line where Body begins, so
// occurrence line numbers can be reported file-absolute.
type Document struct {
	Record   models.DocumentRecord
	Body     string
	BodyLine int
}

// Parse builds a Document from raw Markdown bytes. relPath is the
// corpus-root-relative path; it doubles as the fallback identity, documents
// without an `id:` field use the filename stem.
func Parse(relPath string, data []byte) (*Document, error) {
	fm, body, bodyLine := splitFrontmatter(data)

	stem := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))

	id := stringField(fm, "id")
	if id == "" {
		id = stem
	}
	title := stringField(fm, "title")
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = stem
	}

	rec := models.DocumentRecord{
		ID:        id,
		Title:     title,
		Path:      relPath,
		Category:  models.ParseCategory(stringField(fm, "category")),
		RelatesTo: stringField(fm, "relates_to"),
		Aliases:   stringList(fm, "aliases"),
		Tags:      stringList(fm, "tags"),
	}

	// Knowledge documents must declare what they relate to. Downstream stages
	// trust this and never re-check it.
	if rec.Category == models.CategoryKnowledge && rec.RelatesTo == "" {
		return nil, fmt.Errorf("ingest: %s: knowledge document requires relates_to: %w", relPath, apperr.ErrInvalidDoc)
	}

	return &Document{Record: rec, Body: body, BodyLine: bodyLine}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body and reports the 1-based line the body starts on.
// Missing or invalid frontmatter falls back to treating the whole input as body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, int) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), 1
	}

	// Find end delimiter.
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data), 1
	}

	yamlBlock := rest[:idx]
	afterDelim := string(rest[idx+1+len(delim):])
	body := strings.TrimLeft(afterDelim, "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML, return body only.
		return nil, string(data), 1
	}

	// The body is a suffix of data; count the newlines before it to get its
	// absolute starting line.
	leadOff := len(data) - len(trimmed)
	bodyOff := leadOff + len(delim) + idx + 1 + len(delim) + (len(afterDelim) - len(body))
	line := 1 + bytes.Count(data[:bodyOff], []byte{'\n'})

	return fm, body, line
}

// firstHeading returns the first H1 heading in body, or empty string.
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// stringField fetches a scalar string value from frontmatter.
func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if v, ok := fm[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// stringList fetches a list of strings from frontmatter, dropping blanks.
func stringList(fm map[string]interface{}, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
