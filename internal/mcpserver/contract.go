package mcpserver

// ReferenceSyntaxContract documents the reference forms Raido recognizes and
// the order targets resolve in, for LLM consumers repairing a corpus.
const ReferenceSyntaxContract = `# Raido Reference Syntax

How cross-references in a Markdown corpus are recognized and resolved.

## Recognized forms

1. **Wikilink**: ` + "`" + `[[target]]` + "`" + ` resolves by target.
2. **Aliased wikilink**: ` + "`" + `[[target|display text]]` + "`" + ` resolves by target;
   the display text is kept for diagnostics only.
3. **Markdown link**: ` + "`" + `[text](target)` + "`" + `. Image embeds
   (` + "`" + `![alt](src)` + "`" + `) name assets, not documents, and are never references.
4. **Code reference**: a backtick-quoted symbol chain such as ` + "`" + `pkg.Symbol` + "`" + `,
   ` + "`" + `module::item` + "`" + `, ` + "`" + `handlers->render` + "`" + ` or ` + "`" + `api/v1#auth` + "`" + `. A lone
   identifier with no separator is plain code, not a reference.

References inside ` + "```" + ` or ~~~ fenced blocks are skipped when
` + "`" + `corpus.skip_code_fences` + "`" + ` is enabled.

## Resolution order

Each reference tries these strategies in order; the first one producing
candidates decides the outcome.

1. **Exact id.** The target equals a document id verbatim (case-sensitive).
2. **Path.** The target read as a corpus file path: slash-cleaned, trailing
   slash dropped, ` + "`" + `.md` + "`" + `/` + "`" + `.markdown` + "`" + ` extension and any ` + "`" + `#fragment` + "`" + `
   ignored. Markdown destinations try the source document's directory first,
   then the corpus root.
3. **Title or alias.** Case-insensitive match on frontmatter ` + "`" + `title` + "`" + ` or
   any ` + "`" + `aliases` + "`" + ` entry. Exactly one candidate resolves; several mark the
   reference ambiguous and every candidate is reported.
4. **External.** Targets starting with http://, https://, ftp://, ftps://,
   mailto: or tel: point outside the corpus and are never matched against it.

Anything left over is **broken** for wikilinks and markdown links, or
**unresolved** for code references (the symbol may live outside the corpus).
There is no fuzzy matching.

## Statuses

valid | broken | external | ambiguous | unresolved

Graph edges come from valid links only. An orphan is a document no valid
link points to (entry points are exempt); a dead end has no outbound
references of any status.

## Frontmatter fields that participate

` + "```" + `markdown
---
id: guides/setup        # optional; defaults to the filename stem
title: Setting Up       # optional; defaults to the first # heading
aliases:                # optional; join title resolution
  - setup guide
category: knowledge     # knowledge documents must declare relates_to
relates_to: user-guide
tags:
  - onboarding
---
` + "```" + `
`
