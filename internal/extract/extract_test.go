package extract

import (
	"strings"
	"testing"

	"github.com/starford/raido/internal/models"
)

func TestExtract_WikiForms(t *testing.T) {
	body := "See [[Note A]] and [[Note B|friendly name]]."
	occs := Extract("src", body, 1, Options{})
	if len(occs) != 2 {
		t.Fatalf("len(occs) = %d, want 2", len(occs))
	}
	if occs[0].Type != models.LinkWiki || occs[0].RawTarget != "Note A" {
		t.Errorf("first = %+v", occs[0])
	}
	if occs[0].Column != 5 {
		t.Errorf("first column = %d, want 5", occs[0].Column)
	}
	if occs[1].Type != models.LinkWikiAlias || occs[1].RawTarget != "Note B" {
		t.Errorf("second = %+v", occs[1])
	}
	if occs[1].Alias != "friendly name" {
		t.Errorf("alias = %q", occs[1].Alias)
	}
}

func TestExtract_MarkdownLink(t *testing.T) {
	occs := Extract("src", "Read [the guide](guides/setup.md) today.", 1, Options{})
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
	o := occs[0]
	if o.Type != models.LinkMarkdown {
		t.Errorf("type = %q", o.Type)
	}
	if o.RawTarget != "guides/setup.md" {
		t.Errorf("target = %q", o.RawTarget)
	}
	if o.Alias != "the guide" {
		t.Errorf("alias = %q", o.Alias)
	}
	if o.Column != 6 {
		t.Errorf("column = %d, want 6", o.Column)
	}
}

func TestExtract_MarkdownLinkWithTitle(t *testing.T) {
	occs := Extract("src", `See [home](index.md "Start here").`, 1, Options{})
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
	if occs[0].RawTarget != "index.md" {
		t.Errorf("target = %q, want index.md", occs[0].RawTarget)
	}
}

func TestExtract_ImageEmbedSkipped(t *testing.T) {
	occs := Extract("src", "![diagram](assets/arch.png) and [real](doc.md)", 1, Options{})
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1 (image skipped)", len(occs))
	}
	if occs[0].RawTarget != "doc.md" {
		t.Errorf("target = %q", occs[0].RawTarget)
	}
}

func TestExtract_CodeReference(t *testing.T) {
	occs := Extract("src", "Call `api.Validate` or see `internal/resolve`.", 1, Options{})
	if len(occs) != 2 {
		t.Fatalf("len(occs) = %d, want 2", len(occs))
	}
	if occs[0].Type != models.LinkCode || occs[0].RawTarget != "api.Validate" {
		t.Errorf("first = %+v", occs[0])
	}
	if occs[1].RawTarget != "internal/resolve" {
		t.Errorf("second target = %q", occs[1].RawTarget)
	}
}

func TestExtract_PlainCodeSpanIgnored(t *testing.T) {
	// A single identifier with no separator is formatting, not a reference.
	occs := Extract("src", "Use `flag` to toggle.", 1, Options{})
	if len(occs) != 0 {
		t.Errorf("occs = %v, want none", occs)
	}
}

func TestExtract_EmptyAndMalformed(t *testing.T) {
	body := "[[ ]] then [[|alias]] then [[never closed and [x]()"
	occs := Extract("src", body, 1, Options{})
	if len(occs) != 0 {
		t.Errorf("occs = %v, want none", occs)
	}
}

func TestExtract_LineAndColumnNumbers(t *testing.T) {
	body := "first [[A]]\nsecond line\n  third [[B]]"
	occs := Extract("src", body, 10, Options{})
	if len(occs) != 2 {
		t.Fatalf("len(occs) = %d, want 2", len(occs))
	}
	if occs[0].Line != 10 || occs[0].Column != 7 {
		t.Errorf("first at %d:%d, want 10:7", occs[0].Line, occs[0].Column)
	}
	if occs[1].Line != 12 || occs[1].Column != 9 {
		t.Errorf("second at %d:%d, want 12:9", occs[1].Line, occs[1].Column)
	}
}

func TestExtract_OrderWithinLine(t *testing.T) {
	occs := Extract("src", "a [x](y.md) then [[B]] then `c.d`", 1, Options{})
	if len(occs) != 3 {
		t.Fatalf("len(occs) = %d, want 3", len(occs))
	}
	for i := 1; i < len(occs); i++ {
		if occs[i].Column <= occs[i-1].Column {
			t.Errorf("columns not ascending: %d then %d", occs[i-1].Column, occs[i].Column)
		}
	}
}

func TestExtract_OverlapKeepsEarliestStart(t *testing.T) {
	occs := Extract("src", "[see `a.b` docs](x.md)", 1, Options{})
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
	if occs[0].Type != models.LinkMarkdown || occs[0].RawTarget != "x.md" {
		t.Errorf("occ = %+v, want the enclosing markdown link", occs[0])
	}
}

func TestExtract_FencedBlocks(t *testing.T) {
	body := "before [[A]]\n```\ninside [[B]]\n```\nafter [[C]]\n"

	all := Extract("src", body, 1, Options{})
	if len(all) != 3 {
		t.Errorf("default extracts everywhere: got %d occurrences, want 3", len(all))
	}

	skipped := Extract("src", body, 1, Options{SkipCodeFences: true})
	if len(skipped) != 2 {
		t.Fatalf("with skip: got %d occurrences, want 2", len(skipped))
	}
	for _, o := range skipped {
		if o.RawTarget == "B" {
			t.Error("fenced occurrence should have been skipped")
		}
	}
}

func TestExtract_FenceDelimitersMustMatch(t *testing.T) {
	// A ``` line inside a ~~~ fence does not close it.
	body := "~~~\n```\n[[hidden]]\n~~~\n[[visible]]\n"
	occs := Extract("src", body, 1, Options{SkipCodeFences: true})
	if len(occs) != 1 || occs[0].RawTarget != "visible" {
		t.Errorf("occs = %+v, want only visible", occs)
	}
}

func TestExtract_ContextBounded(t *testing.T) {
	long := "[[T]] " + strings.Repeat("x", 200)
	occs := Extract("src", long, 1, Options{})
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
	if len(occs[0].Context) != 120 {
		t.Errorf("context length = %d, want 120", len(occs[0].Context))
	}
	if !strings.HasSuffix(occs[0].Context, "...") {
		t.Errorf("long context should be truncated with ellipsis")
	}
}

func TestExtract_ContextIsTrimmedLine(t *testing.T) {
	occs := Extract("src", "   padded [[A]] line   ", 1, Options{})
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
	if occs[0].Context != "padded [[A]] line" {
		t.Errorf("context = %q", occs[0].Context)
	}
}
