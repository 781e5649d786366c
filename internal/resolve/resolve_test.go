package resolve

import (
	"testing"

	"github.com/starford/raido/internal/models"
)

func occ(typ models.LinkType, source, target string) models.LinkOccurrence {
	return models.LinkOccurrence{SourceID: source, RawTarget: target, Type: typ, Line: 1, Column: 1}
}

func TestResolve_ByID(t *testing.T) {
	r := New([]models.DocumentRecord{{ID: "alpha", Title: "Alpha", Path: "alpha.md"}})
	link := r.Resolve(occ(models.LinkWiki, "src", "alpha"))
	if link.Status != models.StatusValid || link.TargetID != "alpha" {
		t.Errorf("link = %+v", link)
	}
}

func TestResolve_IDBeatsTitle(t *testing.T) {
	// A document whose title equals another document's id must lose to the
	// id match.
	r := New([]models.DocumentRecord{
		{ID: "setup", Title: "Install", Path: "a.md"},
		{ID: "other", Title: "setup", Path: "b.md"},
	})
	link := r.Resolve(occ(models.LinkWiki, "src", "setup"))
	if link.Status != models.StatusValid {
		t.Fatalf("status = %q, want valid", link.Status)
	}
	if link.TargetID != "setup" {
		t.Errorf("target = %q, want id match over title match", link.TargetID)
	}
}

func TestResolve_PathBeatsTitle(t *testing.T) {
	r := New([]models.DocumentRecord{
		{ID: "one", Title: "One", Path: "guides/x.md"},
		{ID: "two", Title: "guides/x.md", Path: "other.md"},
	})
	link := r.Resolve(occ(models.LinkWiki, "src", "guides/x.md"))
	if link.Status != models.StatusValid || link.TargetID != "one" {
		t.Errorf("link = %+v, want path match for one", link)
	}
}

func TestResolve_PathNormalization(t *testing.T) {
	r := New([]models.DocumentRecord{{ID: "setup", Title: "Setup Guide", Path: "guides/setup.md"}})

	for _, target := range []string{
		"guides/setup.md",
		"guides/setup",
		"guides/setup/",
		"./guides/setup.md",
		"guides/setup.markdown",
		"guides/setup.md#install",
	} {
		link := r.Resolve(occ(models.LinkWiki, "src", target))
		if link.Status != models.StatusValid || link.TargetID != "setup" {
			t.Errorf("target %q: link = %+v, want valid setup", target, link)
		}
	}

	if link := r.Resolve(occ(models.LinkWiki, "src", "guides/setup.txt")); link.Status == models.StatusValid {
		t.Errorf("non-markdown extension should not match: %+v", link)
	}
}

func TestResolve_MarkdownRelativePaths(t *testing.T) {
	r := New([]models.DocumentRecord{
		{ID: "intro", Title: "Intro", Path: "intro.md"},
		{ID: "setup", Title: "Setup", Path: "guides/setup.md"},
		{ID: "deploy", Title: "Deploy", Path: "guides/deploy.md"},
	})

	// Sibling reference from inside guides/.
	link := r.Resolve(occ(models.LinkMarkdown, "deploy", "setup.md"))
	if link.Status != models.StatusValid || link.TargetID != "setup" {
		t.Errorf("sibling link = %+v", link)
	}

	// Parent traversal.
	link = r.Resolve(occ(models.LinkMarkdown, "deploy", "../intro.md"))
	if link.Status != models.StatusValid || link.TargetID != "intro" {
		t.Errorf("parent link = %+v", link)
	}

	// Root-relative still works from a nested source.
	link = r.Resolve(occ(models.LinkMarkdown, "deploy", "guides/setup.md"))
	if link.Status != models.StatusValid || link.TargetID != "setup" {
		t.Errorf("root-relative link = %+v", link)
	}

	// Wiki references do not get source-relative treatment.
	link = r.Resolve(occ(models.LinkWiki, "deploy", "setup.md"))
	if link.Status != models.StatusBroken {
		t.Errorf("wiki setup.md from nested source = %+v, want broken", link)
	}
}

func TestResolve_TitleCaseFolded(t *testing.T) {
	r := New([]models.DocumentRecord{{ID: "gs", Title: "Getting Started", Path: "gs.md"}})
	link := r.Resolve(occ(models.LinkWiki, "src", "getting STARTED"))
	if link.Status != models.StatusValid || link.TargetID != "gs" {
		t.Errorf("link = %+v", link)
	}
}

func TestResolve_AliasMatches(t *testing.T) {
	r := New([]models.DocumentRecord{
		{ID: "gs", Title: "Getting Started", Path: "gs.md", Aliases: []string{"quickstart"}},
	})
	link := r.Resolve(occ(models.LinkWiki, "src", "Quickstart"))
	if link.Status != models.StatusValid || link.TargetID != "gs" {
		t.Errorf("link = %+v", link)
	}
}

func TestResolve_AmbiguousTitle(t *testing.T) {
	// Two documents share a title; referencing it must never arbitrarily pick.
	r := New([]models.DocumentRecord{
		{ID: "y-setup", Title: "Setup", Path: "y/setup.md"},
		{ID: "x-setup", Title: "Setup", Path: "x/setup.md"},
	})
	link := r.Resolve(occ(models.LinkWiki, "src", "Setup"))
	if link.Status != models.StatusAmbiguous {
		t.Fatalf("status = %q, want ambiguous", link.Status)
	}
	if link.TargetID != "" {
		t.Errorf("target = %q, want empty on ambiguity", link.TargetID)
	}
	if len(link.Candidates) != 2 || link.Candidates[0] != "x-setup" || link.Candidates[1] != "y-setup" {
		t.Errorf("candidates = %v, want both ids sorted", link.Candidates)
	}
}

func TestResolve_AmbiguousPath(t *testing.T) {
	// Two files normalizing to the same path key surface as a tie.
	r := New([]models.DocumentRecord{
		{ID: "one", Title: "One", Path: "a.md"},
		{ID: "two", Title: "Two", Path: "a.markdown"},
	})
	link := r.Resolve(occ(models.LinkWiki, "src", "a"))
	if link.Status != models.StatusAmbiguous {
		t.Fatalf("status = %q, want ambiguous", link.Status)
	}
	if len(link.Candidates) != 2 {
		t.Errorf("candidates = %v", link.Candidates)
	}
}

func TestResolve_External(t *testing.T) {
	r := New([]models.DocumentRecord{{ID: "a", Title: "A", Path: "a.md"}})

	for _, target := range []string{
		"https://example.com/page",
		"http://example.com",
		"mailto:team@example.com",
		"ftp://host/file",
		"tel:+1555",
	} {
		link := r.Resolve(occ(models.LinkMarkdown, "a", target))
		if link.Status != models.StatusExternal {
			t.Errorf("target %q: status = %q, want external", target, link.Status)
		}
		if link.TargetID != "" {
			t.Errorf("target %q: external link must not carry a target id", target)
		}
	}

	link := r.Resolve(occ(models.LinkMarkdown, "a", "custom://thing"))
	if link.Status != models.StatusBroken {
		t.Errorf("unknown scheme = %q, want broken", link.Status)
	}
}

func TestResolve_Broken(t *testing.T) {
	r := New([]models.DocumentRecord{{ID: "a", Title: "A", Path: "a.md"}})
	link := r.Resolve(occ(models.LinkWiki, "a", "Ghost"))
	if link.Status != models.StatusBroken {
		t.Errorf("status = %q, want broken", link.Status)
	}
	if link.TargetID != "" {
		t.Errorf("broken link must not carry a target id")
	}
}

func TestResolve_CodeFallsBackToUnresolved(t *testing.T) {
	r := New([]models.DocumentRecord{{ID: "api.Validate", Title: "Validate API", Path: "api.md"}})

	// Matching a document id resolves normally.
	link := r.Resolve(occ(models.LinkCode, "src", "api.Validate"))
	if link.Status != models.StatusValid || link.TargetID != "api.Validate" {
		t.Errorf("link = %+v", link)
	}

	// A symbol outside the corpus is unresolved, not broken.
	link = r.Resolve(occ(models.LinkCode, "src", "pkg.Missing"))
	if link.Status != models.StatusUnresolved {
		t.Errorf("status = %q, want unresolved", link.Status)
	}
}

func TestResolve_DeterministicCandidateOrder(t *testing.T) {
	docs := []models.DocumentRecord{
		{ID: "c", Title: "Shared", Path: "c.md"},
		{ID: "a", Title: "Shared", Path: "a.md"},
		{ID: "b", Title: "Shared", Path: "b.md"},
	}
	for i := 0; i < 5; i++ {
		link := New(docs).Resolve(occ(models.LinkWiki, "src", "Shared"))
		if len(link.Candidates) != 3 {
			t.Fatalf("candidates = %v", link.Candidates)
		}
		if link.Candidates[0] != "a" || link.Candidates[1] != "b" || link.Candidates[2] != "c" {
			t.Errorf("candidates = %v, want sorted", link.Candidates)
		}
	}
}
