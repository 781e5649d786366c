package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/docservice"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/testutil"
)

// corpusFiles is the default fixture: a links to b, b links to a missing
// document, c is isolated.
func corpusFiles() map[string]string {
	return map[string]string{
		"a.md": "# A\n\nSee [[b]].\n",
		"b.md": "# B\n\nSee [[missing]].\n",
		"c.md": "# C\n\nNothing linked.\n",
	}
}

// buildEnv sets up a temp corpus, SQLite snapshot store, service, and router.
// No validation pass has run yet.
func buildEnv(t *testing.T, files map[string]string, authEnabled bool, token string, events http.Handler) (*docservice.Service, http.Handler) {
	t.Helper()

	_, store := testutil.TestCorpus(t, files)
	snap := testutil.TestSnapshot(t)

	broker := sse.NewBroker()
	t.Cleanup(broker.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipe := pipeline.New(store, pipeline.Config{}, logger)
	svc := docservice.NewService(store, pipe, snap, broker, logger)
	return svc, NewRouter(svc, authEnabled, token, events)
}

// testEnv builds an env over the default fixture and seeds it with one
// validation pass. authToken="" means disabled mode.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()
	svc, router := buildEnv(t, corpusFiles(), authToken != "", authToken, nil)
	if _, err := svc.Validate(context.Background(), "startup"); err != nil {
		t.Fatalf("seed validation: %v", err)
	}
	return svc, router
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestReportEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/report")
	if w.Code != http.StatusOK {
		t.Fatalf("report = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["corpus_digest"] == "" {
		t.Error("corpus_digest missing")
	}
	metrics := resp["metrics"].(map[string]any)
	if metrics["documents"].(float64) != 3 {
		t.Errorf("documents = %v, want 3", metrics["documents"])
	}
	if metrics["broken"].(float64) != 1 {
		t.Errorf("broken = %v, want 1", metrics["broken"])
	}
	if _, ok := resp["anomalies"]; !ok {
		t.Error("anomalies missing from report payload")
	}
}

func TestReportBeforeFirstRun(t *testing.T) {
	_, router := buildEnv(t, corpusFiles(), false, "", nil)

	w := get(t, router, "/report")
	if w.Code != http.StatusNotFound {
		t.Errorf("report before run = %d, want 404", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/documents")
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	docs := resp["documents"].([]any)
	if len(docs) != 3 {
		t.Fatalf("len(documents) = %d, want 3", len(docs))
	}
	if resp["total"].(float64) != 3 {
		t.Errorf("total = %v, want 3", resp["total"])
	}
	first := docs[0].(map[string]any)
	if first["id"] != "a" {
		t.Errorf("first id = %v, want a (sorted)", first["id"])
	}
}

func TestGetDocument(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/documents/b")
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.ID != "b" {
		t.Errorf("id = %q, want b", doc.ID)
	}
	if len(doc.Backlinks) != 1 || doc.Backlinks[0] != "a" {
		t.Errorf("backlinks = %v, want [a]", doc.Backlinks)
	}
	if !strings.Contains(doc.Content, "[[missing]]") {
		t.Errorf("content = %q, want raw markdown body", doc.Content)
	}
}

func TestGetDocument_NestedID(t *testing.T) {
	svc, router := buildEnv(t, map[string]string{
		"index.md":        "# Index\n\nSee [guide](guides/setup.md).\n",
		"guides/setup.md": "---\nid: guides/setup\n---\n\n# Setup\n",
	}, false, "", nil)
	if _, err := svc.Validate(context.Background(), "startup"); err != nil {
		t.Fatalf("seed validation: %v", err)
	}

	w := get(t, router, "/documents/guides/setup")
	if w.Code != http.StatusOK {
		t.Fatalf("nested get = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.ID != "guides/setup" {
		t.Errorf("id = %q, want guides/setup", doc.ID)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/documents/ghost")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document = %d, want 404", w.Code)
	}
}

func TestGraphEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	nodes := resp["nodes"].([]any)
	edges := resp["edges"].([]any)
	if len(nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(nodes))
	}
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(edges))
	}
	edge := edges[0].(map[string]any)
	if edge["source"] != "a" || edge["target"] != "b" {
		t.Errorf("edge = %v, want a -> b", edge)
	}
}

func TestAnomaliesEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/anomalies")
	if w.Code != http.StatusOK {
		t.Fatalf("anomalies = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	broken := resp["broken"].([]any)
	if len(broken) != 1 {
		t.Errorf("broken = %d, want 1", len(broken))
	}
	orphans := resp["orphans"].([]any)
	if len(orphans) != 2 {
		t.Errorf("orphans = %v, want [a c]", orphans)
	}
}

func TestValidateEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/validate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("validate = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	metrics := resp["metrics"].(map[string]any)
	if metrics["broken"].(float64) != 1 {
		t.Errorf("broken = %v, want 1", metrics["broken"])
	}
}

func TestValidateEndpoint_CorpusViolation(t *testing.T) {
	_, router := buildEnv(t, map[string]string{
		"one.md": "---\nid: dup\n---\n\n# One\n",
		"two.md": "---\nid: dup\n---\n\n# Two\n",
	}, false, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/validate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("validate on broken corpus = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dup") {
		t.Errorf("body = %s, want offending id named", w.Body.String())
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed report = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := get(t, router, "/report")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/report")
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until the request context is done.
func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := buildEnv(t, corpusFiles(), true, "secret", sseStub())

	w := get(t, router, "/events")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := buildEnv(t, corpusFiles(), true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
