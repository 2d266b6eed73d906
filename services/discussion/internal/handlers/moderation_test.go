package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/show-platform/services/discussion/internal/store"
)

func seedReport(t *testing.T, s *store.InMemoryStore, commentID string) store.Report {
	t.Helper()
	r, err := s.Submit(context.Background(), store.Report{
		ReporterID:    "reporter-1",
		CommentID:     commentID,
		Reason:        "abusive",
		ViolationTags: []string{"harassment"},
	})
	if err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return r
}

// ─── SubmitReport ────────────────────────────────────────────────────────────

func TestSubmitReport_OK(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "rude"})

	body, _ := json.Marshal(map[string]any{"reason": "harassment", "violation_tags": []string{"harassment"}})
	req := asUser(paramReq(http.MethodPost, "/v1/comments/"+c.ID+"/reports", "comment_id", c.ID, body), "user-2")

	rr := httptest.NewRecorder()
	SubmitReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp store.Report
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != store.ReportOpen || resp.ReporterID != "user-2" {
		t.Fatalf("unexpected report %+v", resp)
	}
}

func TestSubmitReport_MissingTags(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "rude"})

	body, _ := json.Marshal(map[string]any{"reason": "bad"})
	req := asUser(paramReq(http.MethodPost, "/v1/comments/"+c.ID+"/reports", "comment_id", c.ID, body), "user-2")

	rr := httptest.NewRecorder()
	SubmitReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSubmitReport_UnknownTag(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "rude"})

	body, _ := json.Marshal(map[string]any{"reason": "bad", "violation_tags": []string{"not-a-tag"}})
	req := asUser(paramReq(http.MethodPost, "/v1/comments/"+c.ID+"/reports", "comment_id", c.ID, body), "user-2")

	rr := httptest.NewRecorder()
	SubmitReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSubmitReport_CommentGone(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	body, _ := json.Marshal(map[string]any{"reason": "bad", "violation_tags": []string{"spam"}})
	req := asUser(paramReq(http.MethodPost, "/v1/comments/nope/reports", "comment_id", "nope", body), "user-2")

	rr := httptest.NewRecorder()
	SubmitReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// ─── ListOpenReports ─────────────────────────────────────────────────────────

func TestListOpenReports_OK(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "rude"})
	seedReport(t, s, c.ID)

	req := asUser(paramReq(http.MethodGet, "/v1/moderation/reports", "", "", nil), "mod-1")
	rr := httptest.NewRecorder()
	ListOpenReports(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp openReportsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(resp.Reports))
	}
	if resp.Reports[0].CommentBody != "rude" {
		t.Fatalf("expected comment context, got %+v", resp.Reports[0])
	}
}

// ─── DismissReport / ResolveReport ───────────────────────────────────────────

func TestDismissReport_OK(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "fine"})
	r := seedReport(t, s, c.ID)

	req := asUser(paramReq(http.MethodPost, "/v1/moderation/reports/"+r.ID+"/dismiss", "report_id", r.ID, nil), "mod-1")
	rr := httptest.NewRecorder()
	DismissReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDismissReport_AlreadyClosed(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "fine"})
	r := seedReport(t, s, c.ID)
	if err := s.Dismiss(context.Background(), r.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	req := asUser(paramReq(http.MethodPost, "/v1/moderation/reports/"+r.ID+"/dismiss", "report_id", r.ID, nil), "mod-1")
	rr := httptest.NewRecorder()
	DismissReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestResolveReport_OK(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "borderline"})
	r := seedReport(t, s, c.ID)

	body, _ := json.Marshal(map[string]string{"note": "warned the author"})
	req := asUser(paramReq(http.MethodPost, "/v1/moderation/reports/"+r.ID+"/resolve", "report_id", r.ID, body), "mod-1")

	rr := httptest.NewRecorder()
	ResolveReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestResolveReport_NotFound(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	body, _ := json.Marshal(map[string]string{"note": "x"})
	req := asUser(paramReq(http.MethodPost, "/v1/moderation/reports/nope/resolve", "report_id", "nope", body), "mod-1")

	rr := httptest.NewRecorder()
	ResolveReport(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// ─── RemoveComment ───────────────────────────────────────────────────────────

func TestRemoveComment_OK(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	c := seedComment(t, s, store.Comment{EpisodeID: "ep-1", AuthorID: "user-1", Body: "abusive"})
	seedReport(t, s, c.ID)

	req := asUser(paramReq(http.MethodDelete, "/v1/moderation/comments/"+c.ID, "comment_id", c.ID, nil), "mod-1")
	rr := httptest.NewRecorder()
	RemoveComment(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}

	// The queue is empty afterwards.
	open, err := s.ListOpen(context.Background())
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open reports, got %d", len(open))
	}
}

func TestRemoveComment_NotFound(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	req := asUser(paramReq(http.MethodDelete, "/v1/moderation/comments/nope", "comment_id", "nope", nil), "mod-1")
	rr := httptest.NewRecorder()
	RemoveComment(s, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// ─── ListViolations ──────────────────────────────────────────────────────────

func TestListViolations_OK(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	req := asUser(paramReq(http.MethodGet, "/v1/moderation/violations", "", "", nil), "user-1")
	rr := httptest.NewRecorder()
	ListViolations(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp violationsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Violations) != len(store.DefaultViolations) {
		t.Fatalf("expected %d violations, got %d", len(store.DefaultViolations), len(resp.Violations))
	}
}
