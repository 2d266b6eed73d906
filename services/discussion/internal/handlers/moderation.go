package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/show-platform/internal/platform/api"
	"github.com/example/show-platform/internal/platform/auth"
	"github.com/example/show-platform/internal/platform/events"
	"github.com/example/show-platform/services/discussion/internal/store"
)

type submitReportRequest struct {
	Reason        string   `json:"reason"`
	ViolationTags []string `json:"violation_tags"`
}

type resolveReportRequest struct {
	Note string `json:"note"`
}

type openReportsResponse struct {
	Reports []store.ReportDetail `json:"reports"`
}

type violationsResponse struct {
	Violations []store.Violation `json:"violations"`
}

// SubmitReport handles POST /v1/comments/{comment_id}/reports.
func SubmitReport(rs store.ReportStore, ev *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}

		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", "", nil)
			return
		}

		var req submitReportRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if strings.TrimSpace(req.Reason) == "" {
			api.BadRequest(w, "EMPTY_REASON", "reason must not be empty", "", nil)
			return
		}
		if len(req.ViolationTags) == 0 {
			api.BadRequest(w, "MISSING_TAGS", "at least one violation tag is required", "", nil)
			return
		}

		created, err := rs.Submit(r.Context(), store.Report{
			ReporterID:    userID,
			CommentID:     commentID,
			Reason:        req.Reason,
			ViolationTags: req.ViolationTags,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		ev.Publish(events.SubjectReportSubmitted, "report_submitted", userID, map[string]any{
			"report_id":  created.ID,
			"comment_id": commentID,
			"tags":       created.ViolationTags,
		})
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// ListOpenReports handles GET /v1/moderation/reports (moderator only).
func ListOpenReports(rs store.ReportStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := rs.ListOpen(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, openReportsResponse{Reports: reports})
	}
}

// DismissReport handles POST /v1/moderation/reports/{report_id}/dismiss.
// The reported comment is left untouched.
func DismissReport(rs store.ReportStore, ev *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := strings.TrimSpace(chi.URLParam(r, "report_id"))
		if reportID == "" {
			api.BadRequest(w, "MISSING_ID", "report_id is required", "", nil)
			return
		}

		if err := rs.Dismiss(r.Context(), reportID); err != nil {
			writeStoreError(w, r, err)
			return
		}

		moderatorID, _ := auth.UserIDFromContext(r.Context())
		ev.Publish(events.SubjectReportDismissed, "report_dismissed", moderatorID, map[string]any{
			"report_id": reportID,
		})
		api.NoContent(w)
	}
}

// ResolveReport handles POST /v1/moderation/reports/{report_id}/resolve.
// Same outcome as dismiss, but the moderator's note is kept on record.
func ResolveReport(rs store.ReportStore, ev *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := strings.TrimSpace(chi.URLParam(r, "report_id"))
		if reportID == "" {
			api.BadRequest(w, "MISSING_ID", "report_id is required", "", nil)
			return
		}

		var req resolveReportRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}

		if err := rs.Resolve(r.Context(), reportID, req.Note); err != nil {
			writeStoreError(w, r, err)
			return
		}

		moderatorID, _ := auth.UserIDFromContext(r.Context())
		ev.Publish(events.SubjectReportResolved, "report_resolved", moderatorID, map[string]any{
			"report_id": reportID,
		})
		api.NoContent(w)
	}
}

// RemoveComment handles DELETE /v1/moderation/comments/{comment_id}.
// Moderator override: no ownership check, open reports flip to REMOVED and
// the comment goes through the normal delete + reclaim path.
func RemoveComment(rs store.ReportStore, ev *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", "", nil)
			return
		}

		if err := rs.RemoveComment(r.Context(), commentID); err != nil {
			writeStoreError(w, r, err)
			return
		}

		moderatorID, _ := auth.UserIDFromContext(r.Context())
		ev.Publish(events.SubjectCommentRemoved, "comment_removed", moderatorID, map[string]any{
			"comment_id": commentID,
		})
		api.NoContent(w)
	}
}

// ListViolations handles GET /v1/moderation/violations.
func ListViolations(rs store.ReportStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		violations, err := rs.Violations(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, violationsResponse{Violations: violations})
	}
}
