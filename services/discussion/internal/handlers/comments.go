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

type createCommentRequest struct {
	Body          string  `json:"body"`
	ParentID      *string `json:"parent_id,omitempty"`
	AttachmentRef *string `json:"attachment_ref,omitempty"`
}

type updateCommentRequest struct {
	Body string `json:"body"`
}

type voteRequest struct {
	Vote int16 `json:"vote"`
}

type threadResponse struct {
	Comments []store.CommentNode `json:"comments"`
}

// ListEpisodeComments handles GET /v1/episodes/{episode_id}/comments.
// Public; signed-in viewers get their own vote on every node.
func ListEpisodeComments(cs store.CommentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID := strings.TrimSpace(chi.URLParam(r, "episode_id"))
		if episodeID == "" {
			api.BadRequest(w, "MISSING_ID", "episode_id is required", "", nil)
			return
		}

		viewerID, _ := auth.UserIDFromContext(r.Context())

		nodes, err := cs.ListForEpisode(r.Context(), episodeID, viewerID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, threadResponse{Comments: nodes})
	}
}

// CreateComment handles POST /v1/episodes/{episode_id}/comments.
func CreateComment(cs store.CommentStore, ev *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}

		episodeID := strings.TrimSpace(chi.URLParam(r, "episode_id"))
		if episodeID == "" {
			api.BadRequest(w, "MISSING_ID", "episode_id is required", "", nil)
			return
		}

		var req createCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			api.BadRequest(w, "EMPTY_BODY", "body must not be empty", "", nil)
			return
		}

		c := store.Comment{
			EpisodeID:     episodeID,
			AuthorID:      userID,
			ParentID:      req.ParentID,
			Body:          req.Body,
			AttachmentRef: req.AttachmentRef,
		}

		created, err := cs.Create(r.Context(), c)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		ev.Publish(events.SubjectCommentPosted, "comment_posted", userID, map[string]any{
			"comment_id": created.ID,
			"episode_id": created.EpisodeID,
			"is_reply":   created.ParentID != nil,
		})
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// UpdateComment handles PUT /v1/comments/{comment_id}.
func UpdateComment(cs store.CommentStore, ev *events.Publisher) http.HandlerFunc {
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

		var req updateCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			api.BadRequest(w, "EMPTY_BODY", "body must not be empty", "", nil)
			return
		}

		if err := cs.Edit(r.Context(), commentID, userID, req.Body); err != nil {
			writeStoreError(w, r, err)
			return
		}

		ev.Publish(events.SubjectCommentEdited, "comment_edited", userID, map[string]any{
			"comment_id": commentID,
		})
		api.NoContent(w)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}.
func DeleteComment(cs store.CommentStore, ev *events.Publisher) http.HandlerFunc {
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

		if err := cs.SoftDelete(r.Context(), commentID, userID); err != nil {
			writeStoreError(w, r, err)
			return
		}

		ev.Publish(events.SubjectCommentDeleted, "comment_deleted", userID, map[string]any{
			"comment_id": commentID,
		})
		api.NoContent(w)
	}
}

// VoteComment handles POST /v1/comments/{comment_id}/vote.
// Repeating the current choice retracts it; the opposite choice flips it.
func VoteComment(cs store.CommentStore, ev *events.Publisher) http.HandlerFunc {
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

		var req voteRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		choice := store.VoteChoice(req.Vote)
		if !choice.Valid() {
			api.BadRequest(w, "INVALID_VOTE", "vote must be 1 or -1", "", nil)
			return
		}

		res, err := cs.Vote(r.Context(), commentID, userID, choice)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		ev.Publish(events.SubjectCommentVoted, "comment_voted", userID, map[string]any{
			"comment_id": commentID,
			"vote":       res.ViewerVote,
		})
		api.WriteJSON(w, http.StatusOK, res)
	}
}
