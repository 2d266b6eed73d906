package handlers

import (
	"errors"
	"net/http"

	"github.com/example/show-platform/internal/platform/api"
	"github.com/example/show-platform/internal/platform/httpserver"
	"github.com/example/show-platform/services/discussion/internal/store"
)

// writeStoreError maps store sentinels onto the API error envelope. Anything
// unrecognized is a store-connectivity failure and surfaces as a 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "comment or report not found", rid)
	case errors.Is(err, store.ErrNotOwner):
		api.Forbidden(w, "NOT_OWNER", "only the author may do this", rid)
	case errors.Is(err, store.ErrInvalidThreadDepth):
		api.UnprocessableEntity(w, "INVALID_THREAD_DEPTH", "replies cannot be nested", rid, nil)
	case errors.Is(err, store.ErrConflict):
		api.Conflict(w, "CONFLICT", "concurrent modification, retry the request", rid, nil)
	case errors.Is(err, store.ErrValidation):
		api.BadRequest(w, "VALIDATION", "missing or invalid fields", rid, nil)
	default:
		api.Internal(w, rid)
	}
}
