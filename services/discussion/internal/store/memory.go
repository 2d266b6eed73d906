package store

import (
	"context"
	"sync"
)

// memComment tracks insertion order so listings stay stable even when two
// comments land on the same timestamp.
type memComment struct {
	Comment
	seq int64
}

// InMemoryStore is a development-only implementation of CommentStore and
// ReportStore behind a single mutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	comments map[string]memComment             // id -> comment
	votes    map[string]map[string]VoteChoice  // commentID -> userID -> choice
	reports  map[string]Report                 // id -> report
	releaser AttachmentReleaser
}

// NewInMemoryStore creates an empty store. releaser may be nil, in which
// case attachment refs are dropped silently.
func NewInMemoryStore(releaser AttachmentReleaser) *InMemoryStore {
	return &InMemoryStore{
		comments: make(map[string]memComment),
		votes:    make(map[string]map[string]VoteChoice),
		reports:  make(map[string]Report),
		releaser: releaser,
	}
}

func (s *InMemoryStore) release(ctx context.Context, refs []string) {
	if s.releaser == nil {
		return
	}
	for _, ref := range refs {
		_ = s.releaser.Release(ctx, ref)
	}
}

// reclaimLocked hard-deletes the comment and its already-deleted replies
// once no undeleted reply needs it as a placeholder. Returns attachment refs
// of the removed rows (normally already cleared by soft delete, re-checked
// for safety). No-op on unknown or undeleted ids, so it is idempotent.
// Caller holds s.mu.
func (s *InMemoryStore) reclaimLocked(commentID string) []string {
	c, ok := s.comments[commentID]
	if !ok || !c.Deleted {
		return nil
	}

	for _, rc := range s.comments {
		if rc.ParentID != nil && *rc.ParentID == commentID && !rc.Deleted {
			return nil
		}
	}

	remove := []string{commentID}
	var refs []string
	for rid, rc := range s.comments {
		if rc.ParentID != nil && *rc.ParentID == commentID && rc.Deleted {
			remove = append(remove, rid)
			if rc.AttachmentRef != nil {
				refs = append(refs, *rc.AttachmentRef)
			}
		}
	}
	if c.AttachmentRef != nil {
		refs = append(refs, *c.AttachmentRef)
	}

	for _, rid := range remove {
		delete(s.comments, rid)
		delete(s.votes, rid)
	}
	return refs
}

// redactLocked marks the comment deleted and collects its attachment ref,
// then reclaims the comment and, for replies, the parent. Caller holds s.mu
// and has already verified existence and ownership.
func (s *InMemoryStore) redactLocked(c memComment) []string {
	var refs []string
	c.Body = DeletedBody
	c.Deleted = true
	if c.AttachmentRef != nil {
		refs = append(refs, *c.AttachmentRef)
		c.AttachmentRef = nil
	}
	s.comments[c.ID] = c

	refs = append(refs, s.reclaimLocked(c.ID)...)
	if c.ParentID != nil {
		// A parent soft-deleted earlier may have been waiting on this reply.
		refs = append(refs, s.reclaimLocked(*c.ParentID)...)
	}
	return refs
}
