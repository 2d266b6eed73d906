package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

func (s *InMemoryStore) Create(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok || parent.Deleted {
			return Comment{}, ErrNotFound
		}
		if parent.ParentID != nil {
			return Comment{}, ErrInvalidThreadDepth
		}
	}

	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	c.Edited = false
	c.Deleted = false
	c.LikeCount = 0
	c.DislikeCount = 0

	s.seq++
	s.comments[c.ID] = memComment{Comment: c, seq: s.seq}
	return c, nil
}

func (s *InMemoryStore) ListForEpisode(_ context.Context, episodeID, viewerID string) ([]CommentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roots []memComment
	for _, c := range s.comments {
		if c.EpisodeID == episodeID && c.ParentID == nil {
			roots = append(roots, c)
		}
	}
	sortChrono(roots)

	nodes := make([]CommentNode, 0, len(roots))
	for _, root := range roots {
		var replies []memComment
		for _, c := range s.comments {
			if c.ParentID != nil && *c.ParentID == root.ID {
				replies = append(replies, c)
			}
		}
		sortChrono(replies)

		node := CommentNode{
			Comment:    s.renderLocked(root.Comment),
			ViewerVote: s.viewerVoteLocked(root.ID, viewerID),
			Replies:    make([]CommentNode, 0, len(replies)),
		}
		for _, r := range replies {
			node.Replies = append(node.Replies, CommentNode{
				Comment:    s.renderLocked(r.Comment),
				ViewerVote: s.viewerVoteLocked(r.ID, viewerID),
				Replies:    []CommentNode{},
			})
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// renderLocked produces the API-visible view of a comment: soft-deleted
// rows keep their shape but lose the author identity.
func (s *InMemoryStore) renderLocked(c Comment) Comment {
	if c.Deleted {
		c.AuthorID = ""
	}
	return c
}

func (s *InMemoryStore) viewerVoteLocked(commentID, viewerID string) int16 {
	if viewerID == "" {
		return 0
	}
	return int16(s.votes[commentID][viewerID])
}

func sortChrono(cs []memComment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].seq < cs[j].seq
	})
}

func (s *InMemoryStore) Edit(_ context.Context, commentID, authorID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.Deleted {
		return ErrNotFound
	}
	if c.AuthorID != authorID {
		return ErrNotOwner
	}
	c.Body = body
	c.Edited = true
	s.comments[commentID] = c
	return nil
}

func (s *InMemoryStore) SoftDelete(ctx context.Context, commentID, authorID string) error {
	s.mu.Lock()
	c, ok := s.comments[commentID]
	if !ok || c.Deleted {
		s.mu.Unlock()
		return ErrNotFound
	}
	if c.AuthorID != authorID {
		s.mu.Unlock()
		return ErrNotOwner
	}
	refs := s.redactLocked(c)
	s.mu.Unlock()

	s.release(ctx, refs)
	return nil
}

func (s *InMemoryStore) Vote(_ context.Context, commentID, userID string, choice VoteChoice) (VoteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.Deleted {
		return VoteResult{}, ErrNotFound
	}
	if !choice.Valid() {
		return VoteResult{}, ErrValidation
	}

	if s.votes[commentID] == nil {
		s.votes[commentID] = make(map[string]VoteChoice)
	}

	current := s.votes[commentID][userID]
	switch current {
	case choice:
		// Same choice again retracts the vote.
		delete(s.votes[commentID], userID)
	default:
		s.votes[commentID][userID] = choice
	}

	// Counters are derived from the ledger, never incremented.
	likes, dislikes := 0, 0
	for _, v := range s.votes[commentID] {
		switch v {
		case VoteLike:
			likes++
		case VoteDislike:
			dislikes++
		}
	}
	c.LikeCount = likes
	c.DislikeCount = dislikes
	s.comments[commentID] = c

	return VoteResult{
		LikeCount:    likes,
		DislikeCount: dislikes,
		ViewerVote:   int16(s.votes[commentID][userID]),
	}, nil
}
