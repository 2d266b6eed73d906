package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const commentColumns = `id, episode_id, author_id, parent_id, body, attachment_ref,
	edited, deleted, like_count, dislike_count, created_at`

func (s *PostgresStore) Create(ctx context.Context, c Comment) (Comment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Comment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if c.ParentID != nil {
		// Locking the parent keeps a concurrent reclaim from sweeping it
		// away while this reply is in flight.
		var parentParent *string
		var parentDeleted bool
		err := tx.QueryRow(ctx,
			`SELECT parent_id, deleted FROM comments WHERE id = $1 FOR UPDATE`,
			*c.ParentID).Scan(&parentParent, &parentDeleted)
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, ErrNotFound
		}
		if err != nil {
			return Comment{}, err
		}
		if parentDeleted {
			return Comment{}, ErrNotFound
		}
		if parentParent != nil {
			return Comment{}, ErrInvalidThreadDepth
		}
	}

	var out Comment
	err = tx.QueryRow(ctx,
		`INSERT INTO comments (episode_id, author_id, parent_id, body, attachment_ref)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+commentColumns,
		c.EpisodeID, c.AuthorID, c.ParentID, c.Body, c.AttachmentRef,
	).Scan(&out.ID, &out.EpisodeID, &out.AuthorID, &out.ParentID, &out.Body,
		&out.AttachmentRef, &out.Edited, &out.Deleted, &out.LikeCount,
		&out.DislikeCount, &out.CreatedAt)
	if err != nil {
		return Comment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Comment{}, err
	}
	return out, nil
}

func (s *PostgresStore) ListForEpisode(ctx context.Context, episodeID, viewerID string) ([]CommentNode, error) {
	rows, err := s.pool.Query(ctx, `
SELECT c.id, c.episode_id,
       CASE WHEN c.deleted THEN '' ELSE c.author_id END,
       c.parent_id, c.body, c.attachment_ref, c.edited, c.deleted,
       c.like_count, c.dislike_count, c.created_at,
       COALESCE(v.vote, 0)
FROM comments c
LEFT JOIN comment_votes v ON v.comment_id = c.id AND v.user_id = $2
WHERE c.episode_id = $1
ORDER BY c.created_at ASC, c.id ASC`, episodeID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type flat struct {
		c    Comment
		vote int16
	}
	var all []flat
	for rows.Next() {
		var f flat
		if err := rows.Scan(&f.c.ID, &f.c.EpisodeID, &f.c.AuthorID, &f.c.ParentID,
			&f.c.Body, &f.c.AttachmentRef, &f.c.Edited, &f.c.Deleted,
			&f.c.LikeCount, &f.c.DislikeCount, &f.c.CreatedAt, &f.vote); err != nil {
			return nil, err
		}
		all = append(all, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nodes := make([]CommentNode, 0)
	index := make(map[string]int)
	for _, f := range all {
		if f.c.ParentID == nil {
			index[f.c.ID] = len(nodes)
			nodes = append(nodes, CommentNode{
				Comment:    f.c,
				ViewerVote: f.vote,
				Replies:    []CommentNode{},
			})
		}
	}
	for _, f := range all {
		if f.c.ParentID == nil {
			continue
		}
		i, ok := index[*f.c.ParentID]
		if !ok {
			continue
		}
		nodes[i].Replies = append(nodes[i].Replies, CommentNode{
			Comment:    f.c,
			ViewerVote: f.vote,
			Replies:    []CommentNode{},
		})
	}
	return nodes, nil
}

func (s *PostgresStore) Edit(ctx context.Context, commentID, authorID, body string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var author string
	var deleted bool
	err = tx.QueryRow(ctx,
		`SELECT author_id, deleted FROM comments WHERE id = $1 FOR UPDATE`,
		commentID).Scan(&author, &deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if deleted {
		return ErrNotFound
	}
	if author != authorID {
		return ErrNotOwner
	}

	if _, err := tx.Exec(ctx,
		`UPDATE comments SET body = $1, edited = TRUE WHERE id = $2`,
		body, commentID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SoftDelete(ctx context.Context, commentID, authorID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var author string
	var parentID *string
	var deleted bool
	var ref *string
	err = tx.QueryRow(ctx,
		`SELECT author_id, parent_id, deleted, attachment_ref
		 FROM comments WHERE id = $1 FOR UPDATE`,
		commentID).Scan(&author, &parentID, &deleted, &ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if deleted {
		return ErrNotFound
	}
	if author != authorID {
		return ErrNotOwner
	}

	refs, err := s.redactTx(ctx, tx, commentID, parentID, ref)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.release(ctx, refs)
	return nil
}

// redactTx marks the locked comment deleted, then runs the fixed two-step
// reclaim: the comment itself and, for replies, the parent that may have
// been waiting on it.
func (s *PostgresStore) redactTx(ctx context.Context, tx pgx.Tx, commentID string, parentID, ref *string) ([]string, error) {
	if _, err := tx.Exec(ctx,
		`UPDATE comments SET deleted = TRUE, body = $1, attachment_ref = NULL WHERE id = $2`,
		DeletedBody, commentID); err != nil {
		return nil, err
	}

	var refs []string
	if ref != nil {
		refs = append(refs, *ref)
	}

	more, err := s.reclaimTx(ctx, tx, commentID)
	if err != nil {
		return nil, err
	}
	refs = append(refs, more...)

	if parentID != nil {
		more, err = s.reclaimTx(ctx, tx, *parentID)
		if err != nil {
			return nil, err
		}
		refs = append(refs, more...)
	}
	return refs, nil
}

func (s *PostgresStore) Vote(ctx context.Context, commentID, userID string, choice VoteChoice) (VoteResult, error) {
	if !choice.Valid() {
		return VoteResult{}, ErrValidation
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return VoteResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The comment row lock serializes concurrent voters on the same
	// comment so the recomputed counters never lose a vote.
	var deleted bool
	err = tx.QueryRow(ctx,
		`SELECT deleted FROM comments WHERE id = $1 FOR UPDATE`,
		commentID).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return VoteResult{}, ErrNotFound
	}
	if err != nil {
		return VoteResult{}, err
	}
	if deleted {
		return VoteResult{}, ErrNotFound
	}

	var current int16
	err = tx.QueryRow(ctx,
		`SELECT vote FROM comment_votes WHERE comment_id = $1 AND user_id = $2`,
		commentID, userID).Scan(&current)

	final := int16(choice)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx,
			`INSERT INTO comment_votes (comment_id, user_id, vote) VALUES ($1, $2, $3)`,
			commentID, userID, int16(choice))
	case err != nil:
		return VoteResult{}, err
	case VoteChoice(current) == choice:
		// Same choice again retracts the vote.
		final = 0
		_, err = tx.Exec(ctx,
			`DELETE FROM comment_votes WHERE comment_id = $1 AND user_id = $2`,
			commentID, userID)
	default:
		_, err = tx.Exec(ctx,
			`UPDATE comment_votes SET vote = $1 WHERE comment_id = $2 AND user_id = $3`,
			int16(choice), commentID, userID)
	}
	if err != nil {
		return VoteResult{}, err
	}

	// Counters are recomputed from the ledger, never incremented.
	var likes, dislikes int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE vote = 1), COUNT(*) FILTER (WHERE vote = -1)
		 FROM comment_votes WHERE comment_id = $1`,
		commentID).Scan(&likes, &dislikes)
	if err != nil {
		return VoteResult{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE comments SET like_count = $1, dislike_count = $2 WHERE id = $3`,
		likes, dislikes, commentID); err != nil {
		return VoteResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return VoteResult{}, err
	}
	return VoteResult{LikeCount: likes, DislikeCount: dislikes, ViewerVote: final}, nil
}
