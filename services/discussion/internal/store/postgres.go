package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists comments, the interaction ledger and reports in
// Postgres. All multi-step mutations run as single transactions with
// row-level locks on the comment, so counters never drift from the ledger
// and a reclaim never races a reply insert.
type PostgresStore struct {
	pool     *pgxpool.Pool
	releaser AttachmentReleaser
}

// NewPostgresStore creates a store backed by Postgres. releaser may be nil.
func NewPostgresStore(pool *pgxpool.Pool, releaser AttachmentReleaser) *PostgresStore {
	return &PostgresStore{pool: pool, releaser: releaser}
}

// release frees attachments after the owning transaction committed. A
// rolled-back transaction must never release, so callers collect refs inside
// the transaction and pass them here afterwards.
func (s *PostgresStore) release(ctx context.Context, refs []string) {
	if s.releaser == nil {
		return
	}
	for _, ref := range refs {
		_ = s.releaser.Release(ctx, ref)
	}
}

// reclaimTx hard-deletes a soft-deleted comment once it has no undeleted
// replies, together with its already-deleted replies. Because nesting is
// single-level, a reply can never have children of its own, so the cascade
// is this one check and never recurses. Idempotent: unknown and undeleted
// ids are no-ops. Returns the attachment refs of the removed rows.
func (s *PostgresStore) reclaimTx(ctx context.Context, tx pgx.Tx, commentID string) ([]string, error) {
	var deleted bool
	var ref *string
	err := tx.QueryRow(ctx,
		`SELECT deleted, attachment_ref FROM comments WHERE id = $1 FOR UPDATE`,
		commentID).Scan(&deleted, &ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, nil
	}

	var live int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE parent_id = $1 AND NOT deleted`,
		commentID).Scan(&live)
	if err != nil {
		return nil, err
	}
	if live > 0 {
		// The thread still needs this node as a placeholder.
		return nil, nil
	}

	rows, err := tx.Query(ctx,
		`SELECT id, attachment_ref FROM comments WHERE parent_id = $1 AND deleted`,
		commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{commentID}
	var refs []string
	for rows.Next() {
		var id string
		var r *string
		if err := rows.Scan(&id, &r); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		if r != nil {
			refs = append(refs, *r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if ref != nil {
		refs = append(refs, *ref)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM comment_votes WHERE comment_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	return refs, nil
}
