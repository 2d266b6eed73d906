package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) Submit(ctx context.Context, r Report) (Report, error) {
	if strings.TrimSpace(r.Reason) == "" || len(r.ViolationTags) == 0 {
		return Report{}, ErrValidation
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Report{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Tags must come from the fixed catalog.
	var known int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(DISTINCT tag) FROM violations WHERE tag = ANY($1)`,
		r.ViolationTags).Scan(&known)
	if err != nil {
		return Report{}, err
	}
	if known != len(uniqueTags(r.ViolationTags)) {
		return Report{}, ErrValidation
	}

	var deleted bool
	err = tx.QueryRow(ctx,
		`SELECT deleted FROM comments WHERE id = $1`, r.CommentID).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, err
	}
	if deleted {
		return Report{}, ErrNotFound
	}

	out := r
	out.State = ReportOpen
	out.ModeratorNote = ""
	err = tx.QueryRow(ctx,
		`INSERT INTO reports (reporter_id, comment_id, reason, state)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		r.ReporterID, r.CommentID, r.Reason, ReportOpen).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return Report{}, err
	}

	for _, tag := range uniqueTags(r.ViolationTags) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO report_violations (report_id, violation_tag) VALUES ($1, $2)`,
			out.ID, tag); err != nil {
			return Report{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Report{}, err
	}
	return out, nil
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]ReportDetail, error) {
	rows, err := s.pool.Query(ctx, `
SELECT r.id, r.reporter_id, r.comment_id, r.reason,
       COALESCE(r.moderator_note, ''), r.state, r.created_at,
       COALESCE(c.body, ''),
       COALESCE(CASE WHEN c.deleted THEN '' ELSE c.author_id END, ''),
       COALESCE(array_agg(rv.violation_tag ORDER BY rv.violation_tag)
                FILTER (WHERE rv.violation_tag IS NOT NULL), '{}'),
       COALESCE(string_agg(v.label, ', ' ORDER BY v.label), '')
FROM reports r
LEFT JOIN comments c ON c.id = r.comment_id
LEFT JOIN report_violations rv ON rv.report_id = r.id
LEFT JOIN violations v ON v.tag = rv.violation_tag
WHERE r.state = $1
GROUP BY r.id, r.reporter_id, r.comment_id, r.reason, r.moderator_note,
         r.state, r.created_at, c.body, c.deleted, c.author_id
ORDER BY r.created_at DESC, r.id DESC`, ReportOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]ReportDetail, 0)
	for rows.Next() {
		var d ReportDetail
		if err := rows.Scan(&d.ID, &d.ReporterID, &d.CommentID, &d.Reason,
			&d.ModeratorNote, &d.State, &d.CreatedAt,
			&d.CommentBody, &d.CommentAuthorID,
			&d.ViolationTags, &d.ViolationText); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (s *PostgresStore) Dismiss(ctx context.Context, reportID string) error {
	return s.closeReport(ctx, reportID, "")
}

func (s *PostgresStore) Resolve(ctx context.Context, reportID, note string) error {
	return s.closeReport(ctx, reportID, note)
}

func (s *PostgresStore) closeReport(ctx context.Context, reportID, note string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET state = $1, moderator_note = $2
		 WHERE id = $3 AND state = $4`,
		ReportResolved, note, reportID, ReportOpen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reports WHERE id = $1)`, reportID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	// A concurrent moderator already closed it.
	return ErrConflict
}

func (s *PostgresStore) RemoveComment(ctx context.Context, commentID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var parentID *string
	var deleted bool
	var ref *string
	err = tx.QueryRow(ctx,
		`SELECT parent_id, deleted, attachment_ref
		 FROM comments WHERE id = $1 FOR UPDATE`,
		commentID).Scan(&parentID, &deleted, &ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE reports SET state = $1 WHERE comment_id = $2 AND state = $3`,
		ReportRemoved, commentID, ReportOpen); err != nil {
		return err
	}

	var refs []string
	if !deleted {
		refs, err = s.redactTx(ctx, tx, commentID, parentID, ref)
	} else {
		// Already redacted by the author; a reclaim pass may still apply.
		refs, err = s.reclaimTx(ctx, tx, commentID)
		if err == nil && parentID != nil {
			var more []string
			more, err = s.reclaimTx(ctx, tx, *parentID)
			refs = append(refs, more...)
		}
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.release(ctx, refs)
	return nil
}

func (s *PostgresStore) Violations(ctx context.Context) ([]Violation, error) {
	rows, err := s.pool.Query(ctx, `SELECT tag, label FROM violations ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.Tag, &v.Label); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
