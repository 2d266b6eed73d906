package store

import (
	"context"
	"time"
)

// DeletedBody replaces the text of a soft-deleted comment. The row stays in
// place so the thread keeps its shape; the author is blanked on read.
const DeletedBody = "[deleted]"

// VoteChoice is the ledger entry type: 1 for like, -1 for dislike.
type VoteChoice int16

const (
	VoteLike    VoteChoice = 1
	VoteDislike VoteChoice = -1
)

// Valid reports whether the choice is one of the two ledger types.
func (v VoteChoice) Valid() bool { return v == VoteLike || v == VoteDislike }

// Comment represents a single comment row.
// LikeCount and DislikeCount are derived from the interaction ledger and
// recomputed transactionally after every ledger mutation, never incremented.
type Comment struct {
	ID            string    `json:"id"`
	EpisodeID     string    `json:"episode_id"`
	AuthorID      string    `json:"author_id"`
	ParentID      *string   `json:"parent_id,omitempty"`
	Body          string    `json:"body"`
	AttachmentRef *string   `json:"attachment_ref,omitempty"`
	Edited        bool      `json:"edited"`
	Deleted       bool      `json:"deleted"`
	LikeCount     int       `json:"like_count"`
	DislikeCount  int       `json:"dislike_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CommentNode is a comment annotated with the viewer's own vote; top-level
// nodes carry their direct replies. Nesting stops there: a reply never has
// replies of its own.
type CommentNode struct {
	Comment    Comment       `json:"comment"`
	ViewerVote int16         `json:"viewer_vote"`
	Replies    []CommentNode `json:"replies"`
}

// VoteResult carries the post-transition state back to the caller so the UI
// can update without a second read.
type VoteResult struct {
	LikeCount    int   `json:"like_count"`
	DislikeCount int   `json:"dislike_count"`
	ViewerVote   int16 `json:"viewer_vote"`
}

// ReportState is the moderation lifecycle of a report.
type ReportState string

const (
	ReportOpen     ReportState = "OPEN"
	ReportResolved ReportState = "RESOLVED"
	ReportRemoved  ReportState = "REMOVED"
)

// Report is an abuse report filed by a user against a comment.
type Report struct {
	ID            string      `json:"id"`
	ReporterID    string      `json:"reporter_id"`
	CommentID     string      `json:"comment_id"`
	Reason        string      `json:"reason"`
	ModeratorNote string      `json:"moderator_note,omitempty"`
	State         ReportState `json:"state"`
	ViolationTags []string    `json:"violation_tags"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ReportDetail is an open report joined with the target comment and the
// human-readable violation labels, as shown on the moderation queue.
type ReportDetail struct {
	Report
	CommentBody     string `json:"comment_body"`
	CommentAuthorID string `json:"comment_author_id"`
	ViolationText   string `json:"violation_text"`
}

// Violation is a catalog tag describing why a comment was reported.
type Violation struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// DefaultViolations is the fixed violation catalog. The Postgres schema
// seeds the violations table from the same set.
var DefaultViolations = []Violation{
	{Tag: "spam", Label: "Spam or advertising"},
	{Tag: "harassment", Label: "Harassment or bullying"},
	{Tag: "hate", Label: "Hate speech"},
	{Tag: "sexual", Label: "Sexual or explicit content"},
	{Tag: "spoilers", Label: "Unmarked spoilers"},
	{Tag: "other", Label: "Other"},
}

// AttachmentReleaser releases a stored attachment exactly once when the
// comment holding it is deleted. Implementations live in the attachments
// package; stores only ever call Release.
type AttachmentReleaser interface {
	Release(ctx context.Context, ref string) error
}

// CommentStore owns comment content, thread linkage, the interaction ledger
// and the derived counters.
type CommentStore interface {
	// Create posts a top-level comment (nil ParentID) or a reply. Replying
	// to a reply fails with ErrInvalidThreadDepth; replying to a missing or
	// deleted comment fails with ErrNotFound.
	Create(ctx context.Context, c Comment) (Comment, error)

	// ListForEpisode returns top-level comments in chronological order, each
	// with its chronological replies. Deleted comments stay in place as
	// placeholders. viewerID may be empty; when set, every node carries that
	// viewer's current vote.
	ListForEpisode(ctx context.Context, episodeID, viewerID string) ([]CommentNode, error)

	// Edit replaces the body and marks the comment edited. ErrNotFound for
	// missing or deleted comments, ErrNotOwner on author mismatch.
	Edit(ctx context.Context, commentID, authorID, body string) error

	// SoftDelete redacts the comment, releases its attachment and reclaims
	// the comment and, for replies, the parent. ErrNotFound for missing or
	// already-deleted comments, ErrNotOwner on author mismatch.
	SoftDelete(ctx context.Context, commentID, authorID string) error

	// Vote applies one like/dislike transition for (userID, commentID) and
	// recomputes the counters from the ledger in the same transaction.
	// ErrNotFound for missing or deleted comments.
	Vote(ctx context.Context, commentID, userID string, choice VoteChoice) (VoteResult, error)
}

// ReportStore owns the moderation pipeline.
type ReportStore interface {
	// Submit files a report in state OPEN. ErrValidation for an empty reason
	// or tags outside the catalog; ErrNotFound if the comment is gone.
	Submit(ctx context.Context, r Report) (Report, error)

	// ListOpen returns OPEN reports newest-first with comment context.
	ListOpen(ctx context.Context) ([]ReportDetail, error)

	// Dismiss closes an OPEN report without touching the comment.
	// ErrNotFound if missing, ErrConflict if not OPEN.
	Dismiss(ctx context.Context, reportID string) error

	// Resolve closes an OPEN report with a moderator note, leaving the
	// comment alone. Same failure modes as Dismiss.
	Resolve(ctx context.Context, reportID, note string) error

	// RemoveComment flips every OPEN report on the comment to REMOVED, then
	// soft-deletes and reclaims the comment without an ownership check.
	// ErrNotFound if the comment does not exist.
	RemoveComment(ctx context.Context, commentID string) error

	// Violations returns the fixed violation catalog.
	Violations(ctx context.Context) ([]Violation, error)
}
