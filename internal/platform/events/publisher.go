// Package events provides a fire-and-forget NATS publisher for discussion
// events. Downstream consumers (analytics, notifications) subscribe to the
// discussion.* subjects; the engine never waits on them.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject constants for every discussion event type.
const (
	SubjectCommentPosted     = "discussion.comment.posted"
	SubjectCommentEdited     = "discussion.comment.edited"
	SubjectCommentDeleted    = "discussion.comment.deleted"
	SubjectCommentVoted      = "discussion.comment.voted"
	SubjectReportSubmitted   = "discussion.report.submitted"
	SubjectCommentRemoved    = "discussion.moderation.removed"
	SubjectReportDismissed   = "discussion.moderation.dismissed"
	SubjectReportResolved    = "discussion.moderation.resolved"
)

// Event is the canonical envelope sent to all discussion.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	UserID     string         `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher publishes discussion events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and deployments without NATS).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	return &Publisher{js: js, log: log}
}

// Publish sends a discussion event asynchronously (fire-and-forget).
// Failures are logged as warnings and never surface to the caller.
// The publisher is safe to call with a nil receiver.
func (p *Publisher) Publish(subject, eventName, userID string, props map[string]any) {
	if p == nil || p.js == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Properties: props,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
