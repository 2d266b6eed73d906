package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

func (s *InMemoryStore) Submit(_ context.Context, r Report) (Report, error) {
	if strings.TrimSpace(r.Reason) == "" || len(r.ViolationTags) == 0 {
		return Report{}, ErrValidation
	}
	for _, tag := range r.ViolationTags {
		if violationLabel(tag) == "" {
			return Report{}, ErrValidation
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[r.CommentID]
	if !ok || c.Deleted {
		return Report{}, ErrNotFound
	}

	r.ID = uuid.NewString()
	r.State = ReportOpen
	r.ModeratorNote = ""
	r.CreatedAt = time.Now().UTC()
	s.reports[r.ID] = r
	return r, nil
}

func (s *InMemoryStore) ListOpen(_ context.Context) ([]ReportDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	details := make([]ReportDetail, 0)
	for _, r := range s.reports {
		if r.State != ReportOpen {
			continue
		}
		d := ReportDetail{
			Report:        r,
			ViolationText: aggregateLabels(r.ViolationTags),
		}
		// The target may have been reclaimed since the report was filed.
		if c, ok := s.comments[r.CommentID]; ok {
			rendered := s.renderLocked(c.Comment)
			d.CommentBody = rendered.Body
			d.CommentAuthorID = rendered.AuthorID
		}
		details = append(details, d)
	}

	sort.Slice(details, func(i, j int) bool {
		if !details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return details[i].ID > details[j].ID
	})
	return details, nil
}

func (s *InMemoryStore) Dismiss(_ context.Context, reportID string) error {
	return s.closeReport(reportID, "")
}

func (s *InMemoryStore) Resolve(_ context.Context, reportID, note string) error {
	return s.closeReport(reportID, note)
}

func (s *InMemoryStore) closeReport(reportID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	if r.State != ReportOpen {
		return ErrConflict
	}
	r.State = ReportResolved
	r.ModeratorNote = note
	s.reports[reportID] = r
	return nil
}

func (s *InMemoryStore) RemoveComment(ctx context.Context, commentID string) error {
	s.mu.Lock()
	c, ok := s.comments[commentID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	for id, r := range s.reports {
		if r.CommentID == commentID && r.State == ReportOpen {
			r.State = ReportRemoved
			s.reports[id] = r
		}
	}

	var refs []string
	if !c.Deleted {
		refs = s.redactLocked(c)
	} else {
		// Already redacted by the author; a reclaim pass may still apply.
		refs = s.reclaimLocked(commentID)
		if c.ParentID != nil {
			refs = append(refs, s.reclaimLocked(*c.ParentID)...)
		}
	}
	s.mu.Unlock()

	s.release(ctx, refs)
	return nil
}

func (s *InMemoryStore) Violations(_ context.Context) ([]Violation, error) {
	out := make([]Violation, len(DefaultViolations))
	copy(out, DefaultViolations)
	return out, nil
}

func violationLabel(tag string) string {
	for _, v := range DefaultViolations {
		if v.Tag == tag {
			return v.Label
		}
	}
	return ""
}

// aggregateLabels joins the labels of the given tags in catalog order.
func aggregateLabels(tags []string) string {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	var labels []string
	for _, v := range DefaultViolations {
		if set[v.Tag] {
			labels = append(labels, v.Label)
		}
	}
	return strings.Join(labels, ", ")
}
