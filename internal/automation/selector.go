package automation

import (
	"context"
	"strings"

	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/pkg/models"
)

// HandoffMarker in a comment body means the agent has already been notified.
const HandoffMarker = "@claude"

// CommentProbe reports whether the latest comment on an issue carries the handoff marker.
type CommentProbe func(ctx context.Context, number int) (bool, error)

// MarkerProbe builds a CommentProbe on top of IssueService.LatestComment.
func MarkerProbe(service IssueService) CommentProbe {
	return func(ctx context.Context, number int) (bool, error) {
		comment, err := service.LatestComment(ctx, number)
		if err != nil {
			return false, err
		}
		if comment == nil {
			return false, nil
		}
		return strings.Contains(comment.Body, HandoffMarker), nil
	}
}

// SelectEligible walks candidates in order and returns the first one that neither
// carries doingLabel nor has the handoff marker in its latest comment. It returns nil
// when no candidate qualifies.
//
// A probe error makes that candidate ineligible; the walk continues with the next one.
func SelectEligible(ctx context.Context, candidates []models.Issue, doingLabel string, probe CommentProbe) *models.Issue {
	for i := range candidates {
		issue := &candidates[i]

		if issue.HasLabel(doingLabel) {
			logging.Debug("skipping issue already in progress", "issue_number", issue.Number, "label", doingLabel)
			continue
		}

		marked, err := probe(ctx, issue.Number)
		if err != nil {
			logging.Warn("could not read latest comment, skipping issue", "issue_number", issue.Number, "error", err)
			continue
		}
		if marked {
			logging.Debug("skipping issue already handed off", "issue_number", issue.Number)
			continue
		}

		return issue
	}

	return nil
}
