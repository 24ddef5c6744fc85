// Package automation selects task-labelled issues and hands them off to an external agent.
package automation

import (
	"context"

	"github.com/danielolaszy/handoff/pkg/models"
)

// IssueService is the tracker surface the automation needs. Implementations report
// transport failures as *ServiceError and never retry.
type IssueService interface {
	// ListIssuesByLabel returns issues carrying label in the given state, newest
	// created first, truncated to the configured maximum.
	ListIssuesByLabel(ctx context.Context, label, state string) ([]models.Issue, error)

	// LatestComment returns the most recent comment on the issue, or nil when it has none.
	LatestComment(ctx context.Context, number int) (*models.Comment, error)

	// PostComment adds a comment to the issue.
	PostComment(ctx context.Context, number int, body string) error

	// AddLabel attaches label to the issue. Adding a label the issue already has is not an error.
	AddLabel(ctx context.Context, number int, label string) error

	// RemoveLabel detaches label from the issue.
	RemoveLabel(ctx context.Context, number int, label string) error
}

// Notifier is told about every successful claim.
type Notifier interface {
	NotifyClaim(ctx context.Context, repository string, issue models.Issue) error
}
