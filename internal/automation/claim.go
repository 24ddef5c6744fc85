package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/pkg/models"
)

// RenderComment replaces the first {{issue_number}} in template with the decimal issue number.
func RenderComment(template string, number int) string {
	return strings.Replace(template, config.IssueNumberPlaceholder, strconv.Itoa(number), 1)
}

// Claimer posts the handoff comment and applies the doing label.
type Claimer struct {
	service    IssueService
	template   string
	doingLabel string
}

// NewClaimer returns a Claimer writing through service.
func NewClaimer(service IssueService, template, doingLabel string) *Claimer {
	return &Claimer{
		service:    service,
		template:   template,
		doingLabel: doingLabel,
	}
}

// Claim comments on the issue and then labels it. If the comment fails nothing has
// changed on the tracker. If the label fails after the comment was posted, Claim
// returns a *PartialClaimError; the comment is not rolled back.
func (c *Claimer) Claim(ctx context.Context, issue models.Issue) error {
	body := RenderComment(c.template, issue.Number)

	if err := c.service.PostComment(ctx, issue.Number, body); err != nil {
		return fmt.Errorf("failed to post handoff comment: %w", err)
	}
	logging.Info("posted handoff comment", "issue_number", issue.Number)

	if err := c.service.AddLabel(ctx, issue.Number, c.doingLabel); err != nil {
		return &PartialClaimError{
			Number: issue.Number,
			Body:   body,
			Label:  c.doingLabel,
			Err:    err,
		}
	}
	logging.Info("added label", "issue_number", issue.Number, "label", c.doingLabel)

	return nil
}
