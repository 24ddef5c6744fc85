package automation

import (
	"context"
	"sync"

	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/pkg/models"
)

// fakeService is an in-memory IssueService. Unset function fields fall back to
// behaviour backed by the issues and comments maps.
type fakeService struct {
	mu       sync.Mutex
	issues   []models.Issue
	comments map[int]string

	listFn    func(ctx context.Context, label, state string) ([]models.Issue, error)
	latestFn  func(ctx context.Context, number int) (*models.Comment, error)
	postFn    func(ctx context.Context, number int, body string) error
	addFn     func(ctx context.Context, number int, label string) error
	removeFn  func(ctx context.Context, number int, label string) error
	listCalls int
	probed    []int
	posted    map[int][]string
	added     map[int][]string
}

func newFakeService(issues ...models.Issue) *fakeService {
	return &fakeService{
		issues:   issues,
		comments: map[int]string{},
		posted:   map[int][]string{},
		added:    map[int][]string{},
	}
}

func (f *fakeService) ListIssuesByLabel(ctx context.Context, label, state string) ([]models.Issue, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listFn != nil {
		return f.listFn(ctx, label, state)
	}
	var out []models.Issue
	for _, issue := range f.issues {
		if issue.HasLabel(label) {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (f *fakeService) LatestComment(ctx context.Context, number int) (*models.Comment, error) {
	f.mu.Lock()
	f.probed = append(f.probed, number)
	f.mu.Unlock()
	if f.latestFn != nil {
		return f.latestFn(ctx, number)
	}
	body, ok := f.comments[number]
	if !ok {
		return nil, nil
	}
	return &models.Comment{Body: body}, nil
}

func (f *fakeService) PostComment(ctx context.Context, number int, body string) error {
	if f.postFn != nil {
		if err := f.postFn(ctx, number, body); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted[number] = append(f.posted[number], body)
	f.comments[number] = body
	return nil
}

func (f *fakeService) AddLabel(ctx context.Context, number int, label string) error {
	if f.addFn != nil {
		if err := f.addFn(ctx, number, label); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[number] = append(f.added[number], label)
	for i := range f.issues {
		if f.issues[i].Number == number && !f.issues[i].HasLabel(label) {
			f.issues[i].Labels = append(f.issues[i].Labels, models.Label{Name: label})
		}
	}
	return nil
}

func (f *fakeService) RemoveLabel(ctx context.Context, number int, label string) error {
	if f.removeFn != nil {
		return f.removeFn(ctx, number, label)
	}
	return nil
}

func issue(number int, title string, labels ...string) models.Issue {
	i := models.Issue{Number: number, Title: title, State: models.StateOpen}
	for _, name := range labels {
		i.Labels = append(i.Labels, models.Label{Name: name})
	}
	return i
}

func testConfig() *config.Config {
	return &config.Config{
		Tracker:    config.TrackerGitHub,
		Repository: config.RepositoryConfig{Owner: "acme", Name: "widgets"},
		Automation: config.AutomationConfig{
			TaskLabel:       config.DefaultTaskLabel,
			DoingLabel:      config.DefaultDoingLabel,
			MaxIssuesPerRun: config.DefaultMaxIssuesPerRun,
			CommentTemplate: config.DefaultCommentTemplate,
		},
	}
}
