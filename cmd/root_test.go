package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/tracker"
	"github.com/danielolaszy/handoff/pkg/models"
)

// stubService is an in-memory tracker.
type stubService struct {
	mu      sync.Mutex
	issues  []models.Issue
	listErr error
	posted  []int
	removed []int
	ensured []string
}

func (s *stubService) ListIssuesByLabel(_ context.Context, label, _ string) ([]models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Issue
	for _, issue := range s.issues {
		if issue.HasLabel(label) {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (s *stubService) LatestComment(context.Context, int) (*models.Comment, error) {
	return nil, nil
}

func (s *stubService) PostComment(_ context.Context, number int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posted = append(s.posted, number)
	return nil
}

func (s *stubService) AddLabel(_ context.Context, number int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.issues {
		if s.issues[i].Number == number {
			s.issues[i].Labels = append(s.issues[i].Labels, models.Label{Name: label})
		}
	}
	return nil
}

func (s *stubService) RemoveLabel(_ context.Context, number int, _ string) error {
	s.removed = append(s.removed, number)
	return nil
}

func (s *stubService) EnsureLabel(_ context.Context, name, _, _ string) (bool, error) {
	s.ensured = append(s.ensured, name)
	return name == config.DefaultDoingLabel, nil
}

// useStub points the command at svc and provides a valid environment.
func useStub(t *testing.T, svc *stubService) {
	t.Helper()

	original := newService
	newService = func(context.Context, *config.Config) (tracker.Service, error) {
		return svc, nil
	}
	t.Cleanup(func() { newService = original })

	for _, name := range []string{
		"TRACKER", "GITHUB_REPOSITORY", "TASK_LABEL", "DOING_LABEL", "MAX_ISSUES_PER_RUN",
		"COMMENT_TEMPLATE", "DAEMON_MODE", "DAEMON_INTERVAL", "SLACK_BOT_TOKEN", "SLACK_CHANNEL",
		"REQUESTS_PER_SECOND", "LOG_FILE",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GITHUB_OWNER", "acme")
	t.Setenv("GITHUB_REPO", "widgets")
}

func execute(args ...string) (string, error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func taskIssue(number int, labels ...string) models.Issue {
	issue := models.Issue{Number: number, Title: "task", State: models.StateOpen}
	for _, name := range append([]string{config.DefaultTaskLabel}, labels...) {
		issue.Labels = append(issue.Labels, models.Label{Name: name})
	}
	return issue
}

func TestSingleRunProcessesIssue(t *testing.T) {
	svc := &stubService{issues: []models.Issue{taskIssue(3)}}
	useStub(t, svc)

	out, err := execute()
	require.NoError(t, err)
	assert.Contains(t, out, "- Status: ✅ **Processed**")
	assert.Contains(t, out, "- Issue: #3")
	assert.Equal(t, []int{3}, svc.posted)
}

func TestSingleRunSkipExitsZero(t *testing.T) {
	useStub(t, &stubService{})

	out, err := execute()
	require.NoError(t, err)
	assert.Contains(t, out, "**Skipped**")
}

func TestSingleRunFailureExitsOne(t *testing.T) {
	useStub(t, &stubService{listErr: errors.New("502 bad gateway")})

	out, err := execute()
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out, "**Failed**")
}

func TestJSONOutput(t *testing.T) {
	useStub(t, &stubService{issues: []models.Issue{taskIssue(4)}})

	out, err := execute("--output", "json")
	require.NoError(t, err)

	var result automation.RunResult
	require.NoError(t, json.Unmarshal(bytes.TrimSpace([]byte(out)), &result))
	assert.Equal(t, automation.StatusProcessed, result.Status)
	assert.Equal(t, 4, result.Issue.Number)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "Unknown flag", args: []string{"--bogus"}},
		{name: "Unknown argument", args: []string{"extra"}},
		{name: "Zero interval", args: []string{"--interval", "0"}},
		{name: "Negative interval", args: []string{"-i", "-5"}},
		{name: "Non-numeric interval", args: []string{"-i", "soon"}},
		{name: "Interval too large", args: []string{"-i", "1e13"}},
		{name: "Unknown output format", args: []string{"--output", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useStub(t, &stubService{})

			_, err := execute(tt.args...)
			require.Error(t, err)
			var usageErr *UsageError
			assert.True(t, errors.As(err, &usageErr), "got %v", err)
		})
	}
}

func TestConfigurationErrorIsFatal(t *testing.T) {
	useStub(t, &stubService{})
	t.Setenv("GITHUB_TOKEN", "")

	_, err := execute()
	require.Error(t, err)

	var verr *config.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestLabelsCommand(t *testing.T) {
	svc := &stubService{}
	useStub(t, svc)

	out, err := execute("labels")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai task", "ai doing"}, svc.ensured)
	assert.Contains(t, out, "Label 'ai task' already exists")
	assert.Contains(t, out, "Created label 'ai doing'")
}

func TestReleaseCommand(t *testing.T) {
	svc := &stubService{}
	useStub(t, svc)

	out, err := execute("release", "12")
	require.NoError(t, err)
	assert.Equal(t, []int{12}, svc.removed)
	assert.Contains(t, out, "Removed label 'ai doing' from issue #12")

	_, err = execute("release", "abc")
	var usageErr *UsageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestRunDaemonGracefulShutdown(t *testing.T) {
	svc := &stubService{issues: []models.Issue{taskIssue(1), taskIssue(2)}}
	runner := automation.NewRunner(svc, &config.Config{
		Repository: config.RepositoryConfig{Owner: "acme", Name: "widgets"},
		Automation: config.AutomationConfig{
			TaskLabel:       config.DefaultTaskLabel,
			DoingLabel:      config.DefaultDoingLabel,
			CommentTemplate: config.DefaultCommentTemplate,
		},
	})

	sigCh := make(chan os.Signal, 2)
	var out lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- runDaemon(context.Background(), runner, time.Hour, sigCh, &out, automation.OutputText)
	}()

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.posted) == 1
	}, 2*time.Second, time.Millisecond)

	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down")
	}
	assert.Contains(t, out.String(), "- Issue: #1")
}

func TestRepeatedSignalForcesExit(t *testing.T) {
	exited := make(chan int, 1)
	original := exitFunc
	exitFunc = func(code int) { exited <- code }
	t.Cleanup(func() { exitFunc = original })

	release := make(chan struct{})
	runner := blockingRunner{started: make(chan struct{}, 1), release: release}

	sigCh := make(chan os.Signal, 2)
	done := make(chan error, 1)
	go func() {
		done <- runDaemon(context.Background(), runner, time.Hour, sigCh, &lockedBuffer{}, automation.OutputText)
	}()

	<-runner.started
	sigCh <- syscall.SIGINT
	sigCh <- syscall.SIGINT

	select {
	case code := <-exited:
		assert.Equal(t, 1, code)
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force exit")
	}

	close(release)
	assert.NoError(t, <-done)
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r blockingRunner) Run(context.Context) automation.RunResult {
	r.started <- struct{}{}
	<-r.release
	return automation.RunResult{Success: true, Status: automation.StatusNoAction}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
