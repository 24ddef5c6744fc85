// Package models defines data structures shared across the application.
package models

import (
	"time"
)

// Issue states as reported by the trackers.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Issue is a read-only snapshot of a tracker issue taken during a run.
type Issue struct {
	// Number is the tracker-wide numeric identifier (e.g., 42)
	Number int

	// Title is the issue's title or summary
	Title string

	// Body is the full description text of the issue
	Body string

	// State is either StateOpen or StateClosed
	State string

	// Labels are the labels attached to the issue, in tracker order
	Labels []Label

	// URL links to the issue in the tracker's web UI
	URL string

	// CreatedAt is the timestamp when the issue was created
	CreatedAt time.Time

	// UpdatedAt is the timestamp when the issue was last updated
	UpdatedAt time.Time
}

// HasLabel reports whether the issue carries a label with exactly the given name.
func (i Issue) HasLabel(name string) bool {
	for _, label := range i.Labels {
		if label.Name == name {
			return true
		}
	}
	return false
}

// LabelNames returns the names of the issue's labels.
func (i Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, label := range i.Labels {
		names = append(names, label.Name)
	}
	return names
}

// Label is a tracker label.
type Label struct {
	ID          int64
	Name        string
	Color       string
	Description string
}

// Comment is a single comment (or note) on an issue.
type Comment struct {
	ID        int64
	Body      string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
