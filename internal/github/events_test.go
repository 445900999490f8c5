package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPullRequestEvent_ReviewAction(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		draft    bool
		expected string
		ok       bool
	}{
		{"opened", "opened", false, "open", true},
		{"synchronize", "synchronize", false, "update", true},
		{"reopened", "reopened", false, "reopen", true},
		{"closed ignored", "closed", false, "", false},
		{"labeled ignored", "labeled", false, "", false},
		{"draft ignored", "opened", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &PullRequestEvent{
				Action:      tt.action,
				PullRequest: EventPR{Number: 42, Draft: tt.draft},
			}
			action, ok := event.ReviewAction()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, action)
		})
	}
}
