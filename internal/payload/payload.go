package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Job types carried on the queue. The JSON wire format is a tagged union
// keyed by "type"; payloads written before tagging was introduced decode as
// a plain review.
const (
	TypeReview     = "review"
	TypeSentryFix  = "sentry_fix"
	TypeJiraTicket = "jira_ticket"
)

// Platform identifiers for review payloads
const (
	PlatformGitLab = "gitlab"
	PlatformGitHub = "github"
)

// Review actions
const (
	ActionOpen    = "open"
	ActionUpdate  = "update"
	ActionReopen  = "reopen"
	ActionLintFix = "lint_fix"
	ActionComment = "comment"
)

// ReviewPayload describes a merge/pull request review job
type ReviewPayload struct {
	GitLabURL      string `json:"gitlab_url"`
	Project        string `json:"project"`
	MRIID          string `json:"mr_iid"`
	CloneURL       string `json:"clone_url"`
	SourceBranch   string `json:"source_branch"`
	TargetBranch   string `json:"target_branch"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Author         string `json:"author"`
	Action         string `json:"action,omitempty"`
	Platform       string `json:"platform,omitempty"`
	TriggerComment string `json:"trigger_comment,omitempty"`
}

// SentryFixPayload describes a Sentry issue fix job
type SentryFixPayload struct {
	ShortID       string `json:"short_id"`
	Title         string `json:"title"`
	Culprit       string `json:"culprit,omitempty"`
	Platform      string `json:"platform"`
	IssueType     string `json:"issue_type"`
	IssueCategory string `json:"issue_category"`
	URL           string `json:"url,omitempty"`
	IssueID       string `json:"issue_id"`
	Organization  string `json:"organization"`
	Project       string `json:"project"`
	CloneURL      string `json:"clone_url"`
	VCSPlatform   string `json:"vcs_platform"`
	VCSProject    string `json:"vcs_project"`
	TargetBranch  string `json:"target_branch"`
	FixBranch     string `json:"fix_branch"`
}

// JiraTicketPayload describes a Jira ticket fix job
type JiraTicketPayload struct {
	IssueKey       string   `json:"issue_key"`
	IssueID        string   `json:"issue_id"`
	Summary        string   `json:"summary"`
	Description    string   `json:"description,omitempty"`
	IssueType      string   `json:"issue_type"`
	Priority       string   `json:"priority,omitempty"`
	Status         string   `json:"status"`
	Labels         []string `json:"labels,omitempty"`
	JiraURL        string   `json:"jira_url"`
	TriggerComment string   `json:"trigger_comment,omitempty"`
	TriggerAuthor  string   `json:"trigger_author,omitempty"`
	CloneURL       string   `json:"clone_url"`
	VCSPlatform    string   `json:"vcs_platform"`
	VCSProject     string   `json:"vcs_project"`
	TargetBranch   string   `json:"target_branch"`
	FixBranch      string   `json:"fix_branch"`
}

// JobPayload is the union of job kinds a queue item can carry.
// Exactly one of the pointers is set.
type JobPayload struct {
	Review     *ReviewPayload
	SentryFix  *SentryFixPayload
	JiraTicket *JiraTicketPayload
}

// NewReview wraps a review payload, filling action/platform defaults
func NewReview(r ReviewPayload) JobPayload {
	r.applyDefaults()
	return JobPayload{Review: &r}
}

// NewSentryFix wraps a Sentry fix payload
func NewSentryFix(s SentryFixPayload) JobPayload {
	return JobPayload{SentryFix: &s}
}

// NewJiraTicket wraps a Jira ticket payload
func NewJiraTicket(j JiraTicketPayload) JobPayload {
	return JobPayload{JiraTicket: &j}
}

func (r *ReviewPayload) applyDefaults() {
	if r.Action == "" {
		r.Action = ActionOpen
	}
	if r.Platform == "" {
		r.Platform = PlatformGitLab
	}
}

// Type returns the wire tag for the payload
func (p JobPayload) Type() string {
	switch {
	case p.SentryFix != nil:
		return TypeSentryFix
	case p.JiraTicket != nil:
		return TypeJiraTicket
	default:
		return TypeReview
	}
}

// Describe returns a short human-readable job description
func (p JobPayload) Describe() string {
	switch {
	case p.SentryFix != nil:
		return fmt.Sprintf("sentry-fix %s", p.SentryFix.ShortID)
	case p.JiraTicket != nil:
		return fmt.Sprintf("jira-fix %s", p.JiraTicket.IssueKey)
	case p.Review != nil:
		return fmt.Sprintf("review %s!%s", p.Review.Project, p.Review.MRIID)
	default:
		return "empty"
	}
}

// JobPrefix returns the Kubernetes Job name prefix for the payload
func (p JobPayload) JobPrefix() string {
	switch {
	case p.SentryFix != nil:
		return "claude-sentry"
	case p.JiraTicket != nil:
		return "claude-jira"
	default:
		return "claude-review"
	}
}

// IssueID returns the per-kind identifier used in Job names
func (p JobPayload) IssueID() string {
	switch {
	case p.SentryFix != nil:
		return p.SentryFix.ShortID
	case p.JiraTicket != nil:
		return p.JiraTicket.IssueKey
	case p.Review != nil:
		return p.Review.MRIID
	default:
		return "unknown"
	}
}

type taggedPayload struct {
	Type string `json:"type"`
}

// MarshalJSON writes the tagged union form
func (p JobPayload) MarshalJSON() ([]byte, error) {
	var inner interface{}
	switch {
	case p.SentryFix != nil:
		inner = p.SentryFix
	case p.JiraTicket != nil:
		inner = p.JiraTicket
	case p.Review != nil:
		inner = p.Review
	default:
		return nil, fmt.Errorf("empty job payload")
	}

	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = json.RawMessage(fmt.Sprintf("%q", p.Type()))
	return json.Marshal(fields)
}

// UnmarshalJSON reads the tagged form, falling back to an untagged legacy
// review payload when no known tag is present.
func (p *JobPayload) UnmarshalJSON(data []byte) error {
	var tag taggedPayload
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Type {
	case TypeSentryFix:
		var s SentryFixPayload
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = JobPayload{SentryFix: &s}
	case TypeJiraTicket:
		var j JiraTicketPayload
		if err := json.Unmarshal(data, &j); err != nil {
			return err
		}
		*p = JobPayload{JiraTicket: &j}
	default:
		var r ReviewPayload
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		r.applyDefaults()
		*p = JobPayload{Review: &r}
	}
	return nil
}

// QueueItem is the envelope stored on the queue
type QueueItem struct {
	ID        string     `json:"id"`
	Payload   JobPayload `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	Attempts  int        `json:"attempts"`
}

// FailedItem records a queue item that exhausted processing
type FailedItem struct {
	Item     QueueItem `json:"item"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// EncodeEnvelope serializes a queue item to the base64 form handed to
// worker pods via the REVIEW_PAYLOAD environment variable.
func EncodeEnvelope(item QueueItem) (string, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeEnvelope reverses EncodeEnvelope
func DecodeEnvelope(encoded string) (QueueItem, error) {
	var item QueueItem
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return item, fmt.Errorf("decoding payload envelope: %w", err)
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("parsing payload envelope: %w", err)
	}
	return item, nil
}
