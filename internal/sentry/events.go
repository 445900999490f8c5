package sentry

import "strings"

// Issue categories that never map to a code fix
var excludedCategories = map[string]bool{
	"performance": true,
	"cron":        true,
	"replay":      true,
	"feedback":    true,
	"uptime":      true,
}

// WebhookEvent is a Sentry issue alert webhook payload
type WebhookEvent struct {
	Action string      `json:"action"`
	Data   WebhookData `json:"data"`
}

// WebhookData wraps the issue in an alert payload
type WebhookData struct {
	Issue Issue `json:"issue"`
}

// Issue is the subset of Sentry issue fields the dispatcher needs
type Issue struct {
	ID            string       `json:"id"`
	ShortID       string       `json:"shortId"`
	Title         string       `json:"title"`
	Culprit       string       `json:"culprit"`
	Permalink     string       `json:"permalink"`
	Platform      string       `json:"platform"`
	IssueType     string       `json:"issueType"`
	IssueCategory string       `json:"issueCategory"`
	Project       IssueProject `json:"project"`
}

// TypeOrDefault returns the issue type, "error" when absent
func (i *Issue) TypeOrDefault() string {
	if i.IssueType == "" {
		return "error"
	}
	return i.IssueType
}

// CategoryOrDefault returns the issue category, "error" when absent
func (i *Issue) CategoryOrDefault() string {
	if i.IssueCategory == "" {
		return "error"
	}
	return i.IssueCategory
}

// IssueProject identifies the Sentry project an issue belongs to
type IssueProject struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// ShouldTrigger reports whether the alert should start a fix job
func (e *WebhookEvent) ShouldTrigger() bool {
	if e.Action != "created" && e.Action != "unresolved" {
		return false
	}
	return !excludedCategories[strings.ToLower(e.Data.Issue.IssueCategory)]
}

// FixBranch returns the idempotency branch name for the issue
func (i *Issue) FixBranch() string {
	return "sentry-fix/" + strings.ToLower(i.ShortID)
}
