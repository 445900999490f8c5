package jira

import (
	"encoding/json"
	"strings"
)

// BotMention is the handle that summons the agent from a Jira comment
const BotMention = "@claude-agent"

// CommentEvent is a Jira comment webhook payload
type CommentEvent struct {
	WebhookEvent string  `json:"webhookEvent"`
	Comment      Comment `json:"comment"`
	Issue        Issue   `json:"issue"`
}

// Comment is a Jira comment. The body is either a plain string or an
// Atlassian Document Format tree depending on the site configuration.
type Comment struct {
	ID     string          `json:"id"`
	Author Author          `json:"author"`
	Body   json.RawMessage `json:"body"`
}

// Author identifies a Jira account
type Author struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// Issue is the subset of Jira issue fields the dispatcher needs
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the issue fields used in prompts
type IssueFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	IssueType   *NamedField     `json:"issuetype"`
	Priority    *NamedField     `json:"priority"`
	Status      *NamedField     `json:"status"`
	Labels      []string        `json:"labels"`
}

// NamedField is a Jira object referenced only by its display name
type NamedField struct {
	Name string `json:"name"`
}

// IssueTypeName returns the issue type, "Unknown" when absent
func (f *IssueFields) IssueTypeName() string {
	if f.IssueType == nil {
		return "Unknown"
	}
	return f.IssueType.Name
}

// PriorityName returns the priority name, empty when unset
func (f *IssueFields) PriorityName() string {
	if f.Priority == nil {
		return ""
	}
	return f.Priority.Name
}

// StatusName returns the status name, "Unknown" when absent
func (f *IssueFields) StatusName() string {
	if f.Status == nil {
		return "Unknown"
	}
	return f.Status.Name
}

// BodyText returns the comment body as plain text
func (c *Comment) BodyText() string {
	return ExtractText(c.Body)
}

// DescriptionText returns the issue description as plain text
func (f *IssueFields) DescriptionText() string {
	return ExtractText(f.Description)
}

// ExtractText flattens an ADF document (or plain JSON string) to text.
// It collects "text" fields, mention labels from attrs.text, and recurses
// into "content" arrays.
func ExtractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	var parts []string
	collectText(value, &parts)
	return strings.TrimSpace(strings.Join(parts, ""))
}

func collectText(value interface{}, parts *[]string) {
	switch v := value.(type) {
	case string:
		*parts = append(*parts, v)
	case map[string]interface{}:
		if text, ok := v["text"].(string); ok {
			*parts = append(*parts, text)
		}
		if attrs, ok := v["attrs"].(map[string]interface{}); ok {
			if text, ok := attrs["text"].(string); ok {
				*parts = append(*parts, text)
			}
		}
		if content, ok := v["content"].([]interface{}); ok {
			for _, child := range content {
				collectText(child, parts)
			}
		}
	case []interface{}:
		for _, child := range v {
			collectText(child, parts)
		}
	}
}

// MentionsBot reports whether the comment summons the agent, either by
// handle in the text or by the bot's account ID in a mention node.
func (e *CommentEvent) MentionsBot(botAccountID string) bool {
	text := strings.ToLower(e.Comment.BodyText())
	if strings.Contains(text, BotMention) {
		return true
	}
	return botAccountID != "" && strings.Contains(string(e.Comment.Body), botAccountID)
}

// ShouldTrigger reports whether the event should start a fix job
func (e *CommentEvent) ShouldTrigger(botAccountID string) bool {
	if !strings.HasPrefix(e.WebhookEvent, "comment_") {
		return false
	}
	return e.MentionsBot(botAccountID)
}

// FixBranch returns the idempotency branch name for the issue
func (i *Issue) FixBranch() string {
	return "jira-fix/" + strings.ToLower(i.Key)
}

// WebURL derives the browse URL from the issue's REST self link
func (i *Issue) WebURL() string {
	if idx := strings.Index(i.Self, "/rest/"); idx > 0 {
		return i.Self[:idx] + "/browse/" + i.Key
	}
	return i.Self
}
