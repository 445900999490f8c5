package agent

import (
	"fmt"
	"strings"
)

// JiraTicketContext carries everything needed to prompt a Jira ticket job
type JiraTicketContext struct {
	IssueKey       string
	Summary        string
	Description    string
	IssueType      string
	Priority       string
	Status         string
	Labels         []string
	WebURL         string
	TriggerComment string
	TriggerAuthor  string
	VCSProject     string
	TargetBranch   string
	VCSPlatform    string
}

// BuildPrompt builds the prompt for a Jira ticket job
func (c *JiraTicketContext) BuildPrompt() string {
	var b strings.Builder
	b.WriteString(jiraHandlerSystemPrompt)
	b.WriteString(sectionSeparator)

	b.WriteString("## Jira Ticket Details\n\n")
	fmt.Fprintf(&b, "**Issue Key**: %s\n", c.IssueKey)
	fmt.Fprintf(&b, "**Summary**: %s\n", c.Summary)
	fmt.Fprintf(&b, "**Type**: %s\n", c.IssueType)
	if c.Priority != "" {
		fmt.Fprintf(&b, "**Priority**: %s\n", c.Priority)
	}
	fmt.Fprintf(&b, "**Status**: %s\n", c.Status)
	if len(c.Labels) > 0 {
		fmt.Fprintf(&b, "**Labels**: %s\n", strings.Join(c.Labels, ", "))
	}
	fmt.Fprintf(&b, "**URL**: %s\n", c.WebURL)
	fmt.Fprintf(&b, "**VCS Project**: %s\n", c.VCSProject)
	fmt.Fprintf(&b, "**Target Branch**: %s\n", c.TargetBranch)
	fmt.Fprintf(&b, "**VCS Platform**: %s\n", c.VCSPlatform)

	b.WriteString("\n## Description\n\n")
	if c.Description == "" {
		b.WriteString("_No description provided._\n")
	} else {
		b.WriteString(c.Description)
		b.WriteString("\n")
	}

	if c.TriggerComment != "" {
		b.WriteString("\n## Trigger Comment\n\n")
		if c.TriggerAuthor != "" {
			fmt.Fprintf(&b, "**From**: %s\n\n", c.TriggerAuthor)
		}
		b.WriteString(c.TriggerComment)
		b.WriteString("\n")
	}

	b.WriteString("\n## Task\n\n")
	fmt.Fprintf(&b, "1. Analyze the ticket `%s`: %s\n", c.IssueKey, c.Summary)
	b.WriteString("2. Explore the codebase to find relevant files\n")
	b.WriteString("3. Implement the required changes\n")
	fmt.Fprintf(&b, "4. Create branch `jira-fix/%s` and commit\n", strings.ToLower(c.IssueKey))
	b.WriteString("5. Push and create an MR/PR\n")

	return b.String()
}
