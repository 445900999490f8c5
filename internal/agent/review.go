// Package agent assembles prompts for the coding agent and runs it.
package agent

import (
	"fmt"
	"strings"

	"github.com/globalcomix/claude-agent/internal/payload"
)

const sectionSeparator = "\n\n---\n\n"

// ReviewContext carries everything needed to prompt a review job
type ReviewContext struct {
	Platform     string
	Project      string
	MRID         string
	Title        string
	Description  string
	Author       string
	SourceBranch string
	TargetBranch string
	Diff         string
	ChangedFiles []string

	// GitLab inline-comment anchors, set together or not at all
	BaseSHA  string
	HeadSHA  string
	StartSHA string
}

// BuildReviewPrompt builds the prompt for a fresh GitLab review
func (c *ReviewContext) BuildReviewPrompt() string {
	var b strings.Builder
	b.WriteString(reviewSystemPrompt)
	b.WriteString(sectionSeparator)

	b.WriteString("## Merge Request Details\n\n")
	c.appendBasicInfo(&b)
	c.appendDescription(&b)

	if c.BaseSHA != "" && c.HeadSHA != "" && c.StartSHA != "" {
		b.WriteString("\n**Diff SHAs** (for inline comments):\n")
		fmt.Fprintf(&b, "- BASE_SHA: `%s`\n", c.BaseSHA)
		fmt.Fprintf(&b, "- HEAD_SHA: `%s`\n", c.HeadSHA)
		fmt.Fprintf(&b, "- START_SHA: `%s`\n", c.StartSHA)
	}

	c.appendChangedFiles(&b)
	c.appendDiff(&b)

	b.WriteString("Review this merge request. Post inline comments for specific issues and a general comment for overall observations.")
	return b.String()
}

// BuildUpdatePrompt builds the prompt for a new push to a reviewed MR
func (c *ReviewContext) BuildUpdatePrompt(discussions string) string {
	var b strings.Builder
	b.WriteString(updateSystemPrompt)
	b.WriteString(sectionSeparator)

	b.WriteString("## Merge Request Details\n\n")
	c.appendBasicInfo(&b)

	b.WriteString("\n## Unresolved Discussion Threads\n\n")
	if discussions == "" {
		b.WriteString("_No unresolved threads._\n")
	} else {
		b.WriteString(discussions)
	}

	b.WriteString("\n## New Changes (Diff)\n\n```diff\n")
	b.WriteString(c.Diff)
	b.WriteString("\n```\n\n")

	b.WriteString("Review the unresolved threads and new diff. Reply to threads addressed by the new changes, and post new comments only for new issues.")
	return b.String()
}

// BuildGitHubPrompt builds the prompt for a fresh GitHub PR review
func (c *ReviewContext) BuildGitHubPrompt() string {
	var b strings.Builder
	b.WriteString(githubSystemPrompt)
	b.WriteString(sectionSeparator)

	b.WriteString("## Pull Request Details\n\n")
	c.appendPRInfo(&b)
	c.appendDescription(&b)
	c.appendChangedFiles(&b)
	c.appendDiff(&b)

	b.WriteString("Review this pull request. Post inline comments for specific issues using `github pr review`, and a general comment for overall observations.")
	return b.String()
}

// BuildGitHubUpdatePrompt builds the prompt for a new push to a reviewed PR
func (c *ReviewContext) BuildGitHubUpdatePrompt(comments string) string {
	var b strings.Builder
	b.WriteString(githubUpdateSystemPrompt)
	b.WriteString(sectionSeparator)

	b.WriteString("## Pull Request Details\n\n")
	c.appendPRInfo(&b)

	b.WriteString("\n## Previous Review Comments\n\n")
	if comments == "" {
		b.WriteString("_No previous review comments._\n")
	} else {
		b.WriteString(comments)
	}

	b.WriteString("\n## New Changes (Diff)\n\n```diff\n")
	b.WriteString(c.Diff)
	b.WriteString("\n```\n\n")

	b.WriteString("Review the previous comments and new diff. Acknowledge addressed concerns and post new comments only for new issues.")
	return b.String()
}

// BuildLintFixPrompt builds the prompt for a CI lint failure job.
// The linter output collected locally is appended when available.
func (c *ReviewContext) BuildLintFixPrompt(linterOutput string) string {
	var b strings.Builder
	system := strings.ReplaceAll(lintFixSystemPrompt, "{PROJECT}", c.Project)
	system = strings.ReplaceAll(system, "{BRANCH}", c.SourceBranch)
	b.WriteString(system)
	b.WriteString(sectionSeparator)

	b.WriteString("## Merge Request Details\n\n")
	fmt.Fprintf(&b, "**Project**: %s\n", c.Project)
	fmt.Fprintf(&b, "**MR IID**: %s\n", c.MRID)
	fmt.Fprintf(&b, "**Title**: %s\n", c.Title)
	fmt.Fprintf(&b, "**Branch**: %s → %s\n", c.SourceBranch, c.TargetBranch)

	c.appendChangedFiles(&b)

	if linterOutput != "" {
		b.WriteString("\n## Local Linter Output\n\n```\n")
		b.WriteString(linterOutput)
		b.WriteString("\n```\n")
	}

	b.WriteString("\n## Your Task\n\n")
	fmt.Fprintf(&b, "1. Run `gitlab ci logs lint -p %s -b %s` to see the linter errors\n", c.Project, c.SourceBranch)
	b.WriteString("2. Fix the errors in the changed files\n")
	b.WriteString("3. Commit and push your fixes\n")
	return b.String()
}

// BuildCommentPrompt builds the prompt for a comment-triggered job
func (c *ReviewContext) BuildCommentPrompt(instruction, discussions string) string {
	var b strings.Builder
	isGitHub := c.Platform == payload.PlatformGitHub

	system := commentSystemPrompt
	if isGitHub {
		system = strings.Replace(system,
			`gitlab mr comment <MR_IID> -m "Your comment" -p <PROJECT>`,
			fmt.Sprintf(`github pr comment %s %s -m "Your comment"`, c.Project, c.MRID),
			1)
	}
	b.WriteString(system)
	b.WriteString(sectionSeparator)

	label := "Merge Request"
	if isGitHub {
		label = "Pull Request"
	}
	fmt.Fprintf(&b, "## %s Details\n\n", label)
	c.appendBasicInfo(&b)
	c.appendDescription(&b)
	c.appendChangedFiles(&b)
	c.appendDiff(&b)

	if discussions != "" {
		b.WriteString("## MR Discussion Threads\n\n")
		b.WriteString(discussions)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## User Instruction\n\n%s\n\n", instruction)
	b.WriteString("Carry out the user's instruction above. The discussion threads above provide context for what has been discussed on this MR.")
	return b.String()
}

func (c *ReviewContext) appendBasicInfo(b *strings.Builder) {
	fmt.Fprintf(b, "**Project**: %s\n", c.Project)
	fmt.Fprintf(b, "**MR IID**: %s\n", c.MRID)
	fmt.Fprintf(b, "**Title**: %s\n", c.Title)
	fmt.Fprintf(b, "**Branch**: %s → %s\n", c.SourceBranch, c.TargetBranch)
	fmt.Fprintf(b, "**Author**: %s\n", c.Author)
}

func (c *ReviewContext) appendPRInfo(b *strings.Builder) {
	fmt.Fprintf(b, "**Repository**: %s\n", c.Project)
	fmt.Fprintf(b, "**PR Number**: %s\n", c.MRID)
	fmt.Fprintf(b, "**Title**: %s\n", c.Title)
	fmt.Fprintf(b, "**Branch**: %s → %s\n", c.SourceBranch, c.TargetBranch)
	fmt.Fprintf(b, "**Author**: %s\n", c.Author)
}

func (c *ReviewContext) appendDescription(b *strings.Builder) {
	if c.Description != "" {
		fmt.Fprintf(b, "\n**Description**:\n%s\n", c.Description)
	}
}

func (c *ReviewContext) appendChangedFiles(b *strings.Builder) {
	b.WriteString("\n## Changed Files\n\n")
	for _, file := range c.ChangedFiles {
		fmt.Fprintf(b, "- `%s`\n", file)
	}
}

func (c *ReviewContext) appendDiff(b *strings.Builder) {
	b.WriteString("\n## Diff\n\n```diff\n")
	b.WriteString(c.Diff)
	b.WriteString("\n```\n\n")
}
