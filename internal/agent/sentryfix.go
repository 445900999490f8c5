package agent

import (
	"fmt"
	"strings"
)

// SentryFixContext carries everything needed to prompt a Sentry fix job
type SentryFixContext struct {
	ShortID      string
	Title        string
	Culprit      string
	Platform     string
	WebURL       string
	Stacktrace   string
	Tags         [][2]string
	VCSProject   string
	TargetBranch string
	VCSPlatform  string
}

// BuildPrompt builds the prompt for a Sentry fix job
func (c *SentryFixContext) BuildPrompt() string {
	var b strings.Builder
	b.WriteString(sentryFixSystemPrompt)
	b.WriteString(sectionSeparator)

	b.WriteString("## Sentry Issue Details\n\n")
	fmt.Fprintf(&b, "**Short ID**: %s\n", c.ShortID)
	fmt.Fprintf(&b, "**Title**: %s\n", c.Title)
	fmt.Fprintf(&b, "**Location**: %s\n", c.Culprit)
	fmt.Fprintf(&b, "**Platform**: %s\n", c.Platform)
	fmt.Fprintf(&b, "**URL**: %s\n", c.WebURL)
	fmt.Fprintf(&b, "**VCS Project**: %s\n", c.VCSProject)
	fmt.Fprintf(&b, "**Target Branch**: %s\n", c.TargetBranch)
	fmt.Fprintf(&b, "**VCS Platform**: %s\n", c.VCSPlatform)

	if len(c.Tags) > 0 {
		b.WriteString("\n**Tags**:\n")
		for _, tag := range c.Tags {
			fmt.Fprintf(&b, "- %s: %s\n", tag[0], tag[1])
		}
	}

	b.WriteString("\n## Error Details\n\n")
	if c.Stacktrace == "" {
		b.WriteString("_No stacktrace available. Investigate based on the culprit location._\n")
	} else {
		b.WriteString(c.Stacktrace)
	}

	b.WriteString("\n\n## Task\n\n")
	fmt.Fprintf(&b, "1. Analyze the error in `%s`\n", c.Culprit)
	b.WriteString("2. Read the relevant source files to understand the context\n")
	b.WriteString("3. Implement a fix for the root cause\n")
	fmt.Fprintf(&b, "4. Create branch `sentry-fix/%s` and commit the fix\n", strings.ToLower(c.ShortID))
	b.WriteString("5. Push and create an MR/PR\n")

	return b.String()
}
