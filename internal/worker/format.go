package worker

import (
	"fmt"
	"strings"

	"github.com/globalcomix/claude-agent/internal/github"
	"github.com/globalcomix/claude-agent/internal/gitlab"
)

// FormatDiscussions renders GitLab discussion threads for a prompt
func FormatDiscussions(discussions []gitlab.Discussion) string {
	var b strings.Builder
	for _, d := range discussions {
		if len(d.Notes) == 0 {
			continue
		}
		first := d.Notes[0]
		location := ""
		if first.Position != nil {
			location = fmt.Sprintf(" (%s:%d)", first.Position.NewPath, first.Position.NewLine)
		}
		fmt.Fprintf(&b, "### Thread %s%s\n\n", d.ID, location)
		for _, note := range d.Notes {
			fmt.Fprintf(&b, "**@%s**: %s\n\n", note.Author.Username, note.Body)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatComments renders GitHub review comments for a prompt
func FormatComments(comments []github.ReviewComment) string {
	var b strings.Builder
	for _, comment := range comments {
		location := ""
		if comment.Path != "" {
			location = fmt.Sprintf(" (%s:%d)", comment.Path, comment.Line)
		}
		fmt.Fprintf(&b, "### Comment %d%s\n\n", comment.ID, location)
		fmt.Fprintf(&b, "**@%s**: %s\n\n", comment.User.Login, comment.Body)
	}
	return strings.TrimRight(b.String(), "\n")
}
