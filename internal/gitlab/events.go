package gitlab

import (
	"strings"
)

// BotMention is the handle that summons the agent from a comment
const BotMention = "@claude-agent"

// SkipLabel opts a merge request out of automatic reviews
const SkipLabel = "skip-review"

// EventProject is the project block embedded in webhook events
type EventProject struct {
	ID                int    `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	GitHTTPURL        string `json:"git_http_url"`
	WebURL            string `json:"web_url"`
}

// EventUser is the user block embedded in webhook events
type EventUser struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// EventLabel is a label attached to a merge request event
type EventLabel struct {
	Title string `json:"title"`
}

// MRAttributes are the object_attributes of a merge_request event
type MRAttributes struct {
	IID            int    `json:"iid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	State          string `json:"state"`
	Action         string `json:"action"`
	SourceBranch   string `json:"source_branch"`
	TargetBranch   string `json:"target_branch"`
	Draft          bool   `json:"draft"`
	WorkInProgress bool   `json:"work_in_progress"`
	URL            string `json:"url"`
}

// MergeRequestEvent is a GitLab merge_request webhook event
type MergeRequestEvent struct {
	ObjectKind       string       `json:"object_kind"`
	User             EventUser    `json:"user"`
	Project          EventProject `json:"project"`
	ObjectAttributes MRAttributes `json:"object_attributes"`
	Labels           []EventLabel `json:"labels"`
}

// HasLabel reports whether the MR carries the given label
func (e *MergeRequestEvent) HasLabel(title string) bool {
	for _, l := range e.Labels {
		if l.Title == title {
			return true
		}
	}
	return false
}

// ReviewAction maps the webhook action to a review action.
// The second return is false when the event should not trigger a review.
func (e *MergeRequestEvent) ReviewAction() (string, bool) {
	if e.ObjectKind != "merge_request" {
		return "", false
	}
	state := e.ObjectAttributes.State
	if state != "opened" && state != "reopened" {
		return "", false
	}
	if e.ObjectAttributes.Draft || e.ObjectAttributes.WorkInProgress {
		return "", false
	}
	switch e.ObjectAttributes.Action {
	case "open":
		return "open", true
	case "update":
		return "update", true
	case "reopen":
		return "reopen", true
	default:
		return "", false
	}
}

// EventMergeRequest is the merge_request block embedded in pipeline and
// note events
type EventMergeRequest struct {
	IID          int    `json:"iid"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	URL          string `json:"url"`
}

// PipelineAttributes are the object_attributes of a pipeline event
type PipelineAttributes struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Ref    string `json:"ref"`
}

// PipelineEvent is a GitLab pipeline webhook event
type PipelineEvent struct {
	ObjectKind       string             `json:"object_kind"`
	User             EventUser          `json:"user"`
	Project          EventProject       `json:"project"`
	ObjectAttributes PipelineAttributes `json:"object_attributes"`
	MergeRequest     *EventMergeRequest `json:"merge_request"`
}

// Failed reports whether the pipeline finished in a failed state
func (e *PipelineEvent) Failed() bool {
	return e.ObjectKind == "pipeline" && e.ObjectAttributes.Status == "failed"
}

// NoteAttributes are the object_attributes of a note event
type NoteAttributes struct {
	Note         string `json:"note"`
	NoteableType string `json:"noteable_type"`
}

// NoteEvent is a GitLab note (comment) webhook event
type NoteEvent struct {
	ObjectKind       string             `json:"object_kind"`
	User             EventUser          `json:"user"`
	Project          EventProject       `json:"project"`
	ObjectAttributes NoteAttributes     `json:"object_attributes"`
	MergeRequest     *EventMergeRequest `json:"merge_request"`
}

// IsBotUser reports whether the comment author looks like a bot account
func (e *NoteEvent) IsBotUser() bool {
	return strings.Contains(e.User.Username, "_bot_")
}

// MentionsBot reports whether the note summons the agent
func (e *NoteEvent) MentionsBot() bool {
	return strings.Contains(strings.ToLower(e.ObjectAttributes.Note), BotMention)
}

// Instruction returns the text after the bot mention, if any
func (e *NoteEvent) Instruction() string {
	note := e.ObjectAttributes.Note
	idx := strings.Index(strings.ToLower(note), BotMention)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(note[idx+len(BotMention):])
}

// ShouldTrigger reports whether the note should start a comment job
func (e *NoteEvent) ShouldTrigger() bool {
	if e.ObjectKind != "note" || e.IsBotUser() {
		return false
	}
	if e.ObjectAttributes.NoteableType != "MergeRequest" || e.MergeRequest == nil {
		return false
	}
	if !e.MentionsBot() {
		return false
	}
	state := e.MergeRequest.State
	return state == "opened" || state == "reopened"
}
