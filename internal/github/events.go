package github

// PullRequestEvent is a GitHub pull_request webhook event
type PullRequestEvent struct {
	Action      string          `json:"action"`
	Number      int             `json:"number"`
	PullRequest EventPR         `json:"pull_request"`
	Repository  EventRepository `json:"repository"`
}

// EventPR is the pull_request block of a webhook event
type EventPR struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	Draft   bool   `json:"draft"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

// EventRepository is the repository block of a webhook event
type EventRepository struct {
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
	HTMLURL  string `json:"html_url"`
}

// ReviewAction maps the webhook action to a review action.
// The second return is false when the event should not trigger a review.
func (e *PullRequestEvent) ReviewAction() (string, bool) {
	if e.PullRequest.Draft {
		return "", false
	}
	switch e.Action {
	case "opened":
		return "open", true
	case "synchronize":
		return "update", true
	case "reopened":
		return "reopen", true
	default:
		return "", false
	}
}
