package gitlab

// User is a GitLab account
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Project is the subset of project fields the dispatcher needs
type Project struct {
	ID                int    `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	HTTPURLToRepo     string `json:"http_url_to_repo"`
	WebURL            string `json:"web_url"`
	DefaultBranch     string `json:"default_branch"`
}

// MergeRequest is the subset of MR fields the dispatcher needs
type MergeRequest struct {
	IID            int    `json:"iid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	State          string `json:"state"`
	SourceBranch   string `json:"source_branch"`
	TargetBranch   string `json:"target_branch"`
	Draft          bool   `json:"draft"`
	WorkInProgress bool   `json:"work_in_progress"`
	WebURL         string `json:"web_url"`
	Author         User   `json:"author"`
}

// DiscussionNote is a single note inside a discussion thread
type DiscussionNote struct {
	ID         int    `json:"id"`
	Body       string `json:"body"`
	Author     User   `json:"author"`
	Resolvable bool   `json:"resolvable"`
	Resolved   bool   `json:"resolved"`
	Position   *struct {
		NewPath string `json:"new_path"`
		NewLine int    `json:"new_line"`
	} `json:"position"`
}

// Discussion is an MR discussion thread
type Discussion struct {
	ID    string           `json:"id"`
	Notes []DiscussionNote `json:"notes"`
}

// Unresolved reports whether any note in the thread awaits resolution
func (d Discussion) Unresolved() bool {
	for _, note := range d.Notes {
		if note.Resolvable && !note.Resolved {
			return true
		}
	}
	return false
}

// Branch is a repository branch
type Branch struct {
	Name string `json:"name"`
}
