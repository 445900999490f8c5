package sentry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL("sentry-token", srv.URL)
}

func TestClient_GetIssue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/acme/issues/123456/", r.URL.Path)
		assert.Equal(t, "Bearer sentry-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"id": "123456",
			"shortId": "BACKEND-42",
			"title": "TypeError: x is undefined",
			"culprit": "handleClick(app)",
			"project": {"slug": "backend"}
		}`))
	})

	issue, err := client.GetIssue(context.Background(), "acme", "123456")
	require.NoError(t, err)
	assert.Equal(t, "BACKEND-42", issue.ShortID)
	assert.Equal(t, "backend", issue.Project.Slug)
	assert.Equal(t, "sentry-fix/backend-42", issue.FixBranch())
}

func TestClient_GetLatestEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issues/123456/events/latest/", r.URL.Path)
		w.Write([]byte(`{"title": "TypeError", "tags": [{"key": "browser", "value": "Firefox"}]}`))
	})

	event, err := client.GetLatestEvent(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, "TypeError", event.Title)
	assert.Equal(t, "- browser: Firefox", event.FormatTags())
}

func TestClient_NoRetryOnHTTPError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"no access"}`))
	})

	_, err := client.GetIssue(context.Background(), "acme", "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, 1, calls)
}

func TestWebhookEvent_ShouldTrigger(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		category string
		expected bool
	}{
		{"created error", "created", "error", true},
		{"unresolved", "unresolved", "", true},
		{"resolved ignored", "resolved", "error", false},
		{"assigned ignored", "assigned", "error", false},
		{"performance ignored", "created", "performance", false},
		{"cron ignored", "created", "cron", false},
		{"replay ignored", "created", "replay", false},
		{"feedback ignored", "created", "feedback", false},
		{"uptime ignored", "created", "uptime", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &WebhookEvent{
				Action: tt.action,
				Data:   WebhookData{Issue: Issue{ShortID: "X-1", IssueCategory: tt.category}},
			}
			assert.Equal(t, tt.expected, event.ShouldTrigger())
		})
	}
}

func TestEvent_FormatStacktrace(t *testing.T) {
	event := &Event{
		Entries: []Entry{
			{
				Type: "exception",
				Data: EntryData{
					Values: []ExceptionValue{
						{
							Type:  "TypeError",
							Value: "x is undefined",
							Stacktrace: &Stacktrace{
								Frames: []Frame{
									{Function: "main", Filename: "src/index.ts", LineNo: 3},
									{
										Function: "handleClick",
										Filename: "src/app.ts",
										LineNo:   42,
										Context: [][]interface{}{
											{float64(41), "  const x = find(el)"},
											{float64(42), "  return x.value"},
											{float64(43), "}"},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	out := event.FormatStacktrace()
	assert.Contains(t, out, "## TypeError : x is undefined")
	assert.Contains(t, out, "handleClick in src/app.ts:42")
	assert.Contains(t, out, "> 42 |   return x.value")
	assert.Contains(t, out, "  41 |   const x = find(el)")
	assert.Contains(t, out, "main in src/index.ts:3")
	// most recent frame first
	assert.Less(t, strings.Index(out, "handleClick"), strings.Index(out, "main in"))
}

func TestEvent_FormatStacktrace_Fallback(t *testing.T) {
	event := &Event{Title: "Some crash", Message: "boom in prod"}
	assert.Equal(t, "boom in prod", event.FormatStacktrace())

	event.Message = ""
	assert.Equal(t, "Some crash", event.FormatStacktrace())
}
