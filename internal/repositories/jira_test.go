package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira2yatracker/internal/config"
	"jira2yatracker/internal/models"
)

const jiraIssueJSON = `{
  "id": "10010",
  "key": "IT-10",
  "fields": {
    "summary": "Broken login",
    "description": "h1. Steps",
    "status": {"id": "3", "name": "In Progress"},
    "priority": {"id": "2", "name": "High"},
    "issuetype": {"id": "1", "name": "Task"},
    "assignee": {"accountId": "a1", "displayName": "Ivan Petrov"},
    "creator": {"accountId": "a2", "displayName": "Anna Smirnova"},
    "parent": {"key": "IT-2", "fields": {"issuetype": {"name": "Epic"}}},
    "subtasks": [{"key": "IT-11"}],
    "issuelinks": [
      {"type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"}, "outwardIssue": {"key": "IT-12"}},
      {"type": {"name": "Relates", "inward": "relates to", "outward": "relates to"}, "inwardIssue": {"key": "IT-3"}}
    ],
    "attachment": [{"id": "1", "filename": "log.txt", "mimeType": "text/plain", "content": "%s/secure/attachment/1/log.txt"}],
    "components": [{"name": "Backend"}, {"name": "API"}],
    "customfield_10010": {"value": "Team A"}
  }
}`

type jiraMock struct {
	server   *httptest.Server
	requests []string
}

func newJiraMock(t *testing.T) *jiraMock {
	t.Helper()
	m := &jiraMock{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests = append(m.requests, r.Method+" "+r.URL.Path)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "migrator" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.URL.Path == "/rest/api/2/issue/IT-10":
			_, _ = w.Write([]byte(strings.Replace(jiraIssueJSON, "%s", m.server.URL, 1)))
		case r.URL.Path == "/rest/api/2/issue/IT-10/comment":
			page := map[string]interface{}{"startAt": 0, "maxResults": 100, "total": 2, "comments": []map[string]interface{}{
				{"id": "1", "author": map[string]string{"displayName": "Ivan Petrov"}, "body": "first", "created": "2024-03-01T10:00:00.000+0300"},
				{"id": "2", "author": map[string]string{"displayName": "Ghost"}, "body": "second", "created": "2024-03-02T11:30:00.000+0000"},
			}}
			if r.URL.Query().Get("startAt") == "1" {
				page["comments"] = page["comments"].([]map[string]interface{})[1:]
			} else {
				page["comments"] = page["comments"].([]map[string]interface{})[:1]
			}
			_ = json.NewEncoder(w).Encode(page)
		case r.URL.Path == "/secure/attachment/1/log.txt":
			_, _ = w.Write([]byte("log line"))
		case r.URL.Path == "/rest/api/2/issue/IT-404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errorMessages":["Issue does not exist"]}`))
		case r.URL.Path == "/rest/api/2/search":
			var body struct {
				JQL string `json:"jql"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if strings.HasPrefix(body.JQL, "project = IT") {
				_, _ = w.Write([]byte(`{"startAt":0,"maxResults":1,"total":57,"issues":[{"key":"IT-57"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"startAt":0,"maxResults":100,"total":2,"issues":[{"key":"IT-20"},{"key":"IT-21"}]}`))
		case r.URL.Path == "/rest/api/2/myself":
			_, _ = w.Write([]byte(`{"displayName":"Migration Bot"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *jiraMock) repo(attempts int) *JiraRepository {
	return NewJiraRepository(&config.JiraConfig{
		URL:            m.server.URL,
		Username:       "migrator",
		APIToken:       "secret",
		TimeoutSeconds: 5,
	}, config.RetryConfig{Attempts: attempts, DelaySeconds: 1})
}

func TestJiraFetchIssue(t *testing.T) {
	mock := newJiraMock(t)

	issue, err := mock.repo(1).FetchIssue(context.Background(), "IT-10", models.FetchOptions{Comments: true, Attachments: true})
	require.NoError(t, err)

	assert.Equal(t, "IT-10", issue.Key)
	assert.Equal(t, 10, issue.Number)
	assert.Equal(t, "In Progress", issue.Status)
	assert.Equal(t, "High", issue.Priority)
	assert.Equal(t, "Task", issue.Type)
	assert.Equal(t, "Ivan Petrov", issue.Assignee)
	assert.Equal(t, "Anna Smirnova", issue.Reporter)

	require.Len(t, issue.Comments, 2)
	assert.Equal(t, "first", issue.Comments[0].Body)
	assert.True(t, issue.Comments[0].Created.Equal(time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Ghost", issue.Comments[1].Author)

	require.Len(t, issue.Attachments, 1)
	assert.Equal(t, "log.txt", issue.Attachments[0].Filename)
	assert.Equal(t, []byte("log line"), issue.Attachments[0].Data)

	assert.Equal(t, []models.Relationship{
		{Kind: "blocks", From: "IT-10", To: "IT-12"},
		{Kind: "relates to", From: "IT-3", To: "IT-10"},
		{From: "IT-10", To: "IT-11", Hierarchy: true, ParentType: "Task"},
		{From: "IT-2", To: "IT-10", Hierarchy: true, ParentType: "Epic"},
	}, issue.Relationships)

	components, ok := issue.Fields.Get("components")
	require.True(t, ok)
	assert.Len(t, components.List, 2)
}

func TestJiraFetchIssueWithoutContent(t *testing.T) {
	mock := newJiraMock(t)

	issue, err := mock.repo(1).FetchIssue(context.Background(), "IT-10", models.FetchOptions{})
	require.NoError(t, err)

	assert.Empty(t, issue.Comments)
	require.Len(t, issue.Attachments, 1)
	assert.Nil(t, issue.Attachments[0].Data)
	assert.NotContains(t, mock.requests, "GET /secure/attachment/1/log.txt")
	assert.NotContains(t, mock.requests, "GET /rest/api/2/issue/IT-10/comment")
}

func TestJiraFetchIssueNotFound(t *testing.T) {
	mock := newJiraMock(t)

	_, err := mock.repo(1).FetchIssue(context.Background(), "IT-404", models.FetchOptions{})
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))

	var apiErr *models.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Body, "Issue does not exist")
}

func TestJiraSearches(t *testing.T) {
	mock := newJiraMock(t)
	repo := mock.repo(1)
	ctx := context.Background()

	latest, err := repo.LatestIssueNumber(ctx, "IT")
	require.NoError(t, err)
	assert.Equal(t, 57, latest)

	children, err := repo.FetchEpicChildren(ctx, "IT-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"IT-20", "IT-21"}, children)

	name, err := repo.TestConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Migration Bot", name)
}

func TestJiraServerErrorIsTransient(t *testing.T) {
	mock := newJiraMock(t)

	_, err := mock.repo(1).GetProjectInfo(context.Background(), "IT")
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
	assert.Equal(t, 1, len(mock.requests), "no retry with a single attempt")
}

func TestParseJiraTimestamp(t *testing.T) {
	for _, s := range []string{"2024-03-01T10:00:00.000+0300", "2024-03-01T07:00:00Z", "2024-03-01T10:00:00.5+03:00"} {
		ts, err := ParseJiraTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2024, ts.Year())
	}
	_, err := ParseJiraTimestamp("yesterday")
	assert.Error(t, err)
}
