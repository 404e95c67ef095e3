package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"jira2yatracker/internal/config"
	"jira2yatracker/internal/models"
)

const (
	jiraService        = "JIRA"
	jiraPageSize       = 100
	jiraTimestampShort = "2006-01-02T15:04:05.000-0700"
)

// JiraRepository handles JIRA API interactions
type JiraRepository struct {
	config *config.JiraConfig
	rest   *restClient
}

// NewJiraRepository creates a new JIRA repository
func NewJiraRepository(jiraConfig *config.JiraConfig, retry config.RetryConfig) *JiraRepository {
	return &JiraRepository{
		config: jiraConfig,
		rest: newRestClient(jiraService, jiraConfig.URL, jiraConfig.TimeoutSeconds, retry, func(req *http.Request) {
			req.SetBasicAuth(jiraConfig.Username, jiraConfig.APIToken)
		}),
	}
}

// TestConnection checks the credentials and returns the authenticated user's display name
func (r *JiraRepository) TestConnection(ctx context.Context) (string, error) {
	var user models.JiraUser
	if err := r.rest.doJSON(ctx, http.MethodGet, r.rest.baseURL+"/rest/api/2/myself", nil, &user); err != nil {
		return "", err
	}
	return user.DisplayName, nil
}

// GetProjectInfo gets information about a specific project
func (r *JiraRepository) GetProjectInfo(ctx context.Context, projectKey string) (*models.JiraProjectInfo, error) {
	var project models.JiraProjectInfo
	apiURL := fmt.Sprintf("%s/rest/api/2/project/%s", r.rest.baseURL, url.PathEscape(projectKey))
	if err := r.rest.doJSON(ctx, http.MethodGet, apiURL, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// FetchIssue loads a JIRA issue by key and converts it to a source issue
func (r *JiraRepository) FetchIssue(ctx context.Context, key string, opts models.FetchOptions) (*models.SourceIssue, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=*all", r.rest.baseURL, url.PathEscape(key))
	data, err := r.rest.do(ctx, request{method: http.MethodGet, url: apiURL, op: "get issue " + key})
	if err != nil {
		return nil, err
	}

	var issue models.JiraIssue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("failed to decode issue %s: %w", key, err)
	}
	var raw struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode issue %s: %w", key, err)
	}

	source, err := convertJiraIssue(&issue, raw.Fields)
	if err != nil {
		return nil, err
	}

	if opts.Comments {
		if source.Comments, err = r.FetchComments(ctx, issue.Key); err != nil {
			return nil, err
		}
	}

	for _, attachment := range issue.Fields.Attachments {
		item := models.Attachment{Filename: attachment.Filename, MimeType: attachment.MimeType}
		if opts.Attachments {
			if item.Data, err = r.DownloadAttachment(ctx, attachment.Content); err != nil {
				return nil, fmt.Errorf("failed to download attachment '%s': %w", attachment.Filename, err)
			}
		}
		source.Attachments = append(source.Attachments, item)
	}

	return source, nil
}

// FetchComments returns every comment of an issue in creation order
func (r *JiraRepository) FetchComments(ctx context.Context, key string) ([]models.Comment, error) {
	var comments []models.Comment
	startAt := 0
	for {
		params := url.Values{
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(jiraPageSize)},
			"orderBy":    {"created"},
		}
		apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/comment?%s", r.rest.baseURL, url.PathEscape(key), params.Encode())

		var page models.JiraCommentPage
		if err := r.rest.doJSON(ctx, http.MethodGet, apiURL, nil, &page); err != nil {
			return nil, err
		}
		for _, c := range page.Comments {
			created, err := ParseJiraTimestamp(c.Created)
			if err != nil {
				return nil, fmt.Errorf("comment %s of %s: %w", c.ID, key, err)
			}
			comments = append(comments, models.Comment{Author: userName(c.Author), Created: created, Body: c.Body})
		}

		if len(page.Comments) == 0 || startAt+len(page.Comments) >= page.Total {
			return comments, nil
		}
		startAt += len(page.Comments)
	}
}

// DownloadAttachment fetches the binary content of an attachment
func (r *JiraRepository) DownloadAttachment(ctx context.Context, contentURL string) ([]byte, error) {
	return r.rest.do(ctx, request{method: http.MethodGet, url: contentURL, op: "download attachment"})
}

// FetchEpicChildren returns the keys of issues that belong to an epic
func (r *JiraRepository) FetchEpicChildren(ctx context.Context, epicKey string) ([]string, error) {
	jql := fmt.Sprintf("key != %s AND parentEpic IN (%s) ORDER BY key ASC", epicKey, epicKey)
	var keys []string
	startAt := 0
	for {
		result, err := r.search(ctx, jql, startAt, jiraPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to search children of epic %s: %w", epicKey, err)
		}
		for _, issue := range result.Issues {
			keys = append(keys, issue.Key)
		}
		if len(result.Issues) == 0 || startAt+len(result.Issues) >= result.Total {
			return keys, nil
		}
		startAt += len(result.Issues)
	}
}

// LatestIssueNumber returns the highest issue number in a project, or 0 if it is empty
func (r *JiraRepository) LatestIssueNumber(ctx context.Context, projectKey string) (int, error) {
	result, err := r.search(ctx, fmt.Sprintf("project = %s ORDER BY key DESC", projectKey), 0, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to find latest issue of %s: %w", projectKey, err)
	}
	if len(result.Issues) == 0 {
		return 0, nil
	}
	_, number, err := models.ParseIssueKey(result.Issues[0].Key)
	if err != nil {
		return 0, err
	}
	return number, nil
}

func (r *JiraRepository) search(ctx context.Context, jql string, startAt, maxResults int) (*models.JiraSearchResult, error) {
	payload := map[string]interface{}{
		"jql":        jql,
		"startAt":    startAt,
		"maxResults": maxResults,
		"fields":     []string{"key"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search: %w", err)
	}
	data, err := r.rest.do(ctx, request{
		method:      http.MethodPost,
		url:         r.rest.baseURL + "/rest/api/2/search",
		body:        body,
		contentType: "application/json",
		op:          "search",
		idempotent:  true,
	})
	if err != nil {
		return nil, err
	}
	var result models.JiraSearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}
	return &result, nil
}

func convertJiraIssue(issue *models.JiraIssue, rawFields map[string]interface{}) (*models.SourceIssue, error) {
	_, number, err := models.ParseIssueKey(issue.Key)
	if err != nil {
		return nil, err
	}

	f := issue.Fields
	source := &models.SourceIssue{
		Key:         issue.Key,
		Number:      number,
		Summary:     f.Summary,
		Description: f.Description,
		Status:      name(f.Status),
		Priority:    name(f.Priority),
		Type:        name(f.IssueType),
		Assignee:    userName(f.Assignee),
		Reporter:    userName(f.Creator),
		Fields:      models.FromInterface(rawFields),
	}
	if source.Reporter == "" {
		source.Reporter = userName(f.Reporter)
	}

	for _, link := range f.IssueLinks {
		switch {
		case link.OutwardIssue != nil:
			source.Relationships = append(source.Relationships, models.Relationship{
				Kind: link.Type.Outward,
				From: issue.Key,
				To:   link.OutwardIssue.Key,
			})
		case link.InwardIssue != nil:
			// seen from the other side, so the outward name applies with swapped ends
			source.Relationships = append(source.Relationships, models.Relationship{
				Kind: link.Type.Outward,
				From: link.InwardIssue.Key,
				To:   issue.Key,
			})
		}
	}
	for _, subtask := range f.Subtasks {
		source.Relationships = append(source.Relationships, models.Relationship{
			From:       issue.Key,
			To:         subtask.Key,
			Hierarchy:  true,
			ParentType: source.Type,
		})
	}
	if f.Parent != nil && f.Parent.Key != "" {
		source.Relationships = append(source.Relationships, models.Relationship{
			From:       f.Parent.Key,
			To:         issue.Key,
			Hierarchy:  true,
			ParentType: parentType(rawFields),
		})
	}

	return source, nil
}

func parentType(rawFields map[string]interface{}) string {
	parent := models.FromInterface(rawFields["parent"])
	fields, _ := parent.Get("fields")
	issueType, _ := fields.Get("issuetype")
	typeName, _ := issueType.Get("name")
	if typeName.Kind != models.KindScalar {
		return ""
	}
	return typeName.String()
}

func name(n *models.JiraNamed) string {
	if n == nil {
		return ""
	}
	return n.Name
}

func userName(u *models.JiraUser) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// ParseJiraTimestamp parses the timestamp formats JIRA uses in API responses
func ParseJiraTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{jiraTimestampShort, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised JIRA timestamp %q", s)
}
