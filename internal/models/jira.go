package models

// JiraIssue represents a JIRA issue as returned by /rest/api/2/issue
type JiraIssue struct {
	ID     string     `json:"id"`
	Key    string     `json:"key"`
	Fields JiraFields `json:"fields"`
}

// JiraFields represents the JIRA fields the migration reads directly.
// Everything else is kept as a raw Value for custom field mapping.
type JiraFields struct {
	Summary     string           `json:"summary"`
	Description string           `json:"description"`
	Status      *JiraNamed       `json:"status"`
	Priority    *JiraNamed       `json:"priority"`
	IssueType   *JiraNamed       `json:"issuetype"`
	Assignee    *JiraUser        `json:"assignee"`
	Creator     *JiraUser        `json:"creator"`
	Reporter    *JiraUser        `json:"reporter"`
	Parent      *JiraIssueRef    `json:"parent,omitempty"`
	Subtasks    []JiraIssueRef   `json:"subtasks"`
	IssueLinks  []JiraIssueLink  `json:"issuelinks"`
	Attachments []JiraAttachment `json:"attachment"`
	Comment     *JiraCommentPage `json:"comment,omitempty"`
}

// JiraNamed is any JIRA object identified by name (status, priority, issue type)
type JiraNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JiraUser represents a JIRA user
type JiraUser struct {
	AccountID   string `json:"accountId"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// JiraIssueRef references another issue
type JiraIssueRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// JiraLinkType describes a JIRA link type
type JiraLinkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

// JiraIssueLink is one entry of the issuelinks field
type JiraIssueLink struct {
	Type         JiraLinkType  `json:"type"`
	OutwardIssue *JiraIssueRef `json:"outwardIssue,omitempty"`
	InwardIssue  *JiraIssueRef `json:"inwardIssue,omitempty"`
}

// JiraAttachment is attachment metadata; Content is the download URL
type JiraAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

// JiraComment represents a JIRA comment
type JiraComment struct {
	ID      string    `json:"id"`
	Author  *JiraUser `json:"author"`
	Body    string    `json:"body"`
	Created string    `json:"created"`
}

// JiraCommentPage is a page of comments
type JiraCommentPage struct {
	StartAt    int           `json:"startAt"`
	MaxResults int           `json:"maxResults"`
	Total      int           `json:"total"`
	Comments   []JiraComment `json:"comments"`
}

// JiraSearchResult represents a JQL search response
type JiraSearchResult struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []JiraIssue `json:"issues"`
}

// JiraProjectInfo represents JIRA project information
type JiraProjectInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
