package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IssueKey formats a project/queue prefix and a numeric suffix as PREFIX-N
func IssueKey(prefix string, number int) string {
	return fmt.Sprintf("%s-%d", prefix, number)
}

// ParseIssueKey splits PREFIX-N into its prefix and number
func ParseIssueKey(key string) (string, int, error) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("malformed issue key %q", key)
	}
	number, err := strconv.Atoi(key[idx+1:])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("malformed issue key %q", key)
	}
	return key[:idx], number, nil
}

// Comment is a single comment on a source issue
type Comment struct {
	Author  string
	Created time.Time
	Body    string
}

// Attachment is an opaque file attached to an issue
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// EpicType is the destination issue type whose children are linked as epic members
const EpicType = "epic"

// Relationship kinds used for parent/child links
const (
	KindSubtask = "subtask"
	KindEpic    = "epic"
)

// Relationship is a link between two source issues. Hierarchy links carry the
// source type of the parent instead of a link kind.
type Relationship struct {
	Kind       string
	From       string
	To         string
	Hierarchy  bool
	ParentType string
}

// SourceIssue is an issue as read from the source tracker
type SourceIssue struct {
	Key           string
	Number        int
	Summary       string
	Description   string
	Status        string
	Priority      string
	Type          string
	Assignee      string
	Reporter      string
	Comments      []Comment
	Attachments   []Attachment
	Relationships []Relationship

	// Fields holds every raw field of the issue keyed by field id
	Fields Value
}

// CustomFieldValue is a translated custom field ready for the destination
type CustomFieldValue struct {
	Name  string
	Value Value
}

// TargetComment is a comment ready to be appended on the destination
type TargetComment struct {
	Author string
	Text   string
}

// TargetIssuePayload is a source issue translated into the destination
// vocabulary. Nil pointers mean "leave the destination field untouched".
type TargetIssuePayload struct {
	Key          string
	Summary      *string
	Description  *string
	Type         *string
	Priority     *string
	Assignee     *string
	Reporter     *string
	Status       string
	CustomFields []CustomFieldValue
	Comments     []TargetComment
	Attachments  []Attachment
}

// Fields renders the overwritable fields as a destination patch body
func (p *TargetIssuePayload) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Summary != nil {
		fields["summary"] = *p.Summary
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Type != nil {
		fields["type"] = map[string]string{"key": *p.Type}
	}
	if p.Priority != nil {
		fields["priority"] = map[string]string{"key": *p.Priority}
	}
	if p.Assignee != nil {
		fields["assignee"] = *p.Assignee
	}
	if p.Reporter != nil {
		fields["createdBy"] = *p.Reporter
	}
	for _, cf := range p.CustomFields {
		fields[cf.Name] = cf.Value.Interface()
	}
	return fields
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// FetchOptions selects the expensive parts of a source issue to load
type FetchOptions struct {
	Comments    bool
	Attachments bool
}
