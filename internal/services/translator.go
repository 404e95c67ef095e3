package services

import (
	"errors"
	"fmt"
	"time"

	"jira2yatracker/internal/mapping"
	"jira2yatracker/internal/models"
)

const commentTimeLayout = "02 January 2006 at 15:04 MST"

// Translator converts JIRA issues into Yandex Tracker payloads. It does no I/O.
type Translator struct {
	mapping       *mapping.Table
	location      *time.Location
	unknownAuthor string
}

// NewTranslator creates a translator rendering comment timestamps in location
func NewTranslator(table *mapping.Table, location *time.Location, unknownAuthor string) *Translator {
	if location == nil {
		location = time.UTC
	}
	return &Translator{
		mapping:       table,
		location:      location,
		unknownAuthor: unknownAuthor,
	}
}

// Translate maps one source issue into the destination vocabulary.
// Any unmapped status, priority, type or user is an error.
func (t *Translator) Translate(issue *models.SourceIssue) (*models.TargetIssuePayload, error) {
	payload := &models.TargetIssuePayload{
		Key:     issue.Key,
		Summary: models.StringPtr(issue.Summary),
	}
	if issue.Description != "" {
		payload.Description = models.StringPtr(issue.Description)
	}

	if issue.Status != "" {
		status, err := t.mapping.Resolve(mapping.Statuses, issue.Status)
		if err != nil {
			return nil, err
		}
		payload.Status = status
	}

	optional := []struct {
		section mapping.Section
		value   string
		target  **string
	}{
		{mapping.Priorities, issue.Priority, &payload.Priority},
		{mapping.Types, issue.Type, &payload.Type},
		{mapping.Users, issue.Assignee, &payload.Assignee},
		{mapping.Users, issue.Reporter, &payload.Reporter},
	}
	for _, field := range optional {
		if field.value == "" {
			continue
		}
		resolved, err := t.mapping.Resolve(field.section, field.value)
		if err != nil {
			return nil, err
		}
		*field.target = models.StringPtr(resolved)
	}

	for _, field := range t.mapping.CustomFields() {
		value, found := t.mapping.ResolveCustomField(field.Path, issue.Fields)
		if !found {
			continue
		}
		payload.CustomFields = append(payload.CustomFields, value)
	}

	for _, comment := range issue.Comments {
		translated, err := t.translateComment(comment)
		if err != nil {
			return nil, err
		}
		payload.Comments = append(payload.Comments, translated)
	}

	payload.Attachments = append(payload.Attachments, issue.Attachments...)

	return payload, nil
}

func (t *Translator) translateComment(comment models.Comment) (models.TargetComment, error) {
	name := comment.Author
	if name == "" {
		name = t.unknownAuthor
	}

	author, err := t.mapping.Resolve(mapping.Users, comment.Author)
	var unmapped *models.UnmappedValueError
	switch {
	case err == nil:
	case errors.As(err, &unmapped):
		author = t.unknownAuthor
	default:
		return models.TargetComment{}, err
	}

	header := fmt.Sprintf("%s commented on %s", name, comment.Created.In(t.location).Format(commentTimeLayout))
	return models.TargetComment{
		Author: author,
		Text:   header + "\n\n" + comment.Body,
	}, nil
}
