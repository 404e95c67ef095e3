package services

import (
	"context"

	"jira2yatracker/internal/models"
)

// SourceRepository reads issues from JIRA
type SourceRepository interface {
	FetchIssue(ctx context.Context, key string, opts models.FetchOptions) (*models.SourceIssue, error)
	FetchEpicChildren(ctx context.Context, epicKey string) ([]string, error)
	LatestIssueNumber(ctx context.Context, projectKey string) (int, error)
}

// TrackerRepository writes issues to Yandex Tracker
type TrackerRepository interface {
	Capabilities() models.TrackerCapabilities
	GetIssue(ctx context.Context, key string) (*models.TrackerIssue, error)
	CreateIssue(ctx context.Context, queue, summary string) (*models.TrackerIssue, error)
	UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.TrackerIssue, error)
	Transitions(ctx context.Context, key string) ([]models.TrackerTransition, error)
	ExecuteTransition(ctx context.Context, key, transitionID string) error
	AddComment(ctx context.Context, key, text string) error
	UploadAttachment(ctx context.Context, key string, attachment models.Attachment) error
	Links(ctx context.Context, key string) ([]models.TrackerLink, error)
	CreateLink(ctx context.Context, key, relationship, target string) error
	Components(ctx context.Context) ([]models.TrackerComponent, error)
}
