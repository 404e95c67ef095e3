package services

import (
	"context"
	"fmt"

	"jira2yatracker/internal/helpers"
	"jira2yatracker/internal/models"
)

// SourceChecker is the part of the JIRA repository used by preflight checks
type SourceChecker interface {
	TestConnection(ctx context.Context) (string, error)
	GetProjectInfo(ctx context.Context, projectKey string) (*models.JiraProjectInfo, error)
}

// TrackerChecker is the part of the Yandex Tracker repository used by preflight checks
type TrackerChecker interface {
	TestConnection(ctx context.Context) (string, error)
	GetQueue(ctx context.Context, key string) (*models.TrackerQueue, error)
	Capabilities() models.TrackerCapabilities
}

// PreflightService validates both connections before any issue is touched
type PreflightService struct {
	source     SourceChecker
	tracker    TrackerChecker
	projectKey string
}

// NewPreflightService creates a new preflight service
func NewPreflightService(source SourceChecker, tracker TrackerChecker, projectKey string) *PreflightService {
	return &PreflightService{
		source:     source,
		tracker:    tracker,
		projectKey: projectKey,
	}
}

// TestConnection checks authentication, project and queue access, and that
// the destination can preserve issue numbers
func (s *PreflightService) TestConnection(ctx context.Context) error {
	helpers.PrintInfo("Testing JIRA authentication...")
	user, err := s.source.TestConnection(ctx)
	if err != nil {
		return fmt.Errorf("JIRA authentication failed: %w", err)
	}
	helpers.PrintSuccess("Authenticated to JIRA as %s", user)

	helpers.PrintInfo("Testing access to project '%s'...", s.projectKey)
	project, err := s.source.GetProjectInfo(ctx, s.projectKey)
	if err != nil {
		return fmt.Errorf("failed to access JIRA project '%s': %w", s.projectKey, err)
	}
	helpers.PrintSuccess("Successfully accessed project '%s' (%s)", project.Key, project.Name)

	helpers.PrintInfo("Testing Yandex Tracker authentication...")
	login, err := s.tracker.TestConnection(ctx)
	if err != nil {
		return fmt.Errorf("Yandex Tracker authentication failed: %w", err)
	}
	helpers.PrintSuccess("Authenticated to Yandex Tracker as %s", login)

	capabilities := s.tracker.Capabilities()
	if !capabilities.ExplicitKeys && !capabilities.SequentialKeys {
		return &models.ConfigurationError{Reason: "Yandex Tracker supports neither explicit nor sequential issue keys; issue numbers cannot be preserved"}
	}

	helpers.PrintInfo("Testing access to queue '%s'...", s.projectKey)
	queue, err := s.tracker.GetQueue(ctx, s.projectKey)
	if err != nil {
		return fmt.Errorf("failed to access Yandex Tracker queue '%s': %w", s.projectKey, err)
	}
	helpers.PrintSuccess("Successfully accessed queue '%s' (%s)", queue.Key, queue.Name)
	return nil
}
