package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira2yatracker/internal/models"
)

type fakeSourceChecker struct {
	projects map[string]string
}

func (c *fakeSourceChecker) TestConnection(context.Context) (string, error) {
	return "Migration Bot", nil
}

func (c *fakeSourceChecker) GetProjectInfo(_ context.Context, key string) (*models.JiraProjectInfo, error) {
	name, ok := c.projects[key]
	if !ok {
		return nil, notFound("JIRA", "get project "+key)
	}
	return &models.JiraProjectInfo{Key: key, Name: name}, nil
}

type fakeTrackerChecker struct {
	capabilities models.TrackerCapabilities
	queues       map[string]string
	queueCalls   int
}

func (c *fakeTrackerChecker) TestConnection(context.Context) (string, error) {
	return "robot", nil
}

func (c *fakeTrackerChecker) GetQueue(_ context.Context, key string) (*models.TrackerQueue, error) {
	c.queueCalls++
	name, ok := c.queues[key]
	if !ok {
		return nil, notFound("Yandex Tracker", "get queue "+key)
	}
	return &models.TrackerQueue{Key: key, Name: name}, nil
}

func (c *fakeTrackerChecker) Capabilities() models.TrackerCapabilities {
	return c.capabilities
}

func TestPreflight(t *testing.T) {
	source := &fakeSourceChecker{projects: map[string]string{"IT": "Internal Tools"}}
	tracker := &fakeTrackerChecker{
		capabilities: models.TrackerCapabilities{SequentialKeys: true},
		queues:       map[string]string{"IT": "Internal Tools"},
	}

	require.NoError(t, NewPreflightService(source, tracker, "IT").TestConnection(context.Background()))

	err := NewPreflightService(source, tracker, "OPS").TestConnection(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestPreflightRequiresKeyPreservation(t *testing.T) {
	source := &fakeSourceChecker{projects: map[string]string{"IT": "Internal Tools"}}
	tracker := &fakeTrackerChecker{queues: map[string]string{"IT": "Internal Tools"}}

	err := NewPreflightService(source, tracker, "IT").TestConnection(context.Background())

	var cfgErr *models.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Zero(t, tracker.queueCalls)
}
