package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira2yatracker/internal/models"
)

const wipStatus = "openMeta"

func newTestUpserter(tracker *fakeTracker) *Upserter {
	return NewUpserter(tracker, "IT", wipStatus, "[JIRA2YT] WIP")
}

func translate(t *testing.T, issue *models.SourceIssue) *models.TargetIssuePayload {
	t.Helper()
	payload, err := NewTranslator(testMapping(t), moscow, "robot").Translate(issue)
	require.NoError(t, err)
	return payload
}

func TestUpsertCreatesThroughPlaceholders(t *testing.T) {
	tracker := newFakeTracker("IT", 8)
	tracker.components = []models.TrackerComponent{{ID: 1, Name: "Backend"}, {ID: 2, Name: "API"}}

	result, err := newTestUpserter(tracker).Upsert(context.Background(), "IT-10", translate(t, sourceIssue(10)))
	require.NoError(t, err)
	assert.Equal(t, models.Created, result)

	assert.Equal(t, []string{"IT-8", "IT-9", "IT-10"}, tracker.created)
	for _, key := range []string{"IT-8", "IT-9"} {
		assert.Equal(t, "open", tracker.issues[key].status)
		assert.Equal(t, "[JIRA2YT] WIP", tracker.issues[key].fields["summary"])
	}

	issue := tracker.issues["IT-10"]
	assert.Equal(t, "inProgress", issue.status)
	assert.Equal(t, "Broken login", issue.fields["summary"])
	assert.Equal(t, map[string]string{"key": "critical"}, issue.fields["priority"])
	assert.Equal(t, map[string]string{"key": "task"}, issue.fields["type"])
	assert.Equal(t, "ipetrov", issue.fields["assignee"])
	assert.Equal(t, []int64{1, 2}, issue.fields["components"])
	assert.Equal(t, "Team A", issue.fields["team"])
}

func TestUpsertKeyAllocationError(t *testing.T) {
	tracker := newFakeTracker("IT", 12)
	tracker.components = []models.TrackerComponent{{ID: 1, Name: "Backend"}, {ID: 2, Name: "API"}}

	_, err := newTestUpserter(tracker).Upsert(context.Background(), "IT-10", translate(t, sourceIssue(10)))
	var allocation *models.KeyAllocationError
	require.True(t, errors.As(err, &allocation))
	assert.Equal(t, "IT-10", allocation.Wanted)
	assert.Equal(t, "IT-12", allocation.Got)
}

func TestUpsertNeverClearsAbsentFields(t *testing.T) {
	tracker := newFakeTracker("IT", 1)
	tracker.seed("IT-10", "inProgress", map[string]interface{}{
		"summary":     "old summary",
		"description": "keep me",
		"assignee":    "asmirnova",
		"tags":        []interface{}{"legacy"},
	})

	payload := &models.TargetIssuePayload{
		Key:     "IT-10",
		Summary: models.StringPtr("new summary"),
		Status:  "inProgressMeta",
	}
	result, err := newTestUpserter(tracker).Upsert(context.Background(), "IT-10", payload)
	require.NoError(t, err)
	assert.Equal(t, models.Overwritten, result)

	fields := tracker.issues["IT-10"].fields
	assert.Equal(t, "new summary", fields["summary"])
	assert.Equal(t, "keep me", fields["description"])
	assert.Equal(t, "asmirnova", fields["assignee"])
	assert.Equal(t, []interface{}{"legacy"}, fields["tags"])
	assert.Empty(t, tracker.executed, "status already matches")
	assert.Empty(t, tracker.created)
}

func TestUpsertTwiceDuplicatesCommentsAndAttachments(t *testing.T) {
	tracker := newFakeTracker("IT", 10)
	tracker.components = []models.TrackerComponent{{ID: 1, Name: "Backend"}, {ID: 2, Name: "API"}}
	issue := sourceIssue(10)
	issue.Comments = []models.Comment{{Author: "Ivan Petrov", Body: "first"}, {Author: "Anna Smirnova", Body: "second"}}
	issue.Attachments = []models.Attachment{{Filename: "log.txt"}}
	payload := translate(t, issue)
	upserter := newTestUpserter(tracker)

	first, err := upserter.Upsert(context.Background(), "IT-10", payload)
	require.NoError(t, err)
	second, err := upserter.Upsert(context.Background(), "IT-10", payload)
	require.NoError(t, err)

	assert.Equal(t, models.Created, first)
	assert.Equal(t, models.Overwritten, second)
	// comments and attachments are appended on every run
	assert.Len(t, tracker.comments["IT-10"], 4)
	assert.Equal(t, tracker.comments["IT-10"][:2], tracker.comments["IT-10"][2:])
	assert.Equal(t, []string{"log.txt", "log.txt"}, tracker.attachments["IT-10"])
}

func TestUpsertTransitionsViaWIPStatus(t *testing.T) {
	tracker := newFakeTracker("IT", 1)
	tracker.seed("IT-10", "closed", map[string]interface{}{"summary": "Broken login"})
	tracker.rejected["closed->inProgress"] = true
	tracker.components = []models.TrackerComponent{{ID: 1, Name: "Backend"}, {ID: 2, Name: "API"}}

	payload := translate(t, sourceIssue(10))
	require.Equal(t, "critical", *payload.Priority)
	require.Equal(t, "inProgressMeta", payload.Status)

	_, err := newTestUpserter(tracker).Upsert(context.Background(), "IT-10", payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"IT-10:closed->open", "IT-10:open->inProgress"}, tracker.executed)
	assert.Equal(t, "inProgress", tracker.issues["IT-10"].status)
	assert.Equal(t, map[string]string{"key": "critical"}, tracker.issues["IT-10"].fields["priority"])
}

func TestUpsertStatusTransitionError(t *testing.T) {
	tracker := newFakeTracker("IT", 1)
	tracker.seed("IT-10", "closed", nil)
	tracker.rejected["closed->inProgress"] = true
	tracker.rejected["open->inProgress"] = true

	payload := &models.TargetIssuePayload{Key: "IT-10", Status: "inProgressMeta"}
	_, err := newTestUpserter(tracker).Upsert(context.Background(), "IT-10", payload)

	var transition *models.StatusTransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, "IT-10", transition.Key)
	assert.Equal(t, "closed", transition.From)
	assert.Equal(t, "inProgressMeta", transition.To)
	assert.Equal(t, wipStatus, transition.Intermediate)
	assert.Equal(t, []string{"IT-10:closed->open"}, tracker.executed)
}

func TestUpsertUnknownComponent(t *testing.T) {
	tracker := newFakeTracker("IT", 1)
	tracker.seed("IT-10", "inProgress", nil)
	tracker.components = []models.TrackerComponent{{ID: 1, Name: "Backend"}}

	_, err := newTestUpserter(tracker).Upsert(context.Background(), "IT-10", translate(t, sourceIssue(10)))

	var unmapped *models.UnmappedValueError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "components", unmapped.Section)
	assert.Equal(t, "API", unmapped.Key)
	assert.Empty(t, tracker.updates)
}

// unstableTracker fails the first calls of one workflow endpoint with a 503
type unstableTracker struct {
	*fakeTracker
	failTransitions int
	failExecute     int
}

func unavailable(op string) error {
	return &models.TransientAPIError{Service: "Yandex Tracker", Op: op, StatusCode: 503, Err: errors.New("service unavailable")}
}

func (t *unstableTracker) Transitions(ctx context.Context, key string) ([]models.TrackerTransition, error) {
	if t.failTransitions > 0 {
		t.failTransitions--
		return nil, unavailable("transitions of " + key)
	}
	return t.fakeTracker.Transitions(ctx, key)
}

func (t *unstableTracker) ExecuteTransition(ctx context.Context, key, transitionID string) error {
	if t.failExecute > 0 {
		t.failExecute--
		return unavailable("execute " + transitionID)
	}
	return t.fakeTracker.ExecuteTransition(ctx, key, transitionID)
}

func TestUpsertTransientTransitionFailureHalts(t *testing.T) {
	tests := []struct {
		name    string
		tracker func(*fakeTracker) *unstableTracker
	}{
		{"listing transitions", func(f *fakeTracker) *unstableTracker { return &unstableTracker{fakeTracker: f, failTransitions: 1} }},
		{"executing transition", func(f *fakeTracker) *unstableTracker { return &unstableTracker{fakeTracker: f, failExecute: 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := newFakeTracker("IT", 1)
			base.seed("IT-10", "closed", nil)
			tracker := tt.tracker(base)

			payload := &models.TargetIssuePayload{Key: "IT-10", Status: "inProgressMeta"}
			_, err := NewUpserter(tracker, "IT", wipStatus, "[JIRA2YT] WIP").Upsert(context.Background(), "IT-10", payload)
			require.Error(t, err)

			assert.True(t, models.IsTransient(err))
			var transition *models.StatusTransitionError
			assert.False(t, errors.As(err, &transition))
			assert.Empty(t, base.executed, "no detour through the WIP status")
			assert.Equal(t, "closed", base.issues["IT-10"].status)
		})
	}
}

func TestUpsertRejectsNonScalarComponents(t *testing.T) {
	tracker := newFakeTracker("IT", 1)
	tracker.seed("IT-10", "inProgress", map[string]interface{}{"components": []int64{1, 2}})
	tracker.components = []models.TrackerComponent{{ID: 1, Name: "Backend"}, {ID: 2, Name: "API"}}

	// components mapped without ".name" yields the raw component objects
	components, ok := sourceIssue(10).Fields.Get("components")
	require.True(t, ok)
	payload := &models.TargetIssuePayload{
		Key:          "IT-10",
		CustomFields: []models.CustomFieldValue{{Name: "components", Value: components}},
	}

	_, err := newTestUpserter(tracker).Upsert(context.Background(), "IT-10", payload)

	var unmapped *models.UnmappedValueError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "components", unmapped.Section)
	assert.Contains(t, unmapped.Key, "Backend")
	assert.Empty(t, tracker.updates)
	assert.Equal(t, []int64{1, 2}, tracker.issues["IT-10"].fields["components"])
}
