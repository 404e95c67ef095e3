package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"jira2yatracker/internal/helpers"
	"jira2yatracker/internal/models"
)

const componentsField = "components"

var (
	errTransitionNotOffered = errors.New("transition not offered")
	errTransitionRejected   = errors.New("transition rejected")
)

// Upserter creates or overwrites Yandex Tracker issues while keeping JIRA numbers
type Upserter struct {
	tracker            TrackerRepository
	queue              string
	wipStatus          string
	placeholderSummary string
	components         map[string]int64
}

// NewUpserter creates an upserter for a queue. Placeholder issues created to
// reach a wanted key are moved to wipStatus.
func NewUpserter(tracker TrackerRepository, queue, wipStatus, placeholderSummary string) *Upserter {
	return &Upserter{
		tracker:            tracker,
		queue:              queue,
		wipStatus:          wipStatus,
		placeholderSummary: placeholderSummary,
	}
}

// Upsert makes the issue at targetKey match the payload. Fields missing from
// the payload are left as they are; comments and attachments are appended.
func (u *Upserter) Upsert(ctx context.Context, targetKey string, payload *models.TargetIssuePayload) (models.UpsertResult, error) {
	result := models.Overwritten
	issue, err := u.tracker.GetIssue(ctx, targetKey)
	switch {
	case err == nil:
		helpers.PrintInfo("Found existing issue %s, overwriting", targetKey)
	case models.IsNotFound(err):
		if issue, err = u.allocate(ctx, targetKey); err != nil {
			return 0, err
		}
		result = models.Created
	default:
		return 0, fmt.Errorf("failed to look up %s: %w", targetKey, err)
	}

	fields, err := u.patchFields(ctx, payload)
	if err != nil {
		return 0, err
	}
	if len(fields) > 0 {
		helpers.PrintDebug("Updating %s with %d fields", targetKey, len(fields))
		if issue, err = u.tracker.UpdateIssue(ctx, targetKey, fields); err != nil {
			return 0, fmt.Errorf("failed to update %s: %w", targetKey, err)
		}
	}

	if err := u.ensureStatus(ctx, issue, payload.Status); err != nil {
		return 0, err
	}

	for i, comment := range payload.Comments {
		helpers.PrintDebug("Adding comment %d/%d to %s", i+1, len(payload.Comments), targetKey)
		if err := u.tracker.AddComment(ctx, targetKey, comment.Text); err != nil {
			return 0, fmt.Errorf("failed to add comment %d to %s: %w", i+1, targetKey, err)
		}
	}

	for _, attachment := range payload.Attachments {
		helpers.PrintDebug("Adding attachment %s to %s", attachment.Filename, targetKey)
		if err := u.tracker.UploadAttachment(ctx, targetKey, attachment); err != nil {
			return 0, fmt.Errorf("failed to attach '%s' to %s: %w", attachment.Filename, targetKey, err)
		}
	}

	return result, nil
}

// allocate creates placeholder issues until the queue hands out targetKey
func (u *Upserter) allocate(ctx context.Context, targetKey string) (*models.TrackerIssue, error) {
	_, wanted, err := models.ParseIssueKey(targetKey)
	if err != nil {
		return nil, err
	}

	previous := 0
	for {
		created, err := u.tracker.CreateIssue(ctx, u.queue, u.placeholderSummary)
		if err != nil {
			return nil, fmt.Errorf("failed to create placeholder issue for %s: %w", targetKey, err)
		}
		helpers.PrintInfo("Created placeholder issue %s", created.Key)

		if err := u.ensureStatus(ctx, created, u.wipStatus); err != nil {
			return nil, err
		}

		_, got, err := models.ParseIssueKey(created.Key)
		if err != nil {
			return nil, err
		}
		if got > wanted || got <= previous {
			return nil, &models.KeyAllocationError{Wanted: targetKey, Got: created.Key}
		}
		if got == wanted {
			return created, nil
		}
		previous = got
	}
}

func (u *Upserter) patchFields(ctx context.Context, payload *models.TargetIssuePayload) (map[string]interface{}, error) {
	fields := payload.Fields()
	for _, field := range payload.CustomFields {
		if field.Name != componentsField {
			continue
		}
		ids, err := u.componentIDs(ctx, field.Value)
		if err != nil {
			return nil, err
		}
		fields[componentsField] = ids
	}
	return fields, nil
}

func (u *Upserter) componentIDs(ctx context.Context, value models.Value) ([]int64, error) {
	if u.components == nil {
		components, err := u.tracker.Components(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list components: %w", err)
		}
		u.components = make(map[string]int64, len(components))
		for _, component := range components {
			u.components[component.Name] = component.ID
		}
	}

	if !scalarOrScalarList(value) {
		return nil, &models.UnmappedValueError{Section: componentsField, Key: value.String()}
	}

	names := value.Strings()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := u.components[name]
		if !ok {
			return nil, &models.UnmappedValueError{Section: componentsField, Key: name}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func scalarOrScalarList(value models.Value) bool {
	switch value.Kind {
	case models.KindScalar:
		return true
	case models.KindList:
		for _, item := range value.List {
			if item.Kind != models.KindScalar {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ensureStatus moves an issue to the desired status, going through the WIP
// status when the direct transition is not offered or is rejected
func (u *Upserter) ensureStatus(ctx context.Context, issue *models.TrackerIssue, desired string) error {
	if desired == "" || statusMatches(issue.Status, desired) {
		return nil
	}
	current := issue.Status.Key

	err := u.transition(ctx, issue.Key, desired)
	if err == nil {
		helpers.PrintInfo("Moved %s from '%s' to '%s'", issue.Key, current, desired)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !rejected(err) {
		return err
	}
	helpers.PrintWarning("Direct transition of %s from '%s' to '%s' failed: %v", issue.Key, current, desired, err)

	fail := func(err error) error {
		return &models.StatusTransitionError{Key: issue.Key, From: current, To: desired, Intermediate: u.wipStatus, Err: err}
	}
	if desired == u.wipStatus {
		return fail(err)
	}
	if !statusMatches(issue.Status, u.wipStatus) {
		if err := u.transition(ctx, issue.Key, u.wipStatus); err != nil {
			if !rejected(err) {
				return err
			}
			return fail(err)
		}
	}
	if err := u.transition(ctx, issue.Key, desired); err != nil {
		if !rejected(err) {
			return err
		}
		return fail(err)
	}

	helpers.PrintInfo("Moved %s from '%s' to '%s' via '%s'", issue.Key, current, desired, u.wipStatus)
	return nil
}

func (u *Upserter) transition(ctx context.Context, key, desired string) error {
	transitions, err := u.tracker.Transitions(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to list transitions: %w", err)
	}
	for _, t := range transitions {
		if t.ID == desired || statusMatches(t.To, desired) {
			err := u.tracker.ExecuteTransition(ctx, key, t.ID)
			code := models.StatusCode(err)
			if err != nil && !models.IsTransient(err) && code >= http.StatusBadRequest && code < http.StatusInternalServerError {
				return fmt.Errorf("%w: %w", errTransitionRejected, err)
			}
			return err
		}
	}
	return fmt.Errorf("%w: no transition to '%s' available", errTransitionNotOffered, desired)
}

// rejected reports whether a transition failure means the workflow refused
// it, as opposed to a transient or unexpected failure that must halt
func rejected(err error) bool {
	return errors.Is(err, errTransitionNotOffered) || errors.Is(err, errTransitionRejected)
}

// statusMatches compares a status with a mapped value, which may carry the
// "Meta" suffix of a transition id
func statusMatches(status models.TrackerStatus, desired string) bool {
	return status.Key != "" && (status.Key == desired || status.Key+"Meta" == desired)
}
