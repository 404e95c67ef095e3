package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"jira2yatracker/internal/config"
	"jira2yatracker/internal/models"
)

const trackerService = "Yandex Tracker"

// TrackerRepository handles Yandex Tracker API interactions
type TrackerRepository struct {
	config *config.TrackerConfig
	rest   *restClient
}

// NewTrackerRepository creates a new Yandex Tracker repository
func NewTrackerRepository(trackerConfig *config.TrackerConfig, retry config.RetryConfig) *TrackerRepository {
	return &TrackerRepository{
		config: trackerConfig,
		rest: newRestClient(trackerService, trackerConfig.URL+"/v2", trackerConfig.TimeoutSeconds, retry, func(req *http.Request) {
			req.Header.Set("Authorization", "OAuth "+trackerConfig.Token)
			if trackerConfig.IsCloud() {
				req.Header.Set("X-Cloud-Org-ID", trackerConfig.OrgID)
			} else {
				req.Header.Set("X-Org-ID", trackerConfig.OrgID)
			}
		}),
	}
}

// Capabilities reports how the tracker assigns keys: sequentially within a queue
func (r *TrackerRepository) Capabilities() models.TrackerCapabilities {
	return models.TrackerCapabilities{SequentialKeys: true}
}

// TestConnection checks the credentials and returns the authenticated user's login
func (r *TrackerRepository) TestConnection(ctx context.Context) (string, error) {
	var myself struct {
		Login string `json:"login"`
	}
	if err := r.rest.doJSON(ctx, http.MethodGet, r.rest.baseURL+"/myself", nil, &myself); err != nil {
		return "", err
	}
	return myself.Login, nil
}

// GetQueue returns a queue by key
func (r *TrackerRepository) GetQueue(ctx context.Context, key string) (*models.TrackerQueue, error) {
	var queue models.TrackerQueue
	if err := r.rest.doJSON(ctx, http.MethodGet, r.pathURL("/queues/", key), nil, &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// GetIssue returns an issue by key
func (r *TrackerRepository) GetIssue(ctx context.Context, key string) (*models.TrackerIssue, error) {
	data, err := r.rest.do(ctx, request{method: http.MethodGet, url: r.pathURL("/issues/", key), op: "get issue " + key})
	if err != nil {
		return nil, err
	}
	return decodeTrackerIssue(data)
}

// CreateIssue creates an issue in a queue; the tracker picks the key
func (r *TrackerRepository) CreateIssue(ctx context.Context, queue, summary string) (*models.TrackerIssue, error) {
	body, err := json.Marshal(map[string]interface{}{"queue": queue, "summary": summary})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issue: %w", err)
	}
	data, err := r.rest.do(ctx, request{
		method:      http.MethodPost,
		url:         r.rest.baseURL + "/issues/",
		body:        body,
		contentType: "application/json",
		op:          "create issue in " + queue,
	})
	if err != nil {
		return nil, err
	}
	return decodeTrackerIssue(data)
}

// UpdateIssue overwrites the given fields and leaves all others untouched
func (r *TrackerRepository) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.TrackerIssue, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}
	data, err := r.rest.do(ctx, request{
		method:      http.MethodPatch,
		url:         r.pathURL("/issues/", key),
		body:        body,
		contentType: "application/json",
		op:          "update issue " + key,
	})
	if err != nil {
		return nil, err
	}
	return decodeTrackerIssue(data)
}

// Transitions lists the transitions currently available for an issue
func (r *TrackerRepository) Transitions(ctx context.Context, key string) ([]models.TrackerTransition, error) {
	var transitions []models.TrackerTransition
	if err := r.rest.doJSON(ctx, http.MethodGet, r.pathURL("/issues/", key)+"/transitions", nil, &transitions); err != nil {
		return nil, err
	}
	return transitions, nil
}

// ExecuteTransition moves an issue through a workflow transition
func (r *TrackerRepository) ExecuteTransition(ctx context.Context, key, transitionID string) error {
	apiURL := fmt.Sprintf("%s/transitions/%s/_execute", r.pathURL("/issues/", key), url.PathEscape(transitionID))
	_, err := r.rest.do(ctx, request{
		method:      http.MethodPost,
		url:         apiURL,
		body:        []byte("{}"),
		contentType: "application/json",
		op:          "execute transition " + transitionID + " of " + key,
		idempotent:  true,
	})
	return err
}

// AddComment appends a comment to an issue
func (r *TrackerRepository) AddComment(ctx context.Context, key, text string) error {
	return r.rest.doJSON(ctx, http.MethodPost, r.pathURL("/issues/", key)+"/comments", map[string]string{"text": text}, nil)
}

// UploadAttachment attaches a file to an issue
func (r *TrackerRepository) UploadAttachment(ctx context.Context, key string, attachment models.Attachment) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(attachment.Filename)))
	mimeType := attachment.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(attachment.Data); err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	apiURL := r.pathURL("/issues/", key) + "/attachments?" + url.Values{"filename": {attachment.Filename}}.Encode()
	_, err = r.rest.do(ctx, request{
		method:      http.MethodPost,
		url:         apiURL,
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
		op:          "upload attachment to " + key,
	})
	return err
}

// Links lists the links of an issue
func (r *TrackerRepository) Links(ctx context.Context, key string) ([]models.TrackerLink, error) {
	var links []models.TrackerLink
	if err := r.rest.doJSON(ctx, http.MethodGet, r.pathURL("/issues/", key)+"/links", nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// CreateLink links an issue to another one with the given relationship
func (r *TrackerRepository) CreateLink(ctx context.Context, key, relationship, target string) error {
	payload := map[string]string{"relationship": relationship, "issue": target}
	return r.rest.doJSON(ctx, http.MethodPost, r.pathURL("/issues/", key)+"/links", payload, nil)
}

// Components lists all components of the organisation
func (r *TrackerRepository) Components(ctx context.Context) ([]models.TrackerComponent, error) {
	var components []models.TrackerComponent
	if err := r.rest.doJSON(ctx, http.MethodGet, r.rest.baseURL+"/components", nil, &components); err != nil {
		return nil, err
	}
	return components, nil
}

func (r *TrackerRepository) pathURL(prefix, key string) string {
	return r.rest.baseURL + prefix + url.PathEscape(key)
}

func decodeTrackerIssue(data []byte) (*models.TrackerIssue, error) {
	var issue models.TrackerIssue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("failed to decode issue: %w", err)
	}
	if err := json.Unmarshal(data, &issue.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode issue fields: %w", err)
	}
	return &issue, nil
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
