package services

import (
	"context"
	"fmt"
	"strings"

	"jira2yatracker/internal/helpers"
	"jira2yatracker/internal/mapping"
	"jira2yatracker/internal/models"
)

// LinkResolver recreates JIRA issue links in Yandex Tracker
type LinkResolver struct {
	source  SourceRepository
	tracker TrackerRepository
	mapping *mapping.Table
	dryRun  bool
}

// NewLinkResolver creates a link resolver. In dry-run mode links are only planned.
func NewLinkResolver(source SourceRepository, tracker TrackerRepository, table *mapping.Table, dryRun bool) *LinkResolver {
	return &LinkResolver{
		source:  source,
		tracker: tracker,
		mapping: table,
		dryRun:  dryRun,
	}
}

// Establish creates every link of the issue that does not exist yet. Running it
// again with the same issue creates nothing new. A counterpart missing in the
// destination is reported as LinkTargetMissing and does not fail the issue.
func (r *LinkResolver) Establish(ctx context.Context, issue *models.SourceIssue) ([]models.LinkResult, error) {
	relationships, err := r.relationships(ctx, issue)
	if err != nil {
		return nil, err
	}
	if len(relationships) == 0 {
		return nil, nil
	}
	helpers.PrintInfo("Establishing %d links for %s", len(relationships), issue.Key)

	existing := make(map[string][]models.TrackerLink)
	results := make([]models.LinkResult, 0, len(relationships))
	for _, rel := range relationships {
		sourceKind, relationship, err := r.resolveKind(rel)
		if err != nil {
			return results, err
		}
		from := rel.From
		if from == "" {
			from = issue.Key
		}
		result := models.LinkResult{From: from, To: rel.To, SourceKind: sourceKind, Relationship: relationship}

		result.Outcome, err = r.establish(ctx, existing, result)
		if err != nil {
			return results, fmt.Errorf("failed to link %s to %s via '%s': %w", from, rel.To, relationship, err)
		}
		switch result.Outcome {
		case models.LinkTargetMissing:
			helpers.PrintWarning("Cannot link %s to %s via '%s': issue not found in Yandex Tracker", from, rel.To, relationship)
		default:
			helpers.PrintDebug("Link %s -[%s]-> %s: %s", from, relationship, rel.To, result.Outcome)
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *LinkResolver) establish(ctx context.Context, existing map[string][]models.TrackerLink, link models.LinkResult) (models.LinkOutcome, error) {
	if r.dryRun {
		return models.LinkPlanned, nil
	}

	links, ok := existing[link.From]
	if !ok {
		var err error
		links, err = r.tracker.Links(ctx, link.From)
		switch {
		case models.IsNotFound(err):
			return models.LinkTargetMissing, nil
		case err != nil:
			return 0, err
		}
		existing[link.From] = links
	}
	if hasLink(links, link.Relationship, link.To) {
		return models.LinkAlreadyExists, nil
	}

	err := r.tracker.CreateLink(ctx, link.From, link.Relationship, link.To)
	switch {
	case err == nil:
		existing[link.From] = append(links, models.TrackerLink{
			Type:      models.TrackerLinkType{ID: link.Relationship},
			Direction: "outward",
			Object:    models.TrackerLinkRef{Key: link.To},
		})
		return models.LinkCreated, nil
	case models.IsConflict(err):
		return models.LinkAlreadyExists, nil
	case models.IsNotFound(err):
		return models.LinkTargetMissing, nil
	default:
		return 0, err
	}
}

// relationships returns the issue's own relationships followed by its epic
// children, which JIRA does not list on the epic itself
func (r *LinkResolver) relationships(ctx context.Context, issue *models.SourceIssue) ([]models.Relationship, error) {
	relationships := append([]models.Relationship(nil), issue.Relationships...)
	if issue.Type == "" {
		return relationships, nil
	}

	destType, err := r.mapping.Resolve(mapping.Types, issue.Type)
	if err != nil {
		return nil, err
	}
	if destType != models.EpicType {
		return relationships, nil
	}

	children, err := r.source.FetchEpicChildren(ctx, issue.Key)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		relationships = append(relationships, models.Relationship{
			From:       issue.Key,
			To:         child,
			Hierarchy:  true,
			ParentType: issue.Type,
		})
	}
	return relationships, nil
}

// resolveKind returns the source kind of a relationship and its destination name
func (r *LinkResolver) resolveKind(rel models.Relationship) (string, string, error) {
	kind := rel.Kind
	if rel.Hierarchy {
		kind = models.KindSubtask
		if rel.ParentType != "" {
			parentType, err := r.mapping.Resolve(mapping.Types, rel.ParentType)
			if err != nil {
				return "", "", err
			}
			if parentType == models.EpicType {
				kind = models.KindEpic
			}
		}
	}

	relationship, err := r.mapping.Resolve(mapping.Relationships, kind)
	if err != nil {
		return "", "", err
	}
	return kind, relationship, nil
}

func hasLink(links []models.TrackerLink, relationship, target string) bool {
	for _, link := range links {
		if link.Object.Key != target {
			continue
		}
		name := link.Type.Outward
		if link.Direction == "inward" {
			name = link.Type.Inward
		}
		if strings.EqualFold(link.Type.ID, relationship) || strings.EqualFold(name, relationship) {
			return true
		}
	}
	return false
}
