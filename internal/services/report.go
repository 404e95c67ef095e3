package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"jira2yatracker/internal/helpers"
	"jira2yatracker/internal/models"
)

// Report summarises one driver run
type Report struct {
	ProjectKey  string                     `json:"project_key"`
	Mode        string                     `json:"mode"`
	Start       int                        `json:"start"`
	End         int                        `json:"end"`
	DryRun      bool                       `json:"dry_run"`
	Done        []int                      `json:"done"`
	Translated  []int                      `json:"translated,omitempty"`
	Skipped     []int                      `json:"skipped,omitempty"`
	Created     int                        `json:"created"`
	Overwritten int                        `json:"overwritten"`
	Links       map[models.LinkOutcome]int `json:"-"`
	FailedAt    int                        `json:"failed_at,omitempty"`
	FinishedAt  time.Time                  `json:"finished_at"`
}

func newReport(projectKey string, mode models.RunMode, rng models.MigrationRange, dryRun bool) *Report {
	return &Report{
		ProjectKey: projectKey,
		Mode:       mode.String(),
		Start:      rng.Start,
		End:        rng.End,
		DryRun:     dryRun,
		Links:      make(map[models.LinkOutcome]int),
	}
}

func (r *Report) record(result models.UpsertResult) {
	switch result {
	case models.Created:
		r.Created++
	case models.Overwritten:
		r.Overwritten++
	}
}

func (r *Report) recordLinks(results []models.LinkResult) {
	for _, result := range results {
		r.Links[result.Outcome]++
	}
}

// LinkCounts returns link outcome counts keyed by outcome name
func (r *Report) LinkCounts() map[string]int {
	counts := make(map[string]int, len(r.Links))
	for outcome, n := range r.Links {
		counts[outcome.String()] = n
	}
	return counts
}

// DisplayReport prints the run summary
func DisplayReport(report *Report) {
	helpers.PrintSeparator()
	helpers.PrintTitle("Summary: %s %s-%d .. %s-%d", report.Mode, report.ProjectKey, report.Start, report.ProjectKey, report.End)
	if report.DryRun {
		helpers.PrintInfo("Dry run: %d issues translated, nothing written", len(report.Translated))
	}
	helpers.PrintInfo("Done: %d | Created: %d | Overwritten: %d | Skipped: %d",
		len(report.Done), report.Created, report.Overwritten, len(report.Skipped))

	counts := report.LinkCounts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		helpers.PrintInfo("Links %s: %d", name, counts[name])
	}

	if report.FailedAt > 0 {
		helpers.PrintError("Halted at %s-%d; rerun with --started-task-number %d", report.ProjectKey, report.FailedAt, report.FailedAt)
		return
	}
	helpers.PrintSuccess("Migration finished")
}

// SaveReport writes the report as JSON into dir and returns the file path.
// An empty dir disables saving.
func SaveReport(report *Report, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	report.FinishedAt = time.Now()
	out := struct {
		*Report
		Links map[string]int `json:"links"`
	}{report, report.LinkCounts()}

	path, err := helpers.DumpJSON(dir, fmt.Sprintf("report-%s", report.Mode), out)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return filepath.Clean(path), nil
}
