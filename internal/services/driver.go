package services

import (
	"context"
	"fmt"
	"time"

	"jira2yatracker/internal/helpers"
	"jira2yatracker/internal/models"
)

// State is the position of one issue in the migration state machine
type State int

const (
	StatePending State = iota
	StateFetching
	StateTranslating
	StateUpserting
	StateLinkEstablishing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateTranslating:
		return "translating"
	case StateUpserting:
		return "upserting"
	case StateLinkEstablishing:
		return "establishing links"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DriverOptions are the per-run settings of the driver
type DriverOptions struct {
	ProjectKey  string
	Skip        map[int]bool
	SkipMissing bool
	DryRun      bool
	DumpDir     string
}

// Driver walks an issue number range and migrates issues one at a time.
// The first failure halts the run.
type Driver struct {
	source     SourceRepository
	translator *Translator
	upserter   *Upserter
	links      *LinkResolver
	opts       DriverOptions
}

// NewDriver creates a migration driver
func NewDriver(source SourceRepository, translator *Translator, upserter *Upserter, links *LinkResolver, opts DriverOptions) *Driver {
	return &Driver{
		source:     source,
		translator: translator,
		upserter:   upserter,
		links:      links,
		opts:       opts,
	}
}

// Run processes every issue number in the range in ascending order. A range
// end of zero or less means the latest JIRA issue. On failure the returned
// error is an *models.IssueFailure naming the number to resume from.
func (d *Driver) Run(ctx context.Context, rng models.MigrationRange, mode models.RunMode) (*Report, error) {
	if rng.End <= 0 {
		latest, err := d.source.LatestIssueNumber(ctx, d.opts.ProjectKey)
		if err != nil {
			return nil, err
		}
		helpers.PrintInfo("Latest JIRA issue is %s", models.IssueKey(d.opts.ProjectKey, latest))
		rng.End = latest
	}
	if err := rng.Validate(); err != nil {
		return nil, &models.ConfigurationError{Reason: "invalid issue range", Err: err}
	}

	report := newReport(d.opts.ProjectKey, mode, rng, d.opts.DryRun)
	helpers.PrintTitle("%s: %s .. %s", mode,
		models.IssueKey(d.opts.ProjectKey, rng.Start), models.IssueKey(d.opts.ProjectKey, rng.End))
	start := time.Now()

	for n := rng.Start; n <= rng.End; n++ {
		key := models.IssueKey(d.opts.ProjectKey, n)
		helpers.PrintProgress(n-rng.Start+1, rng.Len(), key)

		if d.opts.Skip[n] {
			helpers.PrintWarning("Skipping %s as requested", key)
			report.Skipped = append(report.Skipped, n)
			continue
		}

		if err := d.process(ctx, n, mode, report); err != nil {
			report.FailedAt = n
			helpers.PrintError("%v", err)
			return report, err
		}
	}

	helpers.PrintElapsed(start, mode.String())
	return report, nil
}

func (d *Driver) process(ctx context.Context, n int, mode models.RunMode, report *Report) error {
	key := models.IssueKey(d.opts.ProjectKey, n)
	state := StatePending
	var issue *models.SourceIssue

	fail := func(err error) error {
		if issue != nil {
			if path, dumpErr := helpers.DumpJSON(d.opts.DumpDir, key, issue); dumpErr != nil {
				helpers.PrintWarning("Failed to dump source issue %s: %v", key, dumpErr)
			} else if path != "" {
				helpers.PrintInfo("Source issue %s dumped to %s", key, path)
			}
		}
		return &models.IssueFailure{Number: n, Key: key, State: state.String(), Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	state = StateFetching
	converge := mode == models.ConvergeIssues
	fetched, err := d.source.FetchIssue(ctx, key, models.FetchOptions{
		Comments:    converge,
		Attachments: converge && !d.opts.DryRun,
	})
	if err != nil {
		if models.IsNotFound(err) && d.opts.SkipMissing {
			helpers.PrintWarning("Skipping %s: not found in JIRA", key)
			report.Skipped = append(report.Skipped, n)
			return nil
		}
		return fail(err)
	}
	issue = fetched

	if converge {
		state = StateTranslating
		payload, err := d.translator.Translate(issue)
		if err != nil {
			return fail(err)
		}

		if d.opts.DryRun {
			helpers.PrintDebug("Payload for %s: %v", key, payload.Fields())
			if path, err := helpers.DumpJSON(d.opts.DumpDir, key+"-payload", payload); err != nil {
				helpers.PrintWarning("Failed to dump payload of %s: %v", key, err)
			} else if path != "" {
				helpers.PrintInfo("Payload of %s dumped to %s", key, path)
			}
			report.Translated = append(report.Translated, n)
			return nil
		}

		state = StateUpserting
		result, err := d.upserter.Upsert(ctx, key, payload)
		if err != nil {
			return fail(err)
		}
		report.record(result)
		helpers.PrintSuccess("Issue %s %s", key, result)
	}

	state = StateLinkEstablishing
	results, err := d.links.Establish(ctx, issue)
	if err != nil {
		return fail(err)
	}
	report.recordLinks(results)

	helpers.PrintDebug("%s %s", key, StateDone)
	report.Done = append(report.Done, n)
	return nil
}
