package services

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira2yatracker/internal/models"
)

func TestSaveReport(t *testing.T) {
	report := newReport("IT", models.ConvergeIssues, models.MigrationRange{Start: 10, End: 12}, false)
	report.record(models.Created)
	report.record(models.Overwritten)
	report.Done = []int{10, 11}
	report.FailedAt = 12
	report.recordLinks([]models.LinkResult{{Outcome: models.LinkCreated}, {Outcome: models.LinkTargetMissing}, {Outcome: models.LinkCreated}})

	path, err := SaveReport(report, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &saved))

	assert.Equal(t, "converge_issues", saved["mode"])
	assert.Equal(t, float64(1), saved["created"])
	assert.Equal(t, float64(12), saved["failed_at"])
	assert.Equal(t, map[string]interface{}{"created": float64(2), "target missing": float64(1)}, saved["links"])
}

func TestSaveReportDisabled(t *testing.T) {
	path, err := SaveReport(newReport("IT", models.EstablishLinksOnly, models.MigrationRange{Start: 1, End: 1}, false), "")
	require.NoError(t, err)
	assert.Empty(t, path)
}
