package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = `
tournament_id: 4
date: 2026-06-06
courts: {count: 4}
hours: {open: "09:00", close: "18:00"}
durations: {match: 45m, turnaround: 10m}
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "day.yaml")
	require.NoError(t, os.WriteFile(path, []byte(header+body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestOptimizeCommand(t *testing.T) {
	path := writeFile(t, `
format: single_elimination
participants: [1, 2, 3, 4, 5, 6, 7, 8]
`)
	workbook := filepath.Join(t.TempDir(), "schedule.xlsx")

	out, err := run(t, "optimize", path, "--out", workbook)
	require.NoError(t, err)

	assert.Contains(t, out, "Scheduled 7/7 matches (100.0%)")
	assert.Contains(t, out, "Quarterfinal")
	assert.Contains(t, out, "Final")
	assert.Contains(t, out, "No conflicts")
	assert.FileExists(t, workbook)
}

func TestOptimizeCommandJSON(t *testing.T) {
	path := writeFile(t, `
format: round_robin
participants: [1, 2, 3, 4]
`)

	out, err := run(t, "optimize", path, "--json")
	require.NoError(t, err)

	var body struct {
		Allocation struct {
			ScheduledCount int `json:"scheduled_count"`
			TotalMatches   int `json:"total_matches"`
		} `json:"allocation"`
		Conflicts []any `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 6, body.Allocation.TotalMatches)
	assert.Equal(t, 6, body.Allocation.ScheduledCount)
	assert.Empty(t, body.Conflicts)
}

func TestOptimizeCommandMissingFile(t *testing.T) {
	_, err := run(t, "optimize", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateCommandReportsConflicts(t *testing.T) {
	path := writeFile(t, `
slots:
  - {match_id: 1, court: 1, start: "09:00", end: "09:45", participants: [1, 2]}
  - {match_id: 2, court: 1, start: "09:30", end: "10:15", participants: [3, 4]}
`)

	out, err := run(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 conflicts found")
	assert.Contains(t, out, "[court]")
}

func TestValidateCommandGapOverride(t *testing.T) {
	path := writeFile(t, `
slots:
  - {match_id: 1, court: 1, start: "09:00", end: "09:45", participants: [1, 2]}
  - {match_id: 2, court: 2, start: "09:55", end: "10:40", participants: [1, 3]}
`)

	out, err := run(t, "validate", path)
	require.Error(t, err, "10 minutes is below the default 15 minute gap")
	assert.Contains(t, out, "[player]")

	out, err = run(t, "validate", path, "--min-gap", "10m")
	require.NoError(t, err)
	assert.Contains(t, out, "No conflicts")
}

func TestAdjustCommand(t *testing.T) {
	path := writeFile(t, `
slots:
  - {match_id: 1, court: 1, start: "09:00", end: "09:45", participants: [1, 2]}
  - {match_id: 2, court: 1, start: "09:55", end: "10:40", participants: [3, 4]}
`)

	out, err := run(t, "adjust", path, "--match", "1", "--delay", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Shifted: [2]")
	assert.Contains(t, out, "10:25")

	_, err = run(t, "adjust", path, "--match", "1", "--delay", "30", "--court", "2")
	assert.ErrorContains(t, err, "exactly one of")

	_, err = run(t, "adjust", path, "--match", "9", "--delay", "5")
	assert.ErrorContains(t, err, "match not found")
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--secret", "s3cret", "--user", "7", "--role", "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."))

	_, err = run(t, "token", "--secret", "s3cret", "--role", "root")
	assert.ErrorContains(t, err, "unknown role")
}
