package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []Match{
	{
		ImagePath:   "/evidence/bin/mimi.exe",
		SHA256:      "abc123",
		Signature:   "Mimikatz",
		Description: "Mimikatz | strings",
		Reference:   "https://example.org",
		Score:       75,
	},
	{
		ImagePath: "/evidence/tmp/x.sh",
		SHA256:    "def456",
		Signature: "Suspicious",
		Score:     50,
	},
}

func TestRenderJSON(t *testing.T) {
	data, err := Render(FormatJSON, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = Render("", sample[:1])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"ImagePath":"/evidence/bin/mimi.exe","SHA256":"abc123","Signature":"Mimikatz",
		"Description":"Mimikatz | strings","Reference":"https://example.org","Score":75}]`, string(data))
}

func TestRenderJSONL(t *testing.T) {
	data, err := Render(FormatJSONL, sample)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 2)
	var m Match
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &m))
	assert.Equal(t, sample[1], m)

	data, err = Render(FormatJSONL, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRenderSARIF(t *testing.T) {
	data, err := Render(FormatSARIF, sample)
	require.NoError(t, err)

	var parsed sarif.Report
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed.Runs, 1)
	run := parsed.Runs[0]
	assert.Len(t, run.Tool.Driver.Rules, 2)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "Mimikatz", *run.Results[0].RuleID)
	assert.Equal(t, "error", *run.Results[0].Level)
	assert.Equal(t, "/evidence/bin/mimi.exe", *run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "warning", *run.Results[1].Level)
}

func TestRenderMarkdown(t *testing.T) {
	data, err := Render(FormatMarkdown, sample)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "**Priority:** CRITICAL")
	assert.Contains(t, out, `| /evidence/bin/mimi.exe | abc123 | Mimikatz | Mimikatz \| strings | https://example.org | 75 |`)

	data, err = Render(FormatMarkdown, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "CRITICAL")
}

func TestRenderHTML(t *testing.T) {
	prev := now
	now = func() time.Time { return time.Date(2024, time.March, 2, 15, 4, 5, 0, time.UTC) }
	t.Cleanup(func() { now = prev })

	data, err := Render(FormatHTML, append(sample, Match{ImagePath: "/evidence/<x>.txt", Signature: "Low", Score: 10}))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "Generated on 2nd March 2024 3:04:05 pm.")
	assert.Contains(t, out, `<tr class="error"><td>1</td><td>/evidence/bin/mimi.exe</td>`)
	assert.Contains(t, out, `<tr class="note"><td>3</td><td>/evidence/&lt;x&gt;.txt</td>`)

	data, err = Render(FormatHTML, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0 match(es).")
	assert.NotContains(t, string(data), "<table>")
}

func TestFormatDateTime(t *testing.T) {
	assert.Equal(t, "21st January 2025 12:00:00 am", formatDateTime(time.Date(2025, time.January, 21, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "13th May 2025 11:30:09 pm", formatDateTime(time.Date(2025, time.May, 13, 23, 30, 9, 0, time.UTC)))
}

func TestRenderEmptyReportIsNeverBlank(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatJSONL, FormatSARIF, FormatMarkdown, FormatHTML} {
		t.Run(format, func(t *testing.T) {
			data, err := Render(format, []Match{})
			require.NoError(t, err)
			assert.NotEmpty(t, strings.TrimSpace(string(data)))
		})
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render("xml", sample)
	assert.Error(t, err)
}

func TestToSarifLevel(t *testing.T) {
	assert.Equal(t, "error", toSarifLevel(80))
	assert.Equal(t, "warning", toSarifLevel(40))
	assert.Equal(t, "note", toSarifLevel(0))
}
