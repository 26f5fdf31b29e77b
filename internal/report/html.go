package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// now is replaced in tests.
var now = time.Now

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Yara scan report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
td.score { text-align: right; }
tr.error td.score { color: #b00020; font-weight: bold; }
</style>
</head>
<body>
<h1>Yara scan report</h1>
<p>Generated on {{ formatDateTime .Generated }}. {{ len .Matches }} match(es).</p>
{{ if .Matches }}<table>
<tr><th>#</th><th>filepath</th><th>hash</th><th>rule</th><th>desc</th><th>ref</th><th>score</th></tr>
{{ range $i, $m := .Matches }}<tr class="{{ level $m.Score }}"><td>{{ add $i 1 }}</td><td>{{ $m.ImagePath }}</td><td>{{ $m.SHA256 }}</td><td>{{ $m.Signature }}</td><td>{{ $m.Description }}</td><td>{{ $m.Reference }}</td><td class="score">{{ $m.Score }}</td></tr>
{{ end }}</table>
{{ end }}</body>
</html>
`

var htmlTmpl = template.Must(template.New("report.html").
	Funcs(template.FuncMap{
		"add":            add,
		"formatDateTime": formatDateTime,
		"level":          toSarifLevel,
	}).
	Parse(htmlTemplate))

func add(a, b int) int {
	return a + b
}

// ordinalDate returns the day with its ordinal suffix.
func ordinalDate(day int) string {
	suffix := "th"
	switch day {
	case 1, 21, 31:
		suffix = "st"
	case 2, 22:
		suffix = "nd"
	case 3, 23:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

func formatDateTime(t time.Time) string {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%s %s %d %d:%02d:%02d %s", ordinalDate(t.Day()), t.Month(), t.Year(), hour, t.Minute(), t.Second(), t.Format("pm"))
}

func renderHTML(matches []Match) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Generated time.Time
		Matches   []Match
	}{Generated: now(), Matches: matches}
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}
