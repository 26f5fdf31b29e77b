package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const markdownTemplate = `# Yara scan report

{{ if . }}**Priority:** CRITICAL

{{ end }}List of Yara matches found in the scanned files.

| filepath | hash | rule | desc | ref | score |
| --- | --- | --- | --- | --- | --- |
{{ range . }}| {{ cell .ImagePath }} | {{ cell .SHA256 }} | {{ cell .Signature }} | {{ cell .Description }} | {{ cell .Reference }} | {{ .Score }} |
{{ end }}`

var markdownTmpl = template.Must(template.New("report.md").
	Funcs(template.FuncMap{"cell": markdownCell}).
	Parse(markdownTemplate))

// markdownCell escapes a value for use inside a table cell.
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func renderMarkdown(matches []Match) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, matches); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.Bytes(), nil
}
