package report

import (
	"bytes"
	"fmt"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const (
	toolName = "yarascan"
	toolURI  = "https://github.com/scan-io-git/yarascan"
)

func renderSARIF(matches []Match) ([]byte, error) {
	reportSarif, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	for _, m := range matches {
		rule := run.AddRule(m.Signature).
			WithDescription(m.Description).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: toSarifLevel(m.Score),
			}).
			WithProperties(sarif.Properties{
				"score":     m.Score,
				"reference": m.Reference,
			})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(m.ImagePath)),
		)

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(resultMessage(m))).
			WithLevel(toSarifLevel(m.Score)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}
	reportSarif.AddRun(run)

	var buf bytes.Buffer
	if err := reportSarif.PrettyWrite(&buf); err != nil {
		return nil, fmt.Errorf("failed to write SARIF report: %w", err)
	}
	return buf.Bytes(), nil
}

func resultMessage(m Match) string {
	msg := fmt.Sprintf("%s matched (score %d, sha256 %s)", m.Signature, m.Score, m.SHA256)
	if m.Description != "" {
		msg = fmt.Sprintf("%s: %s", msg, m.Description)
	}
	return msg
}

// toSarifLevel maps a match score to a SARIF level.
func toSarifLevel(score int64) string {
	switch {
	case score >= 75:
		return "error"
	case score >= 40:
		return "warning"
	default:
		return "note"
	}
}
