package automation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by FormatResult.
const (
	OutputText = "text"
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// ScriptName identifies this tool in summaries.
const ScriptName = "handoff"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Summary renders the human-readable report printed after every run.
func (r RunResult) Summary() string {
	lines := []string{
		"## 🤖 Issue Automation Summary",
		"",
	}

	switch r.Status {
	case StatusFailed:
		lines = append(lines,
			"- Status: ❌ **Failed**",
			"- Error: "+r.Message)
	case StatusSkipped:
		lines = append(lines,
			"- Status: ⏸️ **Skipped**",
			"- Action: "+r.Action)
	case StatusNoAction:
		lines = append(lines,
			"- Status: ℹ️ **No Action**",
			"- Action: "+r.Action)
	case StatusProcessed:
		lines = append(lines, "- Status: ✅ **Processed**")
		if r.Issue != nil {
			lines = append(lines,
				fmt.Sprintf("- Issue: #%d", r.Issue.Number),
				"- Title: "+r.Issue.Title)
		}
		lines = append(lines, "- Action: "+r.Action)
	}

	lines = append(lines,
		"",
		"- Timestamp: "+r.Timestamp.Format(timestampLayout),
		"- Repository: "+r.Repository,
		"- Run: "+r.RunID,
		"- Script: "+ScriptName)

	return strings.Join(lines, "\n")
}

// FormatResult renders result as text, yaml or json.
func FormatResult(result RunResult, format string) (string, error) {
	switch format {
	case "", OutputText:
		return result.Summary(), nil
	case OutputYAML:
		out, err := yaml.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("failed to encode result as yaml: %w", err)
		}
		return strings.TrimRight(string(out), "\n"), nil
	case OutputJSON:
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode result as json: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (must be text, yaml, or json)", format)
	}
}

// FatalSummary renders the report printed when the process cannot start a run.
func FatalSummary(err error, at time.Time) string {
	return strings.Join([]string{
		"## 🤖 Issue Automation Summary",
		"",
		"- Status: ❌ **Fatal Error**",
		fmt.Sprintf("- Error: %v", err),
		"- Timestamp: " + at.UTC().Format(timestampLayout),
	}, "\n")
}
