package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/logiclint/logiclint/internal/runner"
)

func printSummary(summary *runner.Summary) {
	if len(summary.Results) == 0 {
		fmt.Println("No manuscript files linted")
		return
	}

	// LipGloss signature purple/pink palette
	var (
		// Colors
		headerColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
		sourceColor  = lipgloss.Color("#BD93F9") // Purple
		numberColor  = lipgloss.Color("#FF79C6") // Pink
		okColor      = lipgloss.Color("#50FA7B") // Green
		failColor    = lipgloss.Color("#FF5555") // Red
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
		summaryColor = lipgloss.Color("#8BE9FD") // Cyan accent
	)

	// Column widths
	const (
		sourceWidth  = 40
		unitWidth    = 8
		findingWidth = 10
		resultWidth  = 10
	)

	// Header style
	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	// Border separator
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	// Print header
	headers := []string{
		headerStyle.Width(sourceWidth).Render("SOURCE"),
		headerStyle.Width(unitWidth).Render("UNITS"),
		headerStyle.Width(findingWidth).Render("FINDINGS"),
		headerStyle.Width(resultWidth).Render("RESULT"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	// Print separator line - create separator sections and join with ┼
	separatorParts := []string{
		strings.Repeat("─", sourceWidth),
		strings.Repeat("─", unitWidth),
		strings.Repeat("─", findingWidth),
		strings.Repeat("─", resultWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(separatorParts, "┼")))

	// Cell styles
	sourceStyle := lipgloss.NewStyle().
		Foreground(sourceColor).
		Padding(0, 1).
		Width(sourceWidth)

	unitStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(unitWidth).
		Align(lipgloss.Right)

	findingStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(findingWidth).
		Align(lipgloss.Right)

	okStyle := lipgloss.NewStyle().
		Foreground(okColor).
		Padding(0, 1).
		Width(resultWidth)

	failStyle := lipgloss.NewStyle().
		Foreground(failColor).
		Padding(0, 1).
		Width(resultWidth)

	// Print data rows - no alternating backgrounds
	totalUnits := 0
	totalFindings := 0
	reportDir := ""
	for _, res := range summary.Results {
		totalUnits += res.Units

		findings := "-"
		result := failStyle.Render("failed")
		if res.Err == nil {
			totalFindings += res.Findings
			findings = fmt.Sprintf("%d", res.Findings)
			result = okStyle.Render("ok")
			if reportDir == "" {
				reportDir = filepath.Dir(res.ReportPath)
			}
		}

		cells := []string{
			sourceStyle.Render(res.Source),
			unitStyle.Render(fmt.Sprintf("%d", res.Units)),
			findingStyle.Render(findings),
			result,
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}

	// Failure reasons go below the table so long errors cannot break the
	// column layout.
	failDetail := lipgloss.NewStyle().Foreground(failColor)
	for _, res := range summary.Results {
		if res.Err != nil {
			fmt.Println(failDetail.Render(fmt.Sprintf("✗ %s: %v", res.Source, res.Err)))
		}
	}

	// Calculate and print summary
	fmt.Println()
	summaryStyle := lipgloss.NewStyle().
		Foreground(summaryColor).
		Italic(true)

	line := fmt.Sprintf("Total: %d files, %d units, %d findings in %s",
		len(summary.Results), totalUnits, totalFindings,
		summary.Elapsed.Round(time.Millisecond))
	if failed := summary.Failed(); failed > 0 {
		line += fmt.Sprintf(", %d failed", failed)
	}
	fmt.Println(summaryStyle.Render(line))

	if reportDir != "" {
		fmt.Println(summaryStyle.Render(fmt.Sprintf("Reports written to %s", reportDir)))
	}
}
