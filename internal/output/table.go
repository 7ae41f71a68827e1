// Package output renders aiprune results for the terminal.
//
// Tables are plain fixed-width text so they stay readable when piped. Color
// is applied with lipgloss only when stdout is a terminal and NO_COLOR is
// unset; IsColorEnabled decides.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/manager"
	"github.com/blackwell-systems/aiprune/internal/profile"
	"github.com/blackwell-systems/aiprune/internal/snapshots"
	"github.com/blackwell-systems/aiprune/internal/store"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	statusStyles = map[catalog.Status]lipgloss.Style{
		catalog.StatusEnabled:      warningStyle,
		catalog.StatusDisabled:     successStyle,
		catalog.StatusNotInstalled: subtleStyle,
		catalog.StatusUnknown:      errorStyle,
	}

	levelStyles = map[activity.Level]lipgloss.Style{
		activity.LevelInfo:    subtleStyle,
		activity.LevelSuccess: successStyle,
		activity.LevelWarning: warningStyle,
		activity.LevelError:   errorStyle,
	}
)

const rule = "─"

// IsColorEnabled returns true if styled output should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// style renders text with s when color is enabled.
func style(s lipgloss.Style, text string) string {
	if IsColorEnabled() {
		return s.Render(text)
	}
	return text
}

// padStyled pads text to width before styling so escape codes do not
// break column alignment.
func padStyled(s lipgloss.Style, text string, width int) string {
	return style(s, fmt.Sprintf("%-*s", width, text))
}

// Title renders a section heading.
func Title(text string) string {
	return style(titleStyle, text)
}

// Success, Warning and Failure style one-line messages.
func Success(text string) string { return style(successStyle, text) }
func Warning(text string) string { return style(warningStyle, text) }
func Failure(text string) string { return style(errorStyle, text) }

// FormatStatus returns the display label for a status.
func FormatStatus(s catalog.Status) string {
	switch s {
	case catalog.StatusEnabled:
		return "● enabled"
	case catalog.StatusDisabled:
		return "○ disabled"
	case catalog.StatusNotInstalled:
		return "- not installed"
	default:
		return "? unknown"
	}
}

// RenderStatusTable renders one row per feature in catalog order.
func RenderStatusTable(states []*catalog.State) string {
	if len(states) == 0 {
		return "No features found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-22s %-34s %-16s %s\n", "ID", "Feature", "Status", "Toggles"))
	sb.WriteString(strings.Repeat(rule, 86))
	sb.WriteString("\n")

	for _, st := range states {
		sb.WriteString(fmt.Sprintf("%-22s %-34s %s %s\n",
			truncate(st.ID(), 22),
			truncate(st.Name(), 34),
			padStyled(statusStyles[st.Status], FormatStatus(st.Status), 16),
			formatToggleKinds(st.Feature)))
	}
	return sb.String()
}

// RenderStatusSummary renders a one-line count per status.
// Format: "Enabled: 3 · Disabled: 10 · Not installed: 2 · Unknown: 0"
func RenderStatusSummary(states []*catalog.State) string {
	counts := make(map[catalog.Status]int)
	for _, st := range states {
		counts[st.Status]++
	}
	parts := []string{
		style(statusStyles[catalog.StatusEnabled], fmt.Sprintf("Enabled: %d", counts[catalog.StatusEnabled])),
		style(statusStyles[catalog.StatusDisabled], fmt.Sprintf("Disabled: %d", counts[catalog.StatusDisabled])),
		style(statusStyles[catalog.StatusNotInstalled], fmt.Sprintf("Not installed: %d", counts[catalog.StatusNotInstalled])),
		style(statusStyles[catalog.StatusUnknown], fmt.Sprintf("Unknown: %d", counts[catalog.StatusUnknown])),
	}
	return strings.Join(parts, " · ")
}

// RenderFeatureDetail renders every toggle point of one feature.
func RenderFeatureDetail(st *catalog.State) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Feature: %s (%s)\n", st.Name(), st.ID()))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", style(statusStyles[st.Status], FormatStatus(st.Status))))
	if st.Feature.Description != "" {
		sb.WriteString(fmt.Sprintf("About:   %s\n", st.Feature.Description))
	}
	sb.WriteString("\nToggle points:\n")
	for _, t := range st.Feature.Toggles {
		sb.WriteString("  " + t.String() + "\n")
	}
	return sb.String()
}

// RenderResults renders the outcome of disable or enable operations.
func RenderResults(results []manager.Result, names map[string]string) string {
	if len(results) == 0 {
		return "Nothing to do.\n"
	}

	var sb strings.Builder
	for _, r := range results {
		name := names[r.FeatureID]
		if name == "" {
			name = r.FeatureID
		}
		if r.OK() {
			sb.WriteString(fmt.Sprintf("%s %s: %s\n", Success("✓"), name, r.Message()))
		} else {
			sb.WriteString(fmt.Sprintf("%s %s: %s\n", Failure("✗"), name, r.Message()))
		}
	}
	return sb.String()
}

// RenderChanges renders drift found since the baseline.
func RenderChanges(changes []snapshots.Change) string {
	if len(changes) == 0 {
		return "No changes detected since last baseline.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-34s %-16s %s\n", "Feature", "Baseline", "Current"))
	sb.WriteString(strings.Repeat(rule, 66))
	sb.WriteString("\n")
	for _, c := range changes {
		current := padStyled(statusStyles[c.Current], string(c.Current), 14)
		if c.WasReenabled() {
			current = padStyled(errorStyle, string(c.Current)+" ⚠", 14)
		}
		sb.WriteString(fmt.Sprintf("%-34s %-16s %s\n", truncate(c.Name, 34), c.Previous, current))
	}
	return sb.String()
}

// RenderBackupTable renders backups newest first.
func RenderBackupTable(backups []manager.BackupInfo) string {
	if len(backups) == 0 {
		return "No backups found.\n"
	}

	sorted := make([]manager.BackupInfo, len(backups))
	copy(sorted, backups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-32s %-20s %-16s %s\n", "Backup", "Created", "Age", "Size"))
	sb.WriteString(strings.Repeat(rule, 80))
	sb.WriteString("\n")
	for _, b := range sorted {
		sb.WriteString(fmt.Sprintf("%-32s %-20s %-16s %s\n",
			truncate(b.Name, 32),
			b.CreatedAt.Format("2006-01-02 15:04:05"),
			formatRelativeTime(b.CreatedAt),
			humanize.IBytes(uint64(b.Size))))
	}
	return sb.String()
}

// RenderActivityTable renders activity log entries in the order given.
func RenderActivityTable(entries []activity.Entry) string {
	if len(entries) == 0 {
		return "No activity recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-19s  %-8s %-13s %-22s %s\n", "Time", "Level", "Action", "Feature", "Message"))
	sb.WriteString(strings.Repeat(rule, 100))
	sb.WriteString("\n")
	for _, e := range entries {
		feature := e.ServiceName
		if e.ServiceID == activity.SystemID || feature == "" {
			feature = "-"
		}
		sb.WriteString(fmt.Sprintf("%-19s  %s %-13s %-22s %s\n",
			e.Timestamp,
			padStyled(levelStyles[e.Level], string(e.Level), 8),
			e.Action,
			truncate(feature, 22),
			e.Message))
	}
	return sb.String()
}

// RenderHistoryTable renders recorded check runs.
func RenderHistoryTable(runs []store.CheckRun) string {
	if len(runs) == 0 {
		return "No checks recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-19s  %-9s %-8s %-10s %-9s %-7s %s\n",
		"Started", "Source", "Changes", "Reenabled", "Restored", "Failed", "Notes"))
	sb.WriteString(strings.Repeat(rule, 86))
	sb.WriteString("\n")
	for _, r := range runs {
		notes := ""
		switch {
		case r.Error != "":
			notes = style(errorStyle, truncate(r.Error, 30))
		case r.BaselineCreated:
			notes = "baseline created"
		case r.BaselineSaved:
			notes = "baseline saved"
		}
		sb.WriteString(fmt.Sprintf("%-19s  %-9s %-8d %-10d %-9d %-7d %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Source,
			r.TotalChanges,
			r.Reenabled,
			r.Restored,
			r.Failed,
			notes))
	}
	return sb.String()
}

// RenderDriftTable renders how often each feature came back.
func RenderDriftTable(drift []store.FeatureDrift) string {
	if len(drift) == 0 {
		return "No features have been re-enabled.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-34s %-6s %s\n", "Feature", "Times", "Last seen"))
	sb.WriteString(strings.Repeat(rule, 60))
	sb.WriteString("\n")
	for _, d := range drift {
		name := d.FeatureName
		if name == "" {
			name = d.FeatureID
		}
		sb.WriteString(fmt.Sprintf("%-34s %-6d %s\n", truncate(name, 34), d.Reenabled, formatRelativeTime(d.LastSeen)))
	}
	return sb.String()
}

// RenderPresetTable renders the built-in presets.
func RenderPresetTable(presets []profile.Preset) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s %-32s %s\n", "Preset", "Name", "Description"))
	sb.WriteString(strings.Repeat(rule, 90))
	sb.WriteString("\n")
	for _, p := range presets {
		sb.WriteString(fmt.Sprintf("%-12s %-32s %s\n", p.ID, truncate(p.Name, 32), p.Description))
	}
	return sb.String()
}

// RenderPlan renders the actions an import would take.
func RenderPlan(actions []profile.Action) string {
	if len(actions) == 0 {
		return "All features already match the profile.\n"
	}
	var sb strings.Builder
	for _, a := range actions {
		verb := "disable"
		if a.Enable {
			verb = "enable"
		}
		sb.WriteString(fmt.Sprintf("  %-8s %s\n", verb, a.Feature.Name))
	}
	return sb.String()
}

// formatToggleKinds summarizes a feature's toggle points, e.g. "2 registry, 1 appx".
func formatToggleKinds(f *catalog.Feature) string {
	var parts []string
	if n := len(f.RegistryToggles()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d registry", n))
	}
	if n := len(f.PackageToggles()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d appx", n))
	}
	if n := len(f.OptionalFeatureToggles()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d optional", n))
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, ", ")
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
