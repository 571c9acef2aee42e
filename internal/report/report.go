// Package report renders history queries for the terminal.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"apexrun/internal/analysis"
	"apexrun/internal/service"
	"apexrun/internal/store"
)

const noData = "No runs yet. Import some workout files or sync Strava first."

// Sessions renders the summary table, newest first
func Sessions(rows []store.SummaryRow) string {
	if len(rows) == 0 {
		return statusStyle.Render(noData)
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("Sessions (%d)", len(rows))),
		tableHeaderStyle.Render(fmt.Sprintf("%-16s  %-10s  %7s  %8s  %6s  %6s  %5s  %6s  %6s",
			"Date", "Type", "Km", "Time", "Pace", "GAP", "HR", "EI", "TRIMP")),
	}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%-16s  %-10s  %7.2f  %8s  %6s  %6s  %5s  %6s  %6.1f",
			r.StartTime.Format("2006-01-02 15:04"),
			r.SessionType,
			r.DistanceKm,
			service.FormatDuration(r.DurationMinutes),
			service.FormatPace(r.PaceMinPerKm),
			service.FormatPace(r.GAPPaceMinPerKm),
			service.FormatOptional(r.AvgHeartRate, "%.0f"),
			service.FormatOptional(r.EfficiencyIndex, "%.2f"),
			r.TRIMP,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Records renders the personal records table
func Records(records []analysis.PersonalRecord) string {
	if len(records) == 0 {
		return statusStyle.Render(noData)
	}

	lines := []string{
		titleStyle.Render("Personal Records"),
		tableHeaderStyle.Render(fmt.Sprintf("%-6s  %9s  %6s  %-10s  %-11s  %s", "Dist", "Time", "Pace", "Date", "Source", "File")),
	}
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%-6s  %9s  %6s  %-10s  %-11s  %s",
			r.Distance,
			service.FormatDuration(r.DurationMinutes),
			service.FormatPace(r.PaceMinPerKm),
			r.Date.Format("2006-01-02"),
			r.Source,
			r.Filename,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Load renders the acute/chronic workload card
func Load(status analysis.LoadStatus) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Training Load"),
		RenderMetric("Acute (7d)", fmt.Sprintf("%.0f", status.AcuteLoad), fmt.Sprintf("%d runs", status.AcuteSessions)),
		RenderMetric("Chronic (28d)", fmt.Sprintf("%.0f", status.ChronicLoad), fmt.Sprintf("%d runs", status.ChronicSessions)),
		RenderMetric("Chronic weekly", fmt.Sprintf("%.0f", status.ChronicWeeklyAvg), ""),
		RenderMetric("A:C ratio", fmt.Sprintf("%.2f", status.Ratio), ""),
		metricLabelStyle.Render("Risk")+riskStyle(status.Risk).Render(string(status.Risk)),
	))
}

func riskStyle(r analysis.RiskBand) lipgloss.Style {
	switch r {
	case analysis.RiskOptimal:
		return successStyle
	case analysis.RiskCaution:
		return warningStyle
	case analysis.RiskHigh:
		return errorStyle
	default:
		return statusStyle
	}
}

// Zones renders average time in zone as bars
func Zones(agg service.ZoneAggregate) string {
	if agg.Sessions == 0 {
		return statusStyle.Render(noData)
	}

	ids := make([]string, 0, len(agg.Average))
	for id := range agg.Average {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := []string{titleStyle.Render(fmt.Sprintf("Time in Zone (%d of %d runs with HR)", agg.SessionsWithHR, agg.Sessions))}
	for _, id := range ids {
		pct := agg.Average[id]
		lines = append(lines, fmt.Sprintf("%-4s %s %5.1f%%", id, RenderProgressBar(pct/100, 30), pct))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Predictions renders race predictions and the VDOT score
func Predictions(data *service.PredictionsData) string {
	lines := []string{titleStyle.Render("Race Predictions")}
	if data.Fitness != nil {
		lines = append(lines,
			RenderMetric("VDOT", fmt.Sprintf("%.1f", data.Fitness.VDOT), data.Fitness.Level),
			RenderMetric("Based on", data.Fitness.SourceDistance, ""),
			"",
		)
	}
	lines = append(lines, tableHeaderStyle.Render(fmt.Sprintf("%-6s  %9s  %6s  %9s  %s", "Race", "Time", "Pace", "VDOT", "Confidence")))
	for _, p := range data.Predictions {
		vdot := "-"
		if p.VDOTMinutes > 0 {
			vdot = service.FormatDuration(p.VDOTMinutes)
		}
		lines = append(lines, fmt.Sprintf("%-6s  %9s  %6s  %9s  %s",
			p.Target,
			service.FormatDuration(p.PredictedMinutes),
			service.FormatPace(p.PaceMinPerKm),
			vdot,
			p.Confidence,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Fitness renders the latest CTL/ATL/TSB
func Fitness(data *service.FitnessData) string {
	if data.Current == nil {
		return statusStyle.Render(noData)
	}
	tsb := fmt.Sprintf("%+.1f", data.Current.TSB)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Fitness "+data.Current.Date.Format("Jan 02")),
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.1f", data.Current.CTL), ""),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.1f", data.Current.ATL), ""),
		RenderMetric("Form (TSB)", tsb, data.Description),
	))
}

// Stats renders the history statistics
func Stats(stats *service.HistoryStats) string {
	lines := []string{
		titleStyle.Render("History"),
		RenderMetric("Sessions", fmt.Sprintf("%d", stats.TotalSessions), ""),
		RenderMetric("Total distance", fmt.Sprintf("%.1f km", stats.TotalKm), ""),
		RenderMetric("Storage", stats.Size, ""),
	}
	if stats.Earliest != nil && stats.Latest != nil {
		lines = append(lines,
			RenderMetric("Range", stats.Earliest.Format("2006-01-02")+" to "+stats.Latest.Format("2006-01-02"), ""),
			RenderMetric("Last run", stats.LastRun, ""),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Periods renders period totals followed by the comparisons
func Periods(periods []service.PeriodStats, comparisons []service.ComparisonStats) string {
	lines := []string{
		titleStyle.Render("Training Periods"),
		tableHeaderStyle.Render(fmt.Sprintf("%-9s  %4s  %7s  %6s  %5s  %5s  %6s", "Period", "Runs", "Km", "Pace", "HR", "SPM", "TRIMP")),
	}
	for _, p := range periods {
		lines = append(lines, fmt.Sprintf("%-9s  %4d  %7.1f  %6s  %5s  %5s  %6.0f",
			p.PeriodLabel,
			p.RunCount,
			p.DistanceKm,
			service.FormatPace(p.PaceMinPerKm()),
			formatZero(p.AvgHR, "%.0f"),
			formatZero(p.AvgCadence, "%.0f"),
			p.TRIMP,
		))
	}
	for _, c := range comparisons {
		lines = append(lines, "", renderComparison(c))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderComparison(comp service.ComparisonStats) string {
	header := fmt.Sprintf("  %-16s  %-14s  %-14s  %s", "", comp.Current.PeriodLabel, comp.Previous.PeriodLabel, "Delta")
	rows := []string{
		metricLabelStyle.UnsetWidth().Render("── " + comp.Label),
		tableHeaderStyle.Render(header),
		renderRow("Runs", fmt.Sprintf("%d", comp.Current.RunCount), fmt.Sprintf("%d", comp.Previous.RunCount), float64(comp.DeltaRuns), "%+.0f", false),
		renderRow("Km", formatZero(comp.Current.DistanceKm, "%.1f"), formatZero(comp.Previous.DistanceKm, "%.1f"), comp.DeltaKm, "%+.1f", false),
		renderRow("Avg HR", formatZero(comp.Current.AvgHR, "%.0f"), formatZero(comp.Previous.AvgHR, "%.0f"), comp.DeltaHR, "%+.1f", true),
		renderRow("Avg Cadence", formatZero(comp.Current.AvgCadence, "%.0f"), formatZero(comp.Previous.AvgCadence, "%.0f"), comp.DeltaSPM, "%+.1f", false),
		renderRow("Avg EI", formatZero(comp.Current.AvgEI, "%.2f"), formatZero(comp.Previous.AvgEI, "%.2f"), comp.DeltaEI, "%+.2f", false),
		renderRow("TRIMP", formatZero(comp.Current.TRIMP, "%.0f"), formatZero(comp.Previous.TRIMP, "%.0f"), comp.DeltaTRIMP, "%+.0f", false),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderRow colours the delta; for heart rate lower is better
func renderRow(label, current, previous string, delta float64, format string, invert bool) string {
	trend := 0
	switch {
	case delta > 0.005:
		trend = 1
	case delta < -0.005:
		trend = -1
	}
	deltaStr := "0"
	if trend != 0 {
		deltaStr = fmt.Sprintf(format, delta)
	}
	if invert {
		trend = -trend
	}

	var styled string
	switch {
	case trend > 0:
		styled = trendUpStyle.Render(deltaStr + " ↑")
	case trend < 0:
		styled = trendDownStyle.Render(deltaStr + " ↓")
	default:
		styled = trendFlatStyle.Render(deltaStr + " →")
	}
	return fmt.Sprintf("  %-16s  %-14s  %-14s  %s", label, current, previous, styled)
}

func formatZero(v float64, format string) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

// Import renders the outcome of an import batch
func Import(result *service.ImportResult) string {
	lines := []string{
		successStyle.Render(fmt.Sprintf("Imported %d of %d parsed sessions (%d already in history)",
			result.Added, result.Parsed, result.Skipped)),
	}
	lines = append(lines, errorLines(result.Errors)...)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Sync renders the outcome of a Strava sync
func Sync(result *service.SyncResult) string {
	lines := []string{
		successStyle.Render(fmt.Sprintf("Synced %d new runs", result.Added)),
		statusStyle.Render(fmt.Sprintf("%d activities fetched, %d runs, %d streams downloaded",
			result.ActivitiesFetched, result.RunsFound, result.StreamsFetched)),
	}
	lines = append(lines, errorLines(result.Errors)...)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func errorLines(errs []error) []string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, errorStyle.Render("  ✗ "+err.Error()))
	}
	return lines
}

// Progress renders one progress line such as "[███░░] 3/5 run.fit"
func Progress(completed, total int, current string) string {
	pct := 0.0
	if total > 0 {
		pct = float64(completed) / float64(total)
	}
	return strings.TrimSpace(fmt.Sprintf("%s %d/%d %s", RenderProgressBar(pct, 20), completed, total, statusStyle.Render(current)))
}
