package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"imageassembly/internal/assembly"
)

var (
	numberPrinter = message.NewPrinter(language.English)
	titleCaser    = cases.Title(language.Und)
)

func renderReport(report assembly.Report, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Assembly report", colorize) {
		b.WriteString(line + "\n")
	}
	if len(report.StalePartials) > 0 {
		b.WriteString(renderStatusLine("Stale partials", statusWarn,
			fmt.Sprintf("removed %d leftover file(s)", len(report.StalePartials)), colorize) + "\n")
	}

	if len(report.Results) > 0 {
		headers := []string{"Time point", "Outcome", "Output", "Size", "Tiles", "Bytes", "Elapsed"}
		aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
		rows := make([][]string, 0, len(report.Results))
		for _, res := range report.Results {
			rows = append(rows, reportRow(res))
		}
		b.WriteString(renderTable(headers, rows, aligns) + "\n")
	}

	kind := statusOK
	switch {
	case report.Assembled == 0:
		kind = statusError
	case report.Skipped+report.Failed > 0:
		kind = statusWarn
	}
	summary := numberPrinter.Sprintf("Assembled %d of %d time points (%d skipped, %d failed) in %s",
		report.Assembled, len(report.Results), report.Skipped, report.Failed, report.Duration.Round(time.Millisecond))
	b.WriteString(renderStatusLine("Summary", kind, summary, colorize) + "\n")
	return b.String()
}

func reportRow(res assembly.Result) []string {
	outcome := titleCaser.String(string(res.Outcome))
	if res.Reason != assembly.ReasonNone {
		outcome += " (" + string(res.Reason) + ")"
	}
	if res.Outcome != assembly.OutcomeAssembled {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		return []string{res.TimePoint, outcome, detail, "", "", "", res.Duration.Round(time.Millisecond).String()}
	}
	return []string{
		res.TimePoint,
		outcome,
		filepath.Base(res.Output),
		numberPrinter.Sprintf("%d x %d", res.Width, res.Height),
		numberPrinter.Sprintf("%d", res.Tiles),
		humanize.IBytes(res.Bytes),
		res.Duration.Round(time.Millisecond).String(),
	}
}

type reportJSON struct {
	RunID         string       `json:"run_id"`
	StartedAt     time.Time    `json:"started_at"`
	DurationMS    int64        `json:"duration_ms"`
	Assembled     int          `json:"assembled"`
	Skipped       int          `json:"skipped"`
	Failed        int          `json:"failed"`
	StalePartials []string     `json:"stale_partials,omitempty"`
	Results       []resultJSON `json:"results"`
}

type resultJSON struct {
	TimePoint  string `json:"time_point"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Output     string `json:"output,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Tiles      int    `json:"tiles,omitempty"`
	Bytes      uint64 `json:"bytes,omitempty"`
	BigTIFF    bool   `json:"bigtiff,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func newReportJSON(report assembly.Report) reportJSON {
	out := reportJSON{
		RunID:         report.RunID,
		StartedAt:     report.StartedAt,
		DurationMS:    report.Duration.Milliseconds(),
		Assembled:     report.Assembled,
		Skipped:       report.Skipped,
		Failed:        report.Failed,
		StalePartials: report.StalePartials,
		Results:       make([]resultJSON, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		item := resultJSON{
			TimePoint:  res.TimePoint,
			Outcome:    string(res.Outcome),
			Reason:     string(res.Reason),
			Output:     res.Output,
			Width:      res.Width,
			Height:     res.Height,
			Tiles:      res.Tiles,
			Bytes:      res.Bytes,
			BigTIFF:    res.BigTIFF,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		out.Results = append(out.Results, item)
	}
	return out
}
