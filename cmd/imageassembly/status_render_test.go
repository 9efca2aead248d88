package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"imageassembly/internal/assembly"
	"imageassembly/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Output", statusError, "Not writable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Output:", "[ERROR] Not writable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Output", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestPreflightLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "Tiles directory", Passed: true, Detail: "readable"},
		{Name: "Output directory", Passed: false, Detail: "not writable"},
	}
	lines, failed := preflightLines(results, false)
	if failed != 1 || len(lines) != 4 {
		t.Fatalf("failed=%d lines=%d", failed, len(lines))
	}
	if !strings.Contains(lines[2], "[OK] readable") || !strings.Contains(lines[3], "[ERROR] not writable") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestRenderReport(t *testing.T) {
	report := assembly.Report{
		Duration:      1500 * time.Millisecond,
		Assembled:     1,
		Failed:        1,
		StalePartials: []string{"/out/.image_0.ome.tif.1.partial"},
		Results: []assembly.Result{
			{TimePoint: "1", Outcome: assembly.OutcomeAssembled, Output: "/out/image_1.ome.tif", Width: 20480, Height: 1024, Tiles: 20, Bytes: 3 << 20},
			{TimePoint: "2", Outcome: assembly.OutcomeFailed, Reason: assembly.ReasonWriteError, Err: errors.New("disk full")},
		},
	}
	got := renderReport(report, false)
	for _, want := range []string{
		"Assembly report",
		"removed 1 leftover file(s)",
		"image_1.ome.tif",
		"20,480 x 1,024",
		"3.0 MiB",
		"Failed (write_error)",
		"disk full",
		"[WARN] Assembled 1 of 2 time points (0 skipped, 1 failed) in 1.5s",
	} {
		requireContains(t, got, want)
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"a", "1"}, {"bb"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "Name") || !strings.Contains(out, "bb") {
		t.Fatalf("unexpected table %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table for no headers")
	}
}
