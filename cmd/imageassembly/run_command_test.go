package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"imageassembly/internal/assembly"
)

func TestRunAssemblesAndInspects(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeTimePoint(t, "1", 1)
	env.writeTimePoint(t, "2", 2)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Assembled 2 of 2 time points")
	requireContains(t, out, "image_1.ome.tif")
	requireContains(t, out, "104 x 52")

	output := filepath.Join(env.cfg.Paths.OutputDir, "image_2.ome.tif")
	out, _, err = runCLI(t, []string{"inspect", output}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "104 x 52")
	requireContains(t, out, "uint16 x 1 (big-endian)")
	requireContains(t, out, "deflate")
	requireContains(t, out, "image_2.ome.tif")
	requireContains(t, out, "File size")
}

func TestRunJSONReport(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeTimePoint(t, "1", 1)
	vector := filepath.Join(env.cfg.Paths.StitchingDir, "img-global-positions-2.txt")
	if err := os.WriteFile(vector, []byte("file: nowhere.png; position: (0, 0);\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run --json: %v", err)
	}
	var report reportJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Assembled != 1 || report.Skipped != 1 || len(report.Results) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.RunID == "" {
		t.Fatal("expected a run id")
	}
	skipped := report.Results[1]
	if skipped.TimePoint != "2" || skipped.Outcome != "skipped" || skipped.Reason != "unreadable" || skipped.Error == "" {
		t.Fatalf("unexpected skipped result: %+v", skipped)
	}
}

func TestRunFailsWhenNothingAssembled(t *testing.T) {
	env := setupCLITestEnv(t)
	vector := filepath.Join(env.cfg.Paths.StitchingDir, "img-global-positions-1.txt")
	if err := os.WriteFile(vector, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, assembly.ErrNoTimeSlicesAssembled) {
		t.Fatalf("expected ErrNoTimeSlicesAssembled, got %v", err)
	}
	requireContains(t, out, "Assembled 0 of 1 time points")
	requireContains(t, out, "Skipped (unreadable)")
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeTimePoint(t, "7", 7)
	empty := filepath.Join(t.TempDir(), "empty.toml")
	if err := os.WriteFile(empty, []byte("[logging]\nlevel = \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(env.baseDir, "flag-output")

	_, _, err := runCLI(t, []string{
		"run",
		"--tiles", env.cfg.Paths.TilesDir,
		"--stitching", env.cfg.Paths.StitchingDir,
		"--output", output,
		"--tile-size", "32",
		"--compression", "zstd",
		"--workers", "2",
	}, empty)
	if err != nil {
		t.Fatalf("run with flags: %v", err)
	}

	out, _, err := runCLI(t, []string{"inspect", "--json", filepath.Join(output, "image_7.ome.tif")}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var info inspectJSON
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode inspect: %v", err)
	}
	if info.TileWidth != 32 || info.Compression != "zstd" || info.Tiles != 8 {
		t.Fatalf("flags not applied: %+v", info)
	}
	if info.FileBytes <= int64(info.CompressedBytes) {
		t.Fatalf("file size %d should exceed tile data %d", info.FileBytes, info.CompressedBytes)
	}
}

func TestRunRejectsInvalidFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", "--tile-size", "20"}, env.configPath); err == nil {
		t.Fatal("expected tile size 20 to fail validation")
	}
}

func TestRunRequiresDirectories(t *testing.T) {
	setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "absent.toml")

	_, _, err := runCLI(t, []string{"run"}, missing)
	if err == nil {
		t.Fatal("expected missing directories to fail")
	}
	requireContains(t, err.Error(), "--stitching")
}

func TestRunFailsPreflightForMissingTiles(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.cfg.Paths.TilesDir); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "Tiles directory")
	requireContains(t, stderr, "[ERROR]")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "[OK]")
}

func TestInspectMissingFile(t *testing.T) {
	setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"inspect", filepath.Join(t.TempDir(), "nope.ome.tif")}, ""); err == nil {
		t.Fatal("expected inspect of a missing file to fail")
	}
}
