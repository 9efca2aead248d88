package preflight

import (
	"imageassembly/internal/config"
)

// MinOutputFreeBytes is the free space below which an assembly run is
// refused outright.
const MinOutputFreeBytes = 256 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks the directories an assembly run reads from and writes to.
// The output directory must already exist.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryReadable("Tiles directory", cfg.Paths.TilesDir),
		CheckDirectoryReadable("Stitching directory", cfg.Paths.StitchingDir),
	}
	output := CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir)
	results = append(results, output)
	if output.Passed {
		results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, MinOutputFreeBytes))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
