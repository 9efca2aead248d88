// Package preflight checks the filesystem before an assembly run starts.
//
// The run command calls RunAll after flags are applied and refuses to start
// when any check fails, so a missing tiles directory or a read-only output
// directory is reported once instead of as a failure for every time point.
package preflight
