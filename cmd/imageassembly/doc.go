// Package main hosts the imageassembly CLI.
//
// The Cobra command tree loads configuration, lets flags override the run
// directories and codec settings, runs preflight checks and hands the run to
// the assembly pipeline. Reports are rendered as tables for people or JSON
// for scripts. Heavy lifting lives in the internal packages; commands here
// only translate flags and render results.
package main
