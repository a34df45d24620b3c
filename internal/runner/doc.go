// Package runner launches external tools and aggregates their results.
// ExecRunner runs one executable with output streamed to the console;
// RunAll runs a fixed sequence of invocations under a failure policy.
package runner
