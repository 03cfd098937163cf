// Package emoji provides symbol constants for CLI output.
// These symbols create a consistent visual language across all command-line commands.
package emoji

const (
	// Success marks a job or store that finished cleanly.
	Success = "✓"

	// Error marks a failed job.
	Error = "✗"

	// Warning marks a store that was changed or a run that was interrupted.
	Warning = "!"

	// Optional marks a store that does not exist yet or a step that never ran.
	Optional = "-"
)
