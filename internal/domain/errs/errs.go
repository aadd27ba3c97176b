// Package errs holds the sentinel errors used to classify failures.
package errs

import "errors"

// Error classes. Wrap with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrValidation marks bad user input such as a malformed URL or missing destination.
	ErrValidation = errors.New("validation error")
	// ErrTransientFetch marks network, search or thumbnail failures that may succeed on retry.
	ErrTransientFetch = errors.New("transient fetch error")
	// ErrEngine marks a failed or crashed external engine run.
	ErrEngine = errors.New("engine error")
	// ErrEnvironment marks a required external engine that is missing or unverifiable.
	ErrEnvironment = errors.New("environment error")
)

var (
	ErrBatchRunning  = errors.New("a batch is already running")
	ErrNoDestination = errors.New("no destination directory selected")
)
