package ports

// Trigger is a long-running surface that starts workflow runs, such as the
// HTTP API or the polling scheduler
type Trigger interface {
	// Start starts the trigger in the background
	Start() error

	// Stop stops the trigger and waits for in-flight work to finish
	Stop() error
}
