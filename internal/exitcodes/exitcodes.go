package exitcodes

// Exit codes for quoll.
// Scripts rely on these, so existing values never change.
const (
	Success         = 0   // Every selected item was handled
	Failure         = 1   // Unexpected error outside the cleanup run
	InvalidConfig   = 2   // Validation failed; nothing was touched
	SafetyViolation = 3   // The safety validator refused at least one item
	ItemErrors      = 4   // At least one backup or delete failed
	Interrupted     = 130 // Run stopped by SIGINT/SIGTERM
)
