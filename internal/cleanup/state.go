package cleanup

// State is a step of a cleanup run.
type State int

const (
	Scanning State = iota
	Reporting
	AwaitingConfirmation
	Deleting
	PruneEmpty
	Done
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Reporting:
		return "reporting"
	case AwaitingConfirmation:
		return "awaiting-confirmation"
	case Deleting:
		return "deleting"
	case PruneEmpty:
		return "prune-empty"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}
