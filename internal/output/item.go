// Package output carries user-facing progress from the cleanup run to the
// console and the per-run log file without blocking the caller.
package output

// Kind tags an item for presentation only.
type Kind int

const (
	Default Kind = iota
	Success
	Warning
	Error
	Verbose
	DarkSuccess
	DarkWarning
	DarkError
	DarkVerbose
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Verbose:
		return "verbose"
	case DarkSuccess:
		return "dark-success"
	case DarkWarning:
		return "dark-warning"
	case DarkError:
		return "dark-error"
	case DarkVerbose:
		return "dark-verbose"
	default:
		return "default"
	}
}

// Item is one reportable event.
type Item struct {
	Message string
	NewLine bool
	IsError bool
	Kind    Kind

	// Detail holds diagnostic text such as the underlying OS error.
	Detail string
}

// Line returns a complete line of text.
func Line(kind Kind, msg string) Item {
	return Item{Message: msg, NewLine: true, Kind: kind}
}

// Text returns a fragment that the next item continues on the same line.
func Text(kind Kind, msg string) Item {
	return Item{Message: msg, Kind: kind}
}

// Failure returns an error line carrying detail.
func Failure(msg, detail string) Item {
	return Item{Message: msg, NewLine: true, IsError: true, Kind: Error, Detail: detail}
}
