package output

import "github.com/charmbracelet/lipgloss"

// Console palette, ANSI 16-colour indexes.
const (
	colorDarkRed    = lipgloss.Color("1")
	colorDarkGreen  = lipgloss.Color("2")
	colorDarkYellow = lipgloss.Color("3")
	colorGray       = lipgloss.Color("7")
	colorDarkGray   = lipgloss.Color("8")
	colorRed        = lipgloss.Color("9")
	colorGreen      = lipgloss.Color("10")
	colorYellow     = lipgloss.Color("11")
)

// Style maps a Kind to its console style.
func Style(kind Kind) lipgloss.Style {
	return StyleFor(lipgloss.DefaultRenderer(), kind)
}

// StyleFor is Style bound to a specific renderer.
func StyleFor(r *lipgloss.Renderer, kind Kind) lipgloss.Style {
	s := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	switch kind {
	case Success:
		return s.Foreground(colorGreen)
	case DarkSuccess:
		return s.Foreground(colorDarkGreen)
	case Warning:
		return s.Foreground(colorYellow)
	case DarkWarning:
		return s.Foreground(colorDarkYellow)
	case Error:
		return s.Foreground(colorRed).Bold(true)
	case DarkError:
		return s.Foreground(colorDarkRed)
	case Verbose:
		return s.Foreground(colorGray)
	case DarkVerbose:
		return s.Foreground(colorDarkGray)
	default:
		return s
	}
}
