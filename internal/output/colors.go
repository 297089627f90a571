package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	MetricName   *color.Color
	Tag          *color.Color
	Value        *color.Color
	SeverityMed  *color.Color
	SeverityHigh *color.Color
	Label        *color.Color
	Success      *color.Color
	Error        *color.Color
	Highlight    *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		MetricName:   color.New(color.FgCyan, color.Bold),
		Tag:          color.New(color.FgBlue),
		Value:        color.New(color.FgWhite),
		SeverityMed:  color.New(color.FgYellow, color.Bold),
		SeverityHigh: color.New(color.FgRed, color.Bold),
		Label:        color.New(color.FgYellow),
		Success:      color.New(color.FgGreen),
		Error:        color.New(color.FgRed),
		Highlight:    color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	// Disable all colors
	scheme.MetricName.DisableColor()
	scheme.Tag.DisableColor()
	scheme.Value.DisableColor()
	scheme.SeverityMed.DisableColor()
	scheme.SeverityHigh.DisableColor()
	scheme.Label.DisableColor()
	scheme.Success.DisableColor()
	scheme.Error.DisableColor()
	scheme.Highlight.DisableColor()

	return scheme
}

// SuccessIcon returns a checkmark symbol with appropriate color
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}
