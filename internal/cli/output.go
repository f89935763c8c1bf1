package cli

import "github.com/fatih/color"

var (
	headingStyle = color.New(color.Bold, color.FgCyan)
	valueStyle   = color.New(color.Bold)
	mutedStyle   = color.New(color.Faint)
	successStyle = color.New(color.FgGreen)
	warningStyle = color.New(color.FgYellow)
	errorStyle   = color.New(color.FgRed)
)
