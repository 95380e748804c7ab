package ui

// Status symbols used in progress and summary output.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolSkipped  = "–"
	SymbolWarning  = "!"
	SymbolComplete = "∑"
)
