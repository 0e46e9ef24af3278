package diag

// Severity ranks a diagnostic. Errors are rule violations and fail the run;
// warnings come from heuristic checks (the dangling-return guess) and never
// affect the exit code; info is reserved for driver notices.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	// SevError marks a definite violation. Bag.HasErrors keys off it.
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

// String returns the upper-case label the pretty renderer prints.
func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}
