package rowan

// Phase identifies one stage of the injection pipeline. InjectAll runs the
// member phases in declaration order: fields, then setters, then methods.
type Phase int

const (
	// PhaseConstructor covers instance creation via the selected
	// constructor.
	PhaseConstructor Phase = iota

	// PhaseFields covers tagged struct fields.
	PhaseFields

	// PhaseSetters covers property-style setter methods.
	PhaseSetters

	// PhaseMethods covers ordered injection methods.
	PhaseMethods
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseConstructor:
		return "constructor"
	case PhaseFields:
		return "field"
	case PhaseSetters:
		return "setter"
	case PhaseMethods:
		return "method"
	default:
		return "unknown"
	}
}
