package xcaf

import "fmt"

// ValidationSeverity indicates whether a finding makes the document unusable
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // document is malformed
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Entry    string             // which label has the problem (empty if document-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] label %s: %s", e.Severity, e.Entry, e.Message)
}

// Validate runs the structural checks on the document. An empty slice means
// the document is valid. Validate never mutates the document.
func Validate(d *Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateAcyclic(d)...)
	errs = append(errs, validateReferences(d)...)
	errs = append(errs, validateAssemblies(d)...)
	errs = append(errs, validateNames(d)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// validateAcyclic checks for component cycles using DFS with 3-color marking.
// Edges run from an assembly to each component and from a component to its
// prototype. Meeting a gray label means the walk has returned to a label on
// the current path.
func validateAcyclic(d *Document) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Label]int)
	var errs []ValidationError

	var visit func(l *Label) bool // returns true if cycle found
	visit = func(l *Label) bool {
		switch color[l] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Entry:    l.entry,
				Message:  fmt.Sprintf("cycle detected: label %s contains itself", l.entry),
				Severity: SeverityError,
			})
			return true
		}

		color[l] = gray
		var next []*Label
		switch l.kind {
		case KindAssembly:
			next = l.components
		case KindComponent:
			if l.proto != nil {
				next = []*Label{l.proto}
			}
		}
		for _, n := range next {
			if visit(n) {
				return true
			}
		}
		color[l] = black
		return false
	}

	for _, l := range d.all {
		if color[l] == white {
			if visit(l) {
				// One cycle error is sufficient; stop early.
				break
			}
		}
	}
	return errs
}

// validateReferences checks that every component refers to a label of this
// document.
func validateReferences(d *Document) []ValidationError {
	var errs []ValidationError
	for _, l := range d.all {
		if l.kind != KindComponent {
			continue
		}
		if l.proto == nil {
			errs = append(errs, ValidationError{
				Entry:    l.entry,
				Message:  "component has no prototype",
				Severity: SeverityError,
			})
			continue
		}
		if own, ok := d.byEntry[l.proto.entry]; !ok || own != l.proto {
			errs = append(errs, ValidationError{
				Entry:    l.entry,
				Message:  fmt.Sprintf("component refers to %s, which is not in this document", l.proto.entry),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateAssemblies warns about assemblies without components.
func validateAssemblies(d *Document) []ValidationError {
	var errs []ValidationError
	for _, l := range d.all {
		if l.kind == KindAssembly && len(l.components) == 0 {
			errs = append(errs, ValidationError{
				Entry:    l.entry,
				Message:  "assembly has no components",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateNames warns about top-level labels without a name; they will be
// reported under a synthesized placeholder name.
func validateNames(d *Document) []ValidationError {
	var errs []ValidationError
	for _, l := range d.top {
		if l.name == "" {
			errs = append(errs, ValidationError{
				Entry:    l.entry,
				Message:  "label has no name",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
