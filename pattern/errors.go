package pattern

import "fmt"

// Reason explains why an operation could not be resolved.
type Reason string

const (
	// ReasonUnknown means the module does not define the operation at all.
	ReasonUnknown Reason = "unknown operation"
	// ReasonDeclared means the operation is explicitly unsupported on the kind.
	ReasonDeclared Reason = "declared unsupported"
	// ReasonMissing means the kind has no entry for an otherwise known operation.
	ReasonMissing Reason = "no descriptor"
	// ReasonKindDisabled means the registry was not built for the kind.
	ReasonKindDisabled Reason = "transport not enabled"
)

// UnsupportedOperationError is returned when an operation has no usable
// descriptor for the requested transport kind. It is a configuration error and
// must never be retried.
type UnsupportedOperationError struct {
	Module    string
	Operation string
	Kind      Kind
	Reason    Reason
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("pattern: operation %q of module %q is not supported on %s: %s",
		e.Operation, e.Module, e.Kind, e.Reason)
}

// Gap is an operation known to the module but absent from one enabled kind.
type Gap struct {
	Module    string
	Operation string
	Kind      Kind
	// Declared is true when the table explicitly marks the operation unsupported.
	Declared bool
}

func (g Gap) String() string {
	if g.Declared {
		return fmt.Sprintf("%s.%s: declared unsupported on %s", g.Module, g.Operation, g.Kind)
	}
	return fmt.Sprintf("%s.%s: missing on %s", g.Module, g.Operation, g.Kind)
}
