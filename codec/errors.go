package codec

import (
	"fmt"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/value"
)

// NoWriterFoundError reports that no writer is registered for a value's
// runtime kind (and element-kind refinement) on the destination backend.
type NoWriterFoundError struct {
	ValueKind value.Kind
	Elem      format.ElemKind
	Backend   format.BackendKind
}

func (e *NoWriterFoundError) Error() string {
	if e.Elem == format.ElemNone {
		return fmt.Sprintf("no writer registered for %s values on %s backend", e.ValueKind, e.Backend)
	}

	return fmt.Sprintf("no writer registered for %s values of %s elements on %s backend", e.ValueKind, e.Elem, e.Backend)
}

// NoReaderFoundError reports that a node's declared encoding tag has no
// registered reader on its backend.
type NoReaderFoundError struct {
	Tag     format.Tag
	Backend format.BackendKind
}

func (e *NoReaderFoundError) Error() string {
	return fmt.Sprintf("no reader registered for encoding %s on %s backend", e.Tag, e.Backend)
}

// NoPartialReaderFoundError reports that a node's encoding supports no
// partial reads. Partial dispatch never falls back to a full read.
type NoPartialReaderFoundError struct {
	Tag     format.Tag
	Backend format.BackendKind
}

func (e *NoPartialReaderFoundError) Error() string {
	return fmt.Sprintf("no partial reader registered for encoding %s on %s backend", e.Tag, e.Backend)
}

// ReservedColumnNameError reports a table column using a reserved name.
type ReservedColumnNameError struct {
	Name string
}

func (e *ReservedColumnNameError) Error() string {
	return fmt.Sprintf("column name %q is reserved", e.Name)
}
