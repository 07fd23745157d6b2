package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes carried by FieldError. Compare with errors.Is.
var (
	ErrMissingField   = errors.New("missing field")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrUnknownType    = errors.New("unknown type")
	ErrDuplicateField = errors.New("duplicate external name")
	ErrInvalidTag     = errors.New("invalid tag")
)

// FieldError reports a schema failure on a single field of an entity.
//
// Entity and External name the innermost entity and wire key that failed.
// Path is the wire path from the entity passed to Decode/Encode down to
// that entity, empty when the failure is on the outermost entity.
type FieldError struct {
	Entity   string
	Field    string
	External string
	Path     string
	Err      error
}

func (e *FieldError) Error() string {
	var b strings.Builder
	b.WriteString("schema: ")
	b.WriteString(e.Entity)
	if e.External != "" {
		b.WriteByte('.')
		b.WriteString(e.External)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *FieldError) Unwrap() error { return e.Err }

// prependPath returns err with seg added in front of its FieldError path.
// Errors that are not FieldErrors are returned unchanged.
func prependPath(err error, seg string) error {
	var fe *FieldError
	if !errors.As(err, &fe) {
		return err
	}
	cp := *fe
	switch {
	case cp.Path == "":
		cp.Path = seg
	case strings.HasPrefix(cp.Path, "["):
		cp.Path = seg + cp.Path
	default:
		cp.Path = seg + "." + cp.Path
	}
	return &cp
}

func mismatch(want Kind, raw any) error {
	return fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, want, wireTypeName(raw))
}
