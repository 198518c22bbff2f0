package record

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidOperation   = errors.New("record: invalid operation")
	ErrUnknownAssociation = errors.New("record: unknown association")
	ErrConfiguration      = errors.New("record: configuration error")
	ErrMissingArgument    = errors.New("record: missing argument")
	ErrNotImplemented     = errors.New("record: not implemented")
	ErrRecordNotFound     = errors.New("record: record not found")
	ErrValidation         = errors.New("record: validation failed")
	ErrNoConnection       = errors.New("record: no connection")
	ErrMustBePointer      = errors.New("record: target must be a pointer")
)

// InvalidOperationError is returned when a method is called while the query
// is in the wrong mode (collection or instance), or when LIMIT conflicts with
// an aggregate.
type InvalidOperationError struct {
	Method string
	Mode   string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	msg := fmt.Sprintf("record: %s() can't be called on %s", e.Method, e.Mode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidOperationError) Is(err error) bool {
	return err == ErrInvalidOperation
}

// UnknownAssociationError is returned when an association name is not found
// in the registry of the model it is resolved against.
type UnknownAssociationError struct {
	Model       string
	Association string
}

func (e *UnknownAssociationError) Error() string {
	return fmt.Sprintf("record: association %q is not defined on %s", e.Association, e.Model)
}

func (e *UnknownAssociationError) Is(err error) bool {
	return err == ErrUnknownAssociation
}

// ConfigurationError reports malformed association setup or arguments of an
// unsupported type.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "record: " + e.Reason
}

func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

// MissingArgumentError is returned by Sum and Average when no field is given.
type MissingArgumentError struct {
	Method string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("record: missing argument for %s(ARG)", e.Method)
}

func (e *MissingArgumentError) Is(err error) bool {
	return err == ErrMissingArgument
}

// NotImplementedError is returned for nested (map form) joins. Pass raw JOIN
// fragments as strings instead.
type NotImplementedError struct {
	Feature string
}

func (e *NotImplementedError) Error() string {
	return "record: " + e.Feature + " is not implemented"
}

func (e *NotImplementedError) Is(err error) bool {
	return err == ErrNotImplemented
}

// RecordNotFoundError is returned by FindOrFail, or when an association hop
// needs a value from an owner row that does not exist.
type RecordNotFoundError struct {
	Table string
	ID    interface{}
}

func (e *RecordNotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("record: couldn't find %s with 'id'=%v", e.Table, e.ID)
	}
	return fmt.Sprintf("record: couldn't find %s", e.Table)
}

func (e *RecordNotFoundError) Is(err error) bool {
	return err == ErrRecordNotFound
}

// ValidationError holds per-attribute messages collected by the validations
// of a model.
type ValidationError struct {
	Errors map[string][]string
}

func (e *ValidationError) Error() string {
	attrs := make([]string, 0, len(e.Errors))
	for attr := range e.Errors {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	msgs := []string{}
	for _, attr := range attrs {
		for _, msg := range e.Errors[attr] {
			msgs = append(msgs, attr+" "+msg)
		}
	}
	return "record: validation failed: " + strings.Join(msgs, ", ")
}

func (e *ValidationError) Is(err error) bool {
	return err == ErrValidation
}

// IsNotFound reports whether err is a RecordNotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
