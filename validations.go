package record

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

type (
	// Validator checks the value of one attribute and returns an error
	// message, or an empty string if the value is valid. Present is false
	// when the attribute is not part of the changes.
	Validator func(value interface{}, present bool) string

	// BeforeSaveFunc runs before an INSERT or UPDATE is built. It may modify
	// the changes; returning an error fails the chain.
	BeforeSaveFunc func(changes Changes) error

	validation struct {
		attributes []string
		validators []Validator
	}
)

// Validates registers validators for a comma separated list of attributes
// (column names or struct field names). Validations run when Create(),
// Save() or Update() build their statement; on updates only attributes that
// are part of the changes are checked.
//
//	users.Validates("name, email", record.Presence(), record.Length(1, 100))
func (m *Model) Validates(attributes string, validators ...Validator) error {
	v := validation{validators: validators}
	for _, attr := range strings.Split(attributes, ",") {
		if attr = strings.TrimSpace(attr); attr != "" {
			v.attributes = append(v.attributes, m.columnName(attr))
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return &ConfigurationError{Reason: fmt.Sprintf("validations can not be added to %s after queries have been built", m.name())}
	}
	m.validations = append(m.validations, v)
	return nil
}

// BeforeSave registers a callback that runs before validations.
func (m *Model) BeforeSave(fn BeforeSaveFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return &ConfigurationError{Reason: fmt.Sprintf("callbacks can not be added to %s after queries have been built", m.name())}
	}
	m.beforeSave = append(m.beforeSave, fn)
	return nil
}

// Validate checks changes against the validations of the model. A
// ValidationError lists every failed attribute.
func (m *Model) Validate(changes Changes, creating bool) error {
	errs := map[string][]string{}
	for _, v := range m.validations {
		for _, attr := range v.attributes {
			value, present := changes[attr]
			if !present && !creating {
				continue
			}
			for _, validator := range v.validators {
				if msg := validator(value, present); msg != "" {
					errs[attr] = append(errs[attr], msg)
				}
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Presence fails when the value is missing, nil, a blank string or an empty
// slice or map.
func Presence() Validator {
	return func(value interface{}, present bool) string {
		if !present || isBlank(value) {
			return "can't be blank"
		}
		return ""
	}
}

// Length fails when a string value has fewer than min or more than max
// characters. A max of 0 means no upper limit. Missing values are skipped.
func Length(min, max int) Validator {
	return func(value interface{}, present bool) string {
		s, ok := value.(string)
		if !present || !ok {
			return ""
		}
		n := utf8.RuneCountInString(s)
		if n < min {
			return fmt.Sprintf("is too short (minimum is %d characters)", min)
		}
		if max > 0 && n > max {
			return fmt.Sprintf("is too long (maximum is %d characters)", max)
		}
		return ""
	}
}

// Inclusion fails when the value is not one of values. Missing values are
// skipped.
func Inclusion(values ...interface{}) Validator {
	return func(value interface{}, present bool) string {
		if !present {
			return ""
		}
		for _, v := range values {
			if reflect.DeepEqual(v, value) {
				return ""
			}
		}
		return "is not included in the list"
	}
}

func isBlank(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr:
		return rv.IsNil()
	}
	return false
}
