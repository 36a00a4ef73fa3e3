// Package login implements the login view: the field state holder, the submit
// controller and the view that ties them to one mounted page, socket or
// terminal session.
package login

import (
	"fmt"

	"horizonx-console/internal/domain"
	"horizonx-console/internal/validation"
)

// Form maps each login field to its current state. Every change or blur
// replaces the field's state wholesale. Not safe for concurrent use; events for
// one form are expected to arrive in sequence.
type Form struct {
	fields map[domain.FieldID]domain.FieldState
}

func NewForm() *Form {
	f := &Form{fields: make(map[domain.FieldID]domain.FieldState, len(domain.LoginFields))}
	for _, id := range domain.LoginFields {
		f.fields[id] = domain.FieldState{}
	}
	return f
}

// Change re-validates raw and stores it; the touched flag is carried over.
func (f *Form) Change(id domain.FieldID, raw string) error {
	current, ok := f.fields[id]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, id)
	}

	f.fields[id] = evaluate(id, raw, current.Touched)
	return nil
}

// Blur re-validates the stored value and marks the field touched.
func (f *Form) Blur(id domain.FieldID) error {
	current, ok := f.fields[id]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, id)
	}

	f.fields[id] = evaluate(id, current.Value, true)
	return nil
}

// SubmitAttempt touches and re-validates every field so all errors surface at
// once.
func (f *Form) SubmitAttempt() {
	for id, current := range f.fields {
		f.fields[id] = evaluate(id, current.Value, true)
	}
}

// Reset returns the given fields to their initial untouched state.
func (f *Form) Reset(ids ...domain.FieldID) {
	for _, id := range ids {
		if _, ok := f.fields[id]; ok {
			f.fields[id] = domain.FieldState{}
		}
	}
}

func (f *Form) Field(id domain.FieldID) (domain.FieldState, bool) {
	state, ok := f.fields[id]
	return state, ok
}

// Submittable reports whether every field is valid.
func (f *Form) Submittable() bool {
	for _, state := range f.fields {
		if !state.IsValid {
			return false
		}
	}
	return true
}

// Credentials copies the current values for a login call.
func (f *Form) Credentials() domain.Credentials {
	return domain.Credentials{
		Email:    f.fields[domain.FieldEmail].Value,
		Password: f.fields[domain.FieldPassword].Value,
	}
}

func evaluate(id domain.FieldID, value string, touched bool) domain.FieldState {
	res := validation.Field(id, value)
	return domain.FieldState{
		Value:   value,
		IsValid: res.Valid,
		Error:   res.Error,
		Touched: touched,
	}
}
