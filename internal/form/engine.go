// Package form keeps the editable state of a schema-driven form and enforces
// required-field presence before a submission is handed back to the caller.
//
// The engine performs no I/O. It is owned by a single screen and is not safe
// for concurrent use.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"backoffice/internal/schema"
)

// RequiredMessage is the error shown under an empty required field.
const RequiredMessage = "Este campo é obrigatório"

var ErrValidationFailed = errors.New("form validation failed")

// ValidationFailed carries the per-field errors of a rejected submission.
type ValidationFailed struct {
	Errors map[string]string
}

func (e *ValidationFailed) Error() string {
	names := make([]string, 0, len(e.Errors))
	for name := range e.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(names, ", "))
}

func (e *ValidationFailed) Is(target error) bool {
	return target == ErrValidationFailed
}

// State is a snapshot of the form: values plus per-field errors.
type State struct {
	Values Values
	Errors map[string]string
}

// Error returns the message for a field, or "".
func (s State) Error(name string) string {
	return s.Errors[name]
}

func (s State) clone() State {
	errs := make(map[string]string, len(s.Errors))
	for k, v := range s.Errors {
		errs[k] = v
	}
	return State{Values: s.Values.clone(), Errors: errs}
}

// Engine drives one form. Every operation returns a fresh snapshot of the
// state; the engine keeps the authoritative copy.
type Engine struct {
	fields []schema.FieldSpec
	byName map[string]schema.FieldSpec
	state  State
}

// New returns an engine with no fields and empty state.
func New() *Engine {
	return &Engine{state: State{Values: Values{}, Errors: map[string]string{}}}
}

// Initialize replaces any prior state with initial and clears all errors.
// Calling it twice with the same arguments yields equal states.
func (e *Engine) Initialize(fields []schema.FieldSpec, initial Values) State {
	e.fields = append([]schema.FieldSpec(nil), fields...)
	e.byName = make(map[string]schema.FieldSpec, len(fields))
	for _, f := range fields {
		e.byName[f.Name] = f
	}
	if initial == nil {
		initial = Values{}
	}
	e.state = State{Values: initial.clone(), Errors: map[string]string{}}
	return e.State()
}

// Fields returns the field specs the engine was initialized with.
func (e *Engine) Fields() []schema.FieldSpec {
	return append([]schema.FieldSpec(nil), e.fields...)
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state.clone()
}

// SetValue stores raw input for a field. Number fields coerce "" to the
// empty-number value and anything else to a number; input that does not parse
// is kept as malformed and caught by the required check. The field's error is
// cleared without re-validating.
func (e *Engine) SetValue(name, raw string) State {
	v := StringValue(raw)
	if f, ok := e.byName[name]; ok && f.Kind == schema.FieldNumber {
		v = coerceNumber(raw)
	}
	e.set(name, v)
	return e.State()
}

// SetMultiSelectValue replaces the field's selection wholesale.
func (e *Engine) SetMultiSelectValue(name string, selection []schema.Option) State {
	e.set(name, OptionsValue(selection))
	return e.State()
}

// SetFileValue keeps only the first of files. An empty list leaves the field
// untouched.
func (e *Engine) SetFileValue(name string, files []FileHandle) State {
	if len(files) == 0 {
		return e.State()
	}
	e.set(name, FileValue(files[0]))
	return e.State()
}

// Validate checks every required field and replaces the error set with the
// result.
func (e *Engine) Validate() (State, bool) {
	errs := make(map[string]string)
	for _, f := range e.fields {
		if f.Required && !e.state.Values.Get(f.Name).Present() {
			errs[f.Name] = RequiredMessage
		}
	}
	e.state.Errors = errs
	return e.State(), len(errs) == 0
}

// Submit validates and, on success, returns the values exactly as set. On
// failure it returns a *ValidationFailed and leaves the errors in the state
// for rendering.
func (e *Engine) Submit() (Values, error) {
	st, ok := e.Validate()
	if !ok {
		return nil, &ValidationFailed{Errors: st.Errors}
	}
	return st.Values, nil
}

func (e *Engine) set(name string, v Value) {
	if e.state.Values == nil {
		e.state.Values = Values{}
	}
	e.state.Values[name] = v
	delete(e.state.Errors, name)
}

func coerceNumber(raw string) Value {
	if raw == "" {
		return EmptyNumber()
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Value{Kind: KindMalformedNumber, Str: raw}
	}
	return NumberValue(n)
}
