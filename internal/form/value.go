package form

import (
	"strconv"
	"strings"

	"backoffice/internal/schema"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindString
	KindNumber
	// KindEmptyNumber is a number field the user cleared. It is distinct from
	// zero, which counts as filled.
	KindEmptyNumber
	// KindMalformedNumber keeps the raw text of a number field that did not parse.
	KindMalformedNumber
	KindOption
	KindOptions
	KindFile
)

// FileHandle is an uploaded file held by a file field.
type FileHandle struct {
	Name        string
	ContentType string
	Data        []byte
}

// Value is the current content of one form field.
type Value struct {
	Kind    ValueKind
	Str     string
	Num     float64
	Options []schema.Option
	File    *FileHandle
}

func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func EmptyNumber() Value          { return Value{Kind: KindEmptyNumber} }
func OptionValue(o schema.Option) Value {
	return Value{Kind: KindOption, Options: []schema.Option{o}}
}

// OptionsValue copies sel, so later changes to the caller's slice do not leak in.
func OptionsValue(sel []schema.Option) Value {
	return Value{Kind: KindOptions, Options: append([]schema.Option{}, sel...)}
}

func FileValue(f FileHandle) Value { return Value{Kind: KindFile, File: &f} }

// Present reports whether the value satisfies a required field.
// Numeric zero is present.
func (v Value) Present() bool {
	switch v.Kind {
	case KindString:
		return v.Str != ""
	case KindNumber:
		return true
	case KindOption:
		return len(v.Options) == 1 && v.Options[0].ID != ""
	case KindOptions:
		return len(v.Options) > 0
	case KindFile:
		return v.File != nil
	case KindEmpty, KindEmptyNumber, KindMalformedNumber:
		return false
	}
	return false
}

// Number returns the numeric content, if any.
func (v Value) Number() (float64, bool) {
	if v.Kind == KindNumber {
		return v.Num, true
	}
	return 0, false
}

// OptionIDs lists the identities of the selected options.
func (v Value) OptionIDs() []string {
	ids := make([]string, 0, len(v.Options))
	for _, o := range v.Options {
		ids = append(ids, o.ID)
	}
	return ids
}

// Text renders the value for an input control.
func (v Value) Text() string {
	switch v.Kind {
	case KindString, KindMalformedNumber:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindOption, KindOptions:
		return strings.Join(v.OptionIDs(), ",")
	case KindFile:
		if v.File != nil {
			return v.File.Name
		}
	}
	return ""
}

func (v Value) clone() Value {
	if v.Options != nil {
		v.Options = append([]schema.Option{}, v.Options...)
	}
	if v.File != nil {
		f := *v.File
		v.File = &f
	}
	return v
}

// Values maps field names to their current values. Fields never set are
// absent from the map.
type Values map[string]Value

// Get returns the named value, or an empty one.
func (vs Values) Get(name string) Value {
	return vs[name]
}

func (vs Values) clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = v.clone()
	}
	return out
}
