// Package canonicalize implements the single canonical encoding the kernel
// hashes everything through: state hashes, audit entry hashes, and
// governance policy bundle hashes all call Hash.
//
// Canonicalization is RFC 8785 (JSON Canonicalization Scheme), delegated to
// github.com/gowebpki/jcs rather than hand-rolled, because key ordering and
// number formatting are an interoperability contract, not an implementation
// detail: two kernels written in different languages must agree on these
// rules byte-for-byte or their logs cannot cross-verify each other.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// Marshal serializes v to its canonical JSON form: struct-tag-respecting
// json.Marshal of an NFC-normalized copy of v (so visually identical
// strings composed differently hash identically), followed by RFC 8785
// transformation for key ordering and number form.
func Marshal(v any) ([]byte, error) {
	normalized := normalizeStrings(reflect.ValueOf(v)).Interface()

	naive, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: marshal: %w", err)
	}

	canon, err := jcs.Transform(naive)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: jcs transform: %w", err)
	}
	return canon, nil
}

// Unmarshal decodes canonical (or any valid) JSON into a plain any value:
// map[string]any, []any, string, float64, bool, or nil. Callers that need
// to hand a domain value to something that only understands plain JSON
// shapes (for example a CEL program) can round-trip through Marshal then
// Unmarshal rather than reimplementing struct-tag-aware reflection.
func Unmarshal(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("canonicalize: unmarshal: %w", err)
	}
	return v, nil
}

// Hash returns the lowercase hex SHA-256 digest of v's canonical encoding.
func Hash(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash is Hash for call sites that treat an unhashable value as a
// programmer error (the kernel's error taxonomy panics only here: a
// domain State or Action that cannot be canonically serialized is a
// contract violation of the domain type, not a runtime condition).
func MustHash(v any) string {
	h, err := Hash(v)
	if err != nil {
		panic(&UnhashableValueError{Value: v, Cause: err})
	}
	return h
}

// UnhashableValueError is the panic value raised by MustHash.
type UnhashableValueError struct {
	Value any
	Cause error
}

func (e *UnhashableValueError) Error() string {
	return fmt.Sprintf("canonicalize: value of type %T cannot be canonically hashed: %v", e.Value, e.Cause)
}

func (e *UnhashableValueError) Unwrap() error { return e.Cause }

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// normalizeStrings walks v and returns a copy with every string value
// (directly, or nested in structs/maps/slices) normalized to Unicode NFC.
// Types implementing json.Marshaler are left untouched: their wire form is
// opaque, and json.Marshal will invoke the method directly regardless.
func normalizeStrings(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.String:
		out := reflect.New(v.Type()).Elem()
		out.SetString(norm.NFC.String(v.String()))
		return out

	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(coerce(normalizeStrings(v.Elem()), v.Type().Elem()))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		return normalizeStrings(v.Elem())

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(coerce(normalizeStrings(v.Index(i)), v.Type().Elem()))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(coerce(normalizeStrings(v.Index(i)), v.Type().Elem()))
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for _, key := range v.MapKeys() {
			nk := coerce(normalizeStrings(key), v.Type().Key())
			nv := coerce(normalizeStrings(v.MapIndex(key)), v.Type().Elem())
			out.SetMapIndex(nk, nv)
		}
		return out

	case reflect.Struct:
		if v.Type().Implements(jsonMarshalerType) {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if field.PkgPath != "" { // unexported
				continue
			}
			out.Field(i).Set(coerce(normalizeStrings(v.Field(i)), field.Type))
		}
		return out

	default:
		return v
	}
}

// coerce re-asserts the concrete target type after a recursive call may
// have widened a value through an interface-typed branch.
func coerce(v reflect.Value, target reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(target)
	}
	if v.Type() == target {
		return v
	}
	if v.Type().ConvertibleTo(target) {
		return v.Convert(target)
	}
	return v
}
