package store

import (
	"fmt"
	"reflect"
)

// Marker is the sentinel select(otherSlice[, projector]) produces: a lazy,
// cached reference to another slice's current value. Resolution happens
// the first time the tree it's embedded in is walked by ResolveMarkers,
// not at select() call time.
type Marker struct {
	resolve  func() any
	resolved bool
	value    any
}

// Select produces a Marker referencing slice's method struct, optionally
// transformed by projector. Reading the marker (via ResolveMarkers) later
// returns the live value — not a snapshot taken now.
func Select[M any](slice *Slice[M], projector ...func(M) any) *Marker {
	return &Marker{
		resolve: func() any {
			v := slice.Methods()
			if len(projector) > 0 {
				return projector[0](v)
			}
			return v
		},
	}
}

// Value resolves and caches the marker's referent. Later calls return the
// same cached value without re-reading the referenced slice, per spec.md
// §4.6 "Resolution is cached per-marker."
func (m *Marker) Value() any {
	if !m.resolved {
		m.value = m.resolve()
		m.resolved = true
	}
	return m.value
}

// ResolveMarkers walks value — a tree of maps, slices and structs
// returned from a slice body — replacing every *Marker it finds with its
// resolved value, recursively (a resolved marker may itself contain
// markers, per spec.md §4.6 "Resolution is recursive"). Non-container,
// non-marker values pass through unchanged. Reflection is the only way to
// walk an arbitrarily-shaped any-typed tree generically; no pack library
// offers this for arbitrary Go values.
func ResolveMarkers(value any) any {
	return resolveMarkers(reflect.ValueOf(value))
}

func resolveMarkers(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	if m, ok := v.Interface().(*Marker); ok {
		return resolveMarkers(reflect.ValueOf(m.Value()))
	}

	switch v.Kind() {
	case reflect.Interface:
		return resolveMarkers(v.Elem())

	case reflect.Map:
		out := make(map[string]any, v.Len())
		for _, k := range v.MapKeys() {
			out[keyString(k)] = resolveMarkers(v.MapIndex(k))
		}
		return out

	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = resolveMarkers(v.Index(i))
		}
		return out

	case reflect.Struct:
		t := v.Type()
		out := make(map[string]any, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			out[f.Name] = resolveMarkers(v.Field(i))
		}
		return out

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		return resolveMarkers(v.Elem())

	default:
		return v.Interface()
	}
}

func keyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}
