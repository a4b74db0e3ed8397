package k8s

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// These helpers wrap unstructured's Nested* accessors to provide the
// null-safe path reads this package needs when walking optional fields.
// They operate on plain map[string]interface{} rather than
// *unstructured.Unstructured so they compose naturally while walking
// nested structures (volumes, containers, env) that are themselves
// plain maps once extracted from a parent object.

func mapOf(obj *unstructured.Unstructured) map[string]interface{} {
	if obj == nil {
		return nil
	}
	return obj.Object
}

// nestedString reads a string at path, returning "" if the path is
// missing, the wrong type, or m is nil.
func nestedString(m map[string]interface{}, path ...string) string {
	if m == nil {
		return ""
	}
	v, found, err := unstructured.NestedString(m, path...)
	if err != nil || !found {
		return ""
	}
	return v
}

// nestedStringMap reads a map[string]string at path, returning nil if
// absent.
func nestedStringMap(m map[string]interface{}, path ...string) map[string]string {
	if m == nil {
		return nil
	}
	v, found, err := unstructured.NestedStringMap(m, path...)
	if err != nil || !found {
		return nil
	}
	return v
}

// nestedSlice reads a []interface{} at path, returning nil if absent.
func nestedSlice(m map[string]interface{}, path ...string) []interface{} {
	if m == nil {
		return nil
	}
	v, found, err := unstructured.NestedSlice(m, path...)
	if err != nil || !found {
		return nil
	}
	return v
}

// asMap type-asserts a slice element (or nested field) into a map,
// returning nil rather than panicking on malformed input.
func asMap(v interface{}) map[string]interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return m
}

// stringField reads a string field off an already-asserted map,
// returning "" if absent or the wrong type.
func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return v
}

// uid returns an object's UID as a string, or "" if the object is nil or
// carries no UID.
func uid(obj *unstructured.Unstructured) string {
	if obj == nil {
		return ""
	}
	return string(obj.GetUID())
}
