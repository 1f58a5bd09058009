package security

import (
	"reflect"
	"regexp"
	"strings"
)

var (
	angleBracketPattern = regexp.MustCompile(`[<>]`)
	javascriptPattern   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// SanitizeString strips angle brackets, javascript: URIs and inline event-handler
// attributes, then trims surrounding whitespace. Removal repeats until the string
// is stable, so SanitizeString(SanitizeString(s)) == SanitizeString(s).
func SanitizeString(s string) string {
	for {
		next := angleBracketPattern.ReplaceAllString(s, "")
		next = javascriptPattern.ReplaceAllString(next, "")
		next = eventHandlerPattern.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == s {
			return s
		}
		s = next
	}
}

// Sanitize returns a copy of v with SanitizeString applied to every string it
// reaches through slices, arrays, map values, pointers, interfaces and exported
// struct fields. Named string types keep their type. Map keys, unexported
// fields and other kinds pass through unchanged. v must not contain cycles.
func Sanitize(v any) any {
	if v == nil {
		return nil
	}
	return sanitizeValue(reflect.ValueOf(v)).Interface()
}

func sanitizeValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.String:
		out := reflect.New(v.Type()).Elem()
		out.SetString(SanitizeString(v.String()))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(sanitizeValue(v.Elem()))
		return out

	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(sanitizeValue(v.Elem()))
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(sanitizeValue(v.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(sanitizeValue(v.Index(i)))
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), sanitizeValue(iter.Value()))
		}
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(sanitizeValue(v.Field(i)))
			}
		}
		return out

	default:
		return v
	}
}
