package filters

import (
	"reflect"
	"sort"
	"strings"
)

// InArray reports whether value is in list. It walks one slot past the end of
// the list; that slot and nil entries are treated as undefined holes.
func InArray(value any, list []any) bool {
	for i := 0; i <= len(list); i++ {
		var item any
		if i < len(list) {
			item = list[i]
		}
		if item == nil {
			continue
		}
		if looseEqual(item, value) {
			return true
		}
	}
	return false
}

func looseEqual(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || tb == nil || ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// IsObjectEmpty is false only for a non-empty map, slice or array.
func IsObjectEmpty(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return true
}

// CheckObjectKeys verifies that every key of obj is in allowed. With identical
// set, the key counts must also match; a count mismatch fails without
// reporting keys. The returned keys are sorted.
func CheckObjectKeys(allowed []string, obj map[string]any, identical bool) (bool, []string) {
	if identical && len(obj) != len(allowed) {
		return false, nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	allowedAny := stringsToAny(allowed)
	ok := true
	var notFound []string
	for _, k := range keys {
		if !InArray(k, allowedAny) {
			ok = false
			notFound = append(notFound, k)
		}
	}
	return ok, notFound
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`)

// EscapeString trims value and escapes LIKE wildcards.
func EscapeString(value string) string {
	return likeEscaper.Replace(strings.TrimSpace(value))
}
