package gateway

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Param is one query string entry. A nil Value, including a typed nil
// pointer, is omitted. Non-nil pointers are dereferenced.
type Param struct {
	Key   string
	Value any
}

// Query is an ordered list of query parameters; encoding preserves the
// order entries were added in.
type Query []Param

// Add appends key=value and returns the extended query.
func (q Query) Add(key string, value any) Query {
	return append(q, Param{Key: key, Value: value})
}

// Encode renders the query with standard URL query escaping. Entries with an
// absent value are skipped.
func (q Query) Encode() string {
	var b strings.Builder
	for _, p := range q {
		v, ok := present(p.Value)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(fmt.Sprint(v)))
	}
	return b.String()
}

// present unwraps pointers and reports whether v holds a value.
func present(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil, false
		}
	}
	return rv.Interface(), true
}

// BuildPath appends the encoded query to path. An empty query leaves path
// untouched.
func BuildPath(path string, q Query) string {
	enc := q.Encode()
	if enc == "" {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + enc
	}
	return path + "?" + enc
}
