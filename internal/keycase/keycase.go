// Package keycase converts map keys between the wire's snake_case and the
// client's camelCase. Conversion is recursive over maps and slices; values
// and non-container scalars pass through untouched.
package keycase

import "strings"

// ToCamel rewrites every map key in v from snake_case to camelCase.
func ToCamel(v any) any {
	return walk(v, camelKey)
}

// ToSnake rewrites every map key in v from camelCase to snake_case.
func ToSnake(v any) any {
	return walk(v, snakeKey)
}

// walk recurses into maps and slices, applying fn to each map key.
// Wire payloads are finite trees, so no cycle detection is needed.
func walk(v any, fn func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fn(k)] = walk(val, fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = walk(el, fn)
		}
		return out
	default:
		return v
	}
}

func camelKey(k string) string {
	if !strings.Contains(k, "_") {
		return k
	}
	parts := strings.Split(k, "_")
	var b strings.Builder
	b.Grow(len(k))
	wrote := false
	for _, p := range parts {
		if p == "" {
			continue
		}
		if !wrote {
			b.WriteString(p)
			wrote = true
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func snakeKey(k string) string {
	var b strings.Builder
	b.Grow(len(k) + 4)
	for i, r := range k {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
