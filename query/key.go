package query

import (
	"fmt"
	"sort"
	"strings"
)

// keySeparator joins key parts. A control character cannot occur in path
// params or filter values, so distinct part lists never collide.
const keySeparator = "\x1f"

// Key identifies one logical query: resource type plus every parameter that
// affects the result (path params, pagination, filters). Reads with equal
// logical parameters produce equal keys; any differing parameter produces a
// different key.
type Key struct {
	resource string
	encoded  string
}

// NewKey builds a key from the resource type and its ordered parameters.
func NewKey(resource string, parts ...any) Key {
	var b strings.Builder
	b.WriteString(resource)
	for _, part := range parts {
		b.WriteString(keySeparator)
		b.WriteString(encodePart(part))
	}
	return Key{resource: resource, encoded: b.String()}
}

// Resource returns the resource type the key addresses.
func (k Key) Resource() string {
	return k.resource
}

func (k Key) String() string {
	return k.encoded
}

func encodePart(part any) string {
	switch v := part.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]string:
		// deterministic filter encoding
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, key+"="+v[key])
		}
		return strings.Join(pairs, "&")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
