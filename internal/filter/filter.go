// Package filter encodes list filters into the opaque token carried by the
// "filter" query parameter and decodes them again on the server.
//
// A token is the base64 (standard alphabet) encoding of a JSON object whose
// keys are sorted and whose values are arrays of strings:
//
//	{"role_id":["2"]}  ->  eyJyb2xlX2lkIjpbIjIiXX0=
//
// The same logical filter always produces the same token, so tokens can be
// compared directly to decide whether a re-fetch is needed.
package filter

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Filter maps a field name to the values it must match.
type Filter map[string][]string

// Role is the field the registry filters users by.
const Role = "role_id"

// Encode returns the token for f. Empty value lists are dropped and an empty
// filter encodes to "".
func (f Filter) Encode() string {
	clean := f.normalized()
	if len(clean) == 0 {
		return ""
	}
	// encoding/json writes map keys in sorted order
	b, err := json.Marshal(clean)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Decode parses a token produced by Encode. An empty token yields an empty filter.
func Decode(token string) (Filter, error) {
	if token == "" {
		return Filter{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode filter token: %w", err)
	}
	var f Filter
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse filter token: %w", err)
	}
	return f.normalized(), nil
}

// Values returns the values for key, or nil.
func (f Filter) Values(key string) []string {
	return f[key]
}

// With returns a copy of f with key set to values.
func (f Filter) With(key string, values ...string) Filter {
	out := f.normalized()
	if out == nil {
		out = Filter{}
	}
	if len(values) == 0 {
		delete(out, key)
		return out
	}
	out[key] = slices.Clone(values)
	return out
}

// Keys returns the filter fields in sorted order.
func (f Filter) Keys() []string {
	return slices.Sorted(maps.Keys(f.normalized()))
}

func (f Filter) normalized() Filter {
	if len(f) == 0 {
		return nil
	}
	out := make(Filter, len(f))
	for k, v := range f {
		if len(v) == 0 {
			continue
		}
		out[k] = slices.Clone(v)
	}
	return out
}
