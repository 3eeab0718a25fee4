package domain

import (
	"encoding/json"
	"fmt"
)

// Filter is a metadata filter in the Pinecone operator style:
//
//	Filter{"category": {"$eq": "individual"}, "follower_count": {"$gte": 1000}}
//
// All fields must match (implicit AND).
type Filter map[string]Condition

// Condition maps an operator ($eq, $ne, $gt, $gte, $lt, $lte, $in, $nin) to its operand.
type Condition map[string]any

// Matches reports whether meta satisfies every condition in f.
// An unknown operator never matches.
func (f Filter) Matches(meta Metadata) bool {
	for field, cond := range f {
		value, ok := meta[field]
		for op, operand := range cond {
			if !ok {
				if op == "$ne" || op == "$nin" {
					continue
				}
				return false
			}
			if !evalOp(op, value, operand) {
				return false
			}
		}
	}
	return true
}

func evalOp(op string, value, operand any) bool {
	switch op {
	case "$eq":
		return equalValues(value, operand)
	case "$ne":
		return !equalValues(value, operand)
	case "$gt", "$gte", "$lt", "$lte":
		v, ok1 := toFloat(value)
		o, ok2 := toFloat(operand)
		if !ok1 || !ok2 {
			return false
		}
		switch op {
		case "$gt":
			return v > o
		case "$gte":
			return v >= o
		case "$lt":
			return v < o
		default:
			return v <= o
		}
	case "$in":
		return inList(value, operand)
	case "$nin":
		return !inList(value, operand)
	}
	return false
}

func inList(value, operand any) bool {
	switch list := operand.(type) {
	case []any:
		for _, item := range list {
			if equalValues(value, item) {
				return true
			}
		}
	case []string:
		for _, item := range list {
			if equalValues(value, item) {
				return true
			}
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// IntValue reads a numeric metadata field, defaulting to 0.
func (m Metadata) IntValue(key string) int {
	f, _ := toFloat(m[key])
	return int(f)
}

// StringValue reads a string metadata field, defaulting to "".
func (m Metadata) StringValue(key string) string {
	s, _ := m[key].(string)
	return s
}

// StringsValue reads a list-of-strings metadata field. JSON round trips turn
// []string into []any, so both shapes are accepted.
func (m Metadata) StringsValue(key string) []string {
	switch list := m[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone returns a shallow copy of m.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
