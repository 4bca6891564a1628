package jsonvalue

import (
	"strings"
	"time"
)

// foldKey makes "orgTotalTokensUsed", "org_total_tokens_used" and
// "Org-Total-Tokens-Used" compare equal.
func foldKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(key) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Walk visits every object member depth-first in document order. Returning
// false from fn stops the walk.
func (v Value) Walk(fn func(key string, val Value) bool) {
	v.walk(fn)
}

func (v Value) walk(fn func(string, Value) bool) bool {
	switch v.kind {
	case Object:
		for _, m := range v.members {
			if !fn(m.Key, m.Value) {
				return false
			}
			if !m.Value.walk(fn) {
				return false
			}
		}
	case Array:
		for _, item := range v.items {
			if !item.walk(fn) {
				return false
			}
		}
	}
	return true
}

// FindKey searches the whole tree for each candidate in turn and returns the
// first non-null match. Candidate order takes precedence over tree order.
func (v Value) FindKey(candidates ...string) (Value, bool) {
	return v.find(candidates, func(val Value) bool { return !val.IsNull() })
}

func (v Value) FindNumber(candidates ...string) (float64, bool) {
	got, ok := v.find(candidates, func(val Value) bool {
		_, ok := val.Number()
		return ok
	})
	if !ok {
		return 0, false
	}
	return got.Number()
}

func (v Value) FindTime(candidates ...string) (time.Time, bool) {
	got, ok := v.find(candidates, func(val Value) bool {
		_, ok := val.Time()
		return ok
	})
	if !ok {
		return time.Time{}, false
	}
	return got.Time()
}

func (v Value) FindText(candidates ...string) (string, bool) {
	got, ok := v.find(candidates, func(val Value) bool {
		_, ok := val.Text()
		return ok
	})
	if !ok {
		return "", false
	}
	return got.Text()
}

func (v Value) find(candidates []string, accept func(Value) bool) (Value, bool) {
	for _, candidate := range candidates {
		want := foldKey(candidate)
		var found Value
		var ok bool
		v.walk(func(key string, val Value) bool {
			if foldKey(key) == want && accept(val) {
				found, ok = val, true
				return false
			}
			return true
		})
		if ok {
			return found, true
		}
	}
	return Value{}, false
}
