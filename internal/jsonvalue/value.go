// Package jsonvalue is an order-preserving JSON tree for payloads whose
// schema is not under our control. Lookups take ordered alias lists; the
// first alias that decodes wins.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/parsers"
)

type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "null"
}

type Member struct {
	Key   string
	Value Value
}

// Value is a tagged union over the six JSON kinds. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // string contents, or the literal of a number
	items   []Value
	members []Member
}

func NullValue() Value            { return Value{} }
func BoolValue(b bool) Value      { return Value{kind: Bool, boolean: b} }
func StringValue(s string) Value  { return Value{kind: String, text: s} }
func ArrayValue(v ...Value) Value { return Value{kind: Array, items: v} }
func ObjectValue(m ...Member) Value {
	return Value{kind: Object, members: m}
}
func NumberValue(f float64) Value {
	return Value{kind: Number, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Parse decodes data into a Value. Anything but exactly one JSON document is
// an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("jsonvalue: trailing data after document")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("jsonvalue: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return Value{kind: Number, text: t.String()}, nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("jsonvalue: %w", err)
			}
			return Value{kind: Array, items: items}, nil
		case '{':
			var members []Member
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("jsonvalue: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("jsonvalue: unexpected object key %v", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				members = append(members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("jsonvalue: %w", err)
			}
			return Value{kind: Object, members: members}, nil
		}
	}
	return Value{}, fmt.Errorf("jsonvalue: unexpected token %v", tok)
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == Null }
func (v Value) IsObject() bool { return v.kind == Object }
func (v Value) IsArray() bool  { return v.kind == Array }
func (v Value) Items() []Value { return v.items }
func (v Value) Members() []Member {
	return v.members
}

func (v Value) Keys() []string {
	return lo.Map(v.members, func(m Member, _ int) string { return m.Key })
}

// Get returns the first member named key of an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Path walks a dotted path; numeric segments index arrays.
func (v Value) Path(path string) (Value, bool) {
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch cur.kind {
		case Object:
			next, ok := cur.Get(seg)
			if !ok {
				return Value{}, false
			}
			cur = next
		case Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur.items) {
				return Value{}, false
			}
			cur = cur.items[idx]
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// Lookup returns the first alias present with a non-null value.
func (v Value) Lookup(aliases ...string) (Value, bool) {
	for _, alias := range aliases {
		if got, ok := v.Get(alias); ok && !got.IsNull() {
			return got, true
		}
	}
	return Value{}, false
}

// Number decodes JSON numbers and numeric strings.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case Number:
		f, err := strconv.ParseFloat(v.text, 64)
		return f, err == nil
	case String:
		return parsers.ParseNumber(v.text)
	}
	return 0, false
}

// Text renders scalars as trimmed strings. Blank strings are absent.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case String:
		s := strings.TrimSpace(v.text)
		return s, s != ""
	case Number:
		return v.text, true
	case Bool:
		return strconv.FormatBool(v.boolean), true
	}
	return "", false
}

func (v Value) Bool() (bool, bool) {
	switch v.kind {
	case Bool:
		return v.boolean, true
	case String:
		b, err := strconv.ParseBool(strings.TrimSpace(v.text))
		return b, err == nil
	case Number:
		f, ok := v.Number()
		return f != 0, ok
	}
	return false, false
}

// Time decodes epoch seconds or milliseconds (numbers or numeric strings)
// and the textual layouts parsers.ParseTimeString knows.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case Number:
		f, ok := v.Number()
		if !ok || f <= 0 {
			return time.Time{}, false
		}
		return core.EpochToDate(f), true
	case String:
		if t, ok := parsers.ParseTimeString(v.text); ok {
			return t, true
		}
		if f, ok := parsers.ParseNumber(v.text); ok && f > 0 {
			return core.EpochToDate(f), true
		}
	}
	return time.Time{}, false
}

// FirstNumber tries aliases in order; the first that decodes wins.
func (v Value) FirstNumber(aliases ...string) (float64, bool) {
	for _, alias := range aliases {
		if got, ok := v.Get(alias); ok {
			if f, ok := got.Number(); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// FirstNumberPtr is FirstNumber returning nil for "not provided".
func (v Value) FirstNumberPtr(aliases ...string) *float64 {
	if f, ok := v.FirstNumber(aliases...); ok {
		return &f
	}
	return nil
}

func (v Value) FirstText(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		if got, ok := v.Get(alias); ok {
			if s, ok := got.Text(); ok {
				return s, true
			}
		}
	}
	return "", false
}

func (v Value) FirstTime(aliases ...string) (time.Time, bool) {
	for _, alias := range aliases {
		if got, ok := v.Get(alias); ok {
			if t, ok := got.Time(); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func (v Value) FirstBool(aliases ...string) (bool, bool) {
	for _, alias := range aliases {
		if got, ok := v.Get(alias); ok {
			if b, ok := got.Bool(); ok {
				return b, true
			}
		}
	}
	return false, false
}

// MarshalJSON re-encodes the tree keeping member order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case Number:
		buf.WriteString(v.text)
	case String:
		b, err := json.Marshal(v.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// Preview is the compact encoding cut to at most max characters.
func (v Value) Preview(max int) string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	r := []rune(string(b))
	if len(r) > max {
		r = r[:max]
	}
	return string(r)
}
