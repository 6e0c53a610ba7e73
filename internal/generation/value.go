package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type ValueKind int

const (
	NullValue ValueKind = iota
	BoolValue
	NumberValue
	StringValue
	ArrayValue
	ObjectValue
)

// Member is one object entry. Members keep document order.
type Member struct {
	Key   string
	Value *Value
}

// Value is a parsed JSON document that, unlike map[string]any, keeps the
// order of object keys.
type Value struct {
	Kind    ValueKind
	Bool    bool
	Number  json.Number
	String  string
	Items   []*Value
	Members []Member
}

// ParseValue parses raw. Empty input parses as null.
func ParseValue(raw []byte) (*Value, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &Value{Kind: NullValue}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			v := &Value{Kind: ArrayValue}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				v.Items = append(v.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		case '{':
			v := &Value{Kind: ObjectValue}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", keyTok)
				}
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				v.Members = append(v.Members, Member{Key: key, Value: item})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return &Value{Kind: StringValue, String: t}, nil
	case json.Number:
		return &Value{Kind: NumberValue, Number: t}, nil
	case bool:
		return &Value{Kind: BoolValue, Bool: t}, nil
	case nil:
		return &Value{Kind: NullValue}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Get returns the first member named key.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.Kind != ObjectValue {
		return nil, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Str returns the string payload of a string value.
func (v *Value) Str() (string, bool) {
	if v == nil || v.Kind != StringValue {
		return "", false
	}
	return v.String, true
}
