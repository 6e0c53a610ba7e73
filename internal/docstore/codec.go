package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestampKey marks an encoded time in JSON document bodies.
const timestampKey = "__timestamp"

// toStore returns a copy of v with every time.Time replaced by enc(t).
func toStore(v any, enc func(time.Time) any) any {
	switch x := v.(type) {
	case time.Time:
		return enc(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return enc(*x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = toStore(e, enc)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = toStore(e, enc)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = toStore(e, enc)
		}
		return out
	default:
		return v
	}
}

func encodeJSONTime(t time.Time) any {
	return map[string]any{timestampKey: t.UnixMicro()}
}

func decodeJSONTime(v any) (time.Time, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return time.Time{}, false
	}
	switch n := m[timestampKey].(type) {
	case json.Number:
		us, err := n.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMicro(us).UTC(), true
	case float64:
		return time.UnixMicro(int64(n)).UTC(), true
	}
	return time.Time{}, false
}

// fromJSON restores times and turns json.Number into float64.
func fromJSON(v any) any {
	if t, ok := decodeJSONTime(v); ok {
		return t
	}
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = fromJSON(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = fromJSON(e)
		}
		return x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	}
	return v
}

func marshalFields(f Fields) ([]byte, error) {
	b, err := json.Marshal(toStore(f, encodeJSONTime))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func unmarshalFields(b []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if m == nil {
		m = Fields{}
	}
	return fromJSON(m).(map[string]any), nil
}

// normalizeValue passes v through the JSON codec so that comparisons see
// the same representation a stored document would.
func normalizeValue(v any) (any, error) {
	f, err := marshalFields(Fields{"v": v})
	if err != nil {
		return nil, err
	}
	back, err := unmarshalFields(f)
	if err != nil {
		return nil, err
	}
	return back["v"], nil
}
