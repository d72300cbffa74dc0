package claim

import (
	"encoding/json"
	"sort"
	"strconv"
)

// AppendPayload adds typed claim values to a token payload. A type seen more
// than once becomes an array, preserving insertion order.
func AppendPayload(payload map[string]any, claims ...Claim) error {
	for _, c := range claims {
		v, err := c.Typed()
		if err != nil {
			return err
		}
		existing, ok := payload[c.Type]
		if !ok {
			payload[c.Type] = v
			continue
		}
		if list, isList := existing.([]any); isList {
			payload[c.Type] = append(list, v)
			continue
		}
		payload[c.Type] = []any{existing, v}
	}
	return nil
}

// FromPayload flattens a decoded token payload back into claims, ordered by
// claim type. Arrays expand into one claim per element.
func FromPayload(payload map[string]any) []Claim {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Claim
	for _, k := range keys {
		switch v := payload[k].(type) {
		case []any:
			for _, item := range v {
				out = append(out, fromValue(k, item))
			}
		case []string:
			for _, item := range v {
				out = append(out, String(k, item))
			}
		default:
			out = append(out, fromValue(k, v))
		}
	}
	return out
}

func fromValue(typ string, v any) Claim {
	switch val := v.(type) {
	case string:
		return String(typ, val)
	case bool:
		return Bool(typ, val)
	case float64:
		return String(typ, strconv.FormatFloat(val, 'f', -1, 64))
	case json.Number:
		return String(typ, val.String())
	case nil:
		return String(typ, "")
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return String(typ, "")
		}
		return JSON(typ, string(raw))
	}
}
