package gateway

import (
	"bytes"
	"encoding/json"
)

// CollectionKeys are the wrapper keys checked, in order, before the body
// itself is treated as the collection.
var CollectionKeys = []string{"data", "listings", "users", "items", "results"}

// collectionDepth allows one nested wrapper, as in {"data": {"data": [...]}}
const collectionDepth = 2

// UnwrapCollection extracts a JSON array from body. It never fails: an
// unrecognizable body yields an empty collection.
func UnwrapCollection(body []byte) []json.RawMessage {
	items, ok := unwrapCollection(body, collectionDepth)
	if !ok {
		return []json.RawMessage{}
	}
	return items
}

func unwrapCollection(raw []byte, depth int) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return items, true
	case '{':
		if depth == 0 {
			return nil, false
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		for _, key := range CollectionKeys {
			v, ok := obj[key]
			if !ok {
				continue
			}
			if items, ok := unwrapCollection(v, depth-1); ok {
				return items, true
			}
		}
	}
	return nil, false
}

// UnwrapObject extracts a single JSON object from body, checking keys in
// order and falling back to the body itself. A wrapper object whose value
// under a key is itself a wrapper is unwrapped once more.
func UnwrapObject(body []byte, keys ...string) (json.RawMessage, bool) {
	return unwrapObject(body, keys, collectionDepth)
}

func unwrapObject(raw []byte, keys []string, depth int) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}

	if depth > 0 {
		for _, key := range keys {
			v, ok := obj[key]
			if !ok {
				continue
			}
			if inner, ok := unwrapObject(v, keys, depth-1); ok {
				return inner, true
			}
		}
	}

	if isEnvelope(obj) {
		return nil, false
	}
	return json.RawMessage(raw), true
}

// isEnvelope reports whether obj looks like a status wrapper with no resource
// in it, e.g. {"status":"error","message":"..."}
func isEnvelope(obj map[string]json.RawMessage) bool {
	for key := range obj {
		switch key {
		case "status", "message", "success", "error":
		default:
			return false
		}
	}
	return true
}
