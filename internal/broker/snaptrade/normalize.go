package snaptrade

import "strings"

// Helpers for normalizing the aggregator's loose response shapes. Fields
// appear under varying names and casings between API revisions, and symbols
// arrive either as a plain string or as a nested universal_symbol object.
// All lookups are case-insensitive and take the first non-empty match.

func stringField(raw map[string]any, names ...string) string {
	for _, name := range names {
		for key, value := range raw {
			if !strings.EqualFold(key, name) {
				continue
			}
			if s, ok := value.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func numberField(raw map[string]any, names ...string) float64 {
	for _, name := range names {
		for key, value := range raw {
			if !strings.EqualFold(key, name) {
				continue
			}
			if f, ok := value.(float64); ok {
				return f
			}
		}
	}
	return 0
}

// nestedStringField walks a path of object keys and returns the string leaf.
func nestedStringField(raw map[string]any, path ...string) string {
	current := raw
	for i, name := range path {
		if i == len(path)-1 {
			return stringField(current, name)
		}
		next, ok := objectField(current, name)
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}

func nestedNumberField(raw map[string]any, path ...string) float64 {
	current := raw
	for i, name := range path {
		if i == len(path)-1 {
			return numberField(current, name)
		}
		next, ok := objectField(current, name)
		if !ok {
			return 0
		}
		current = next
	}
	return 0
}

func objectField(raw map[string]any, name string) (map[string]any, bool) {
	for key, value := range raw {
		if !strings.EqualFold(key, name) {
			continue
		}
		if obj, ok := value.(map[string]any); ok {
			return obj, true
		}
	}
	return nil, false
}

// symbolField extracts a ticker from the shapes the aggregator uses: a plain
// "symbol" string, a nested symbol object, or a universal_symbol object.
func symbolField(raw map[string]any) string {
	if s := stringField(raw, "symbol"); s != "" {
		return s
	}
	for _, container := range []string{"symbol", "universal_symbol", "universalSymbol"} {
		if obj, ok := objectField(raw, container); ok {
			if s := stringField(obj, "symbol", "raw_symbol", "ticker"); s != "" {
				return s
			}
			// one more level: {"symbol": {"symbol": {...}}}
			if inner, ok := objectField(obj, "symbol"); ok {
				if s := stringField(inner, "symbol", "raw_symbol", "ticker"); s != "" {
					return s
				}
			}
		}
	}
	return ""
}
