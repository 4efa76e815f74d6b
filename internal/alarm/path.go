package alarm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Metric path grammar, first match wins:
//
//  1. indexed:  array[key=value].field  — select the element of the array
//     whose key equals value, read field
//  2. simple:   section.field           — nested object lookup
//  3. JSON pointer: /a/b/0/c
//  4. bare key: field
//
// Unresolvable paths yield 0.0; resolution never fails.
var (
	indexedPathRe = regexp.MustCompile(`^(\w+)\[(\w+)=([^\]]+)\]\.(\w+)$`)
	simplePathRe  = regexp.MustCompile(`^(\w+)\.(\w+)$`)
)

// resolvePath resolves metricName inside a decoded snapshot. The second
// return reports whether a numeric leaf was found.
func resolvePath(snapshot map[string]any, metricName string) (float64, bool) {
	if m := indexedPathRe.FindStringSubmatch(metricName); m != nil {
		return resolveIndexed(snapshot, m[1], m[2], m[3], m[4])
	}
	if m := simplePathRe.FindStringSubmatch(metricName); m != nil {
		if section, ok := snapshot[m[1]].(map[string]any); ok {
			if v, ok := toFloat64(section[m[2]]); ok {
				return v, true
			}
		}
		return 0, false
	}
	if strings.HasPrefix(metricName, "/") {
		if v, ok := resolvePointer(snapshot, metricName); ok {
			return v, true
		}
	}
	if v, ok := toFloat64(snapshot[metricName]); ok {
		return v, true
	}
	return 0, false
}

func resolveIndexed(snapshot map[string]any, arrayKey, matchKey, matchValue, targetKey string) (float64, bool) {
	arr, ok := snapshot[arrayKey].([]any)
	if !ok {
		return 0, false
	}
	for _, item := range arr {
		elem, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if !scalarMatches(elem[matchKey], matchValue) {
			continue
		}
		if v, ok := toFloat64(elem[targetKey]); ok {
			return v, true
		}
		return 0, false
	}
	return 0, false
}

// scalarMatches compares an element field against the literal from the path.
// Strings compare directly; numbers compare against their shortest decimal
// form so "gpu[index=0].mem_usage" matches a numeric index 0.
func scalarMatches(v any, want string) bool {
	switch s := v.(type) {
	case string:
		return s == want
	case nil:
		return false
	}
	f, ok := toFloat64(v)
	if !ok {
		return false
	}
	if strconv.FormatFloat(f, 'f', -1, 64) == want {
		return true
	}
	wantF, err := strconv.ParseFloat(want, 64)
	return err == nil && wantF == f
}

// resolvePointer walks a JSON-pointer-style path ("/disk/0/usage_percent")
// through objects and arrays.
func resolvePointer(snapshot map[string]any, pointer string) (float64, bool) {
	var cur any = snapshot
	for _, token := range strings.Split(pointer, "/")[1:] {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return 0, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(node) {
				return 0, false
			}
			cur = node[idx]
		default:
			return 0, false
		}
	}
	return toFloat64(cur)
}

// toFloat64 coerces JSON scalar representations to float64.
func toFloat64(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case uint64:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
