package reflectdb

import (
	"fmt"
	"strconv"
)

// asInt64 coerces a value scanned back from the SQL collaborator (which may
// hand back int64, int, float64, string, or nil depending on driver and
// column type) into an int64, defaulting to 0 for nil/unparseable input.
func asInt64(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// asString coerces a scanned value to its string form; nil becomes "".
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// asBool coerces a scanned value to bool per the driver conventions seen
// across sqlite (int64 0/1), postgres/mysql (bool), and raw string input.
func asBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// parseIntValue implements the integer kind's "parse strings to integers,
// silently drop on parse failure" write rule. ok is false
// when v cannot be coerced at all, signaling the caller to drop the key.
func parseIntValue(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// cloneMap returns a shallow copy of m, so a hook can add bookkeeping keys
// (e.g. model_id) to a spec pulled from a shared list without mutating the
// caller's original map.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// parseBoolValue implements the boolean kind's write-time coercion rule:
// parse "true"/"false" strings, silently drop on failure.
func parseBoolValue(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, false
		}
		return b, true
	case int64:
		return t != 0, true
	case int:
		return t != 0, true
	default:
		return false, false
	}
}
