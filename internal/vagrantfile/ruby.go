package vagrantfile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var rubyEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "#", `\#`, "\n", `\n`, "\t", `\t`)

// rubyLiteral renders a configuration value as a Ruby expression.
func rubyLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return `"` + rubyEscaper.Replace(val) + `"`
	case bool:
		return strconv.FormatBool(val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = rubyLiteral(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []string:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = rubyLiteral(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]interface{}:
		if len(val) == 0 {
			return "{}"
		}
		return "{ " + rubyArgs(val) + " }"
	default:
		return rubyLiteral(fmt.Sprint(val))
	}
}

// rubyArgs renders a mapping as Ruby keyword arguments with sorted keys.
func rubyArgs(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = rubySymbolKey(k) + " " + rubyLiteral(m[k])
	}
	return strings.Join(parts, ", ")
}

func rubySymbolKey(k string) string {
	for _, r := range k {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return rubyLiteral(k) + ":"
		}
	}
	return k + ":"
}

// toString renders a scalar without Ruby quoting, for provider customize values.
func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
