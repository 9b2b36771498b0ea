package kitchen

// Bag is a configuration mapping from string keys to scalars, lists and nested bags.
type Bag map[string]interface{}

// Merge returns a new bag with the keys of each overlay applied in order.
// Nested maps are merged recursively; every other value is replaced.
func (b Bag) Merge(overlays ...Bag) Bag {
	out := Bag{}
	mergeInto(out, b)
	for _, o := range overlays {
		mergeInto(out, o)
	}
	return out
}

// String returns the value of key as a string, or "" when unset or not a string.
func (b Bag) String(key string) string {
	if s, ok := b[key].(string); ok {
		return s
	}
	return ""
}

func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(dst[k])
		if srcIsMap && dstIsMap {
			merged := map[string]interface{}{}
			mergeInto(merged, dstMap)
			mergeInto(merged, srcMap)
			dst[k] = merged
			continue
		}
		if srcIsMap {
			cp := map[string]interface{}{}
			mergeInto(cp, srcMap)
			dst[k] = cp
			continue
		}
		dst[k] = v
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case Bag:
		return m, true
	case map[string]interface{}:
		return m, true
	default:
		return nil, false
	}
}
