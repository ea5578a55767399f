package worker

// requireFields returns the subset of fields not present as keys in
// data, in the order given. A nil/empty result means every field was
// present.
func requireFields(data map[string]any, fields ...string) []string {
	var missing []string
	for _, f := range fields {
		if _, ok := data[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func stringField(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intField tolerates whatever concrete numeric type the msgpack codec
// decoded the field into.
func intField(data map[string]any, key string) (int, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
