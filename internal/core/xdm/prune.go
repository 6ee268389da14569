package xdm

// Default is a fallback value for a target path left empty by the mapping.
type Default struct {
	Target string
	Value  interface{}
}

// ApplyDefaults sets every default whose target is missing, nil or "".
func ApplyDefaults(e Entity, defaults []Default) Entity {
	for _, d := range defaults {
		if v, ok := getPath(e, d.Target); ok && !isEmpty(v) {
			continue
		}
		setPath(e, d.Target, d.Value)
	}
	return e
}

// Prune removes keys holding nil or "" at every depth, descending into nested
// objects and into objects held by arrays. Objects emptied by pruning are left
// in place. Prune mutates and returns its argument.
func Prune(obj map[string]interface{}) map[string]interface{} {
	for k, v := range obj {
		pruneValue(v)
		if isEmpty(v) {
			delete(obj, k)
		}
	}
	return obj
}

func pruneValue(v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		Prune(val)
	case Entity:
		Prune(val)
	case []interface{}:
		for _, item := range val {
			pruneValue(item)
		}
	}
}

func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case *bool:
		return val == nil
	}
	return false
}
