package xdm

import (
	"fmt"
	"strings"

	"github.com/aevon-lab/profile-relay/internal/core/normalize"
)

// Properties is the loosely typed property bag of one input event.
type Properties map[string]interface{}

// Entity is a nested XDM object under construction.
type Entity map[string]interface{}

// Value derives one target value from the event properties. Returning nil or
// "" marks the field as absent; pruning removes it later.
type Value func(p Properties) interface{}

// Field binds a dotted target path to the value derivation that fills it.
type Field struct {
	Target string
	Value  Value
}

// Mapping is a declarative field table consumed by Build.
type Mapping []Field

// Build evaluates every field against p and assembles the nested entity.
// Fields are applied in table order; intermediate objects are created on demand.
func (m Mapping) Build(p Properties) Entity {
	if p == nil {
		p = Properties{}
	}
	out := Entity{}
	for _, f := range m {
		setPath(out, f.Target, f.Value(p))
	}
	return out
}

// Identity key constants shared by every CDIP source key.
const (
	SourceInstanceID = "CDIP-AEP"
	SourceType       = "CDIP"
)

// Str copies a property as a string when it is truthy, "" otherwise.
func Str(src string) Value {
	return func(p Properties) interface{} {
		v := p[src]
		if !normalize.Truthy(v) {
			return ""
		}
		return normalize.String(v)
	}
}

// Flag normalizes a property to a boolean whenever the key is present, even
// when its value is falsy.
func Flag(src string) Value {
	return func(p Properties) interface{} {
		v, ok := p[src]
		if !ok {
			return nil
		}
		return boolValue(v)
	}
}

// TruthyFlag normalizes a property to a boolean only when it is truthy, so an
// explicit false or 0 leaves the field absent.
func TruthyFlag(src string) Value {
	return func(p Properties) interface{} {
		v := p[src]
		if !normalize.Truthy(v) {
			return nil
		}
		return boolValue(v)
	}
}

// Date renders a truthy property as an ISO-8601 millisecond timestamp.
func Date(src string) Value {
	return func(p Properties) interface{} {
		v := p[src]
		if !normalize.Truthy(v) {
			return ""
		}
		return normalize.Date(v)
	}
}

// Const always yields v.
func Const(v interface{}) Value {
	return func(Properties) interface{} { return v }
}

// Key builds the four-part CDIP identity key around the id found in src.
// sourceKey is only populated when the id is present.
func Key(src string) Value {
	return func(p Properties) interface{} {
		id := ""
		if v := p[src]; normalize.Truthy(v) {
			id = normalize.String(v)
		}
		key := ""
		if id != "" {
			key = fmt.Sprintf("%s@%s.%s", id, SourceInstanceID, SourceType)
		}
		return map[string]interface{}{
			"sourceID":         id,
			"sourceInstanceID": SourceInstanceID,
			"sourceKey":        key,
			"sourceType":       SourceType,
		}
	}
}

// StateCode strips a three character country prefix from combined codes such
// as "US-CA". Two character codes pass through; any other length is absent.
func StateCode(src string) Value {
	return func(p Properties) interface{} {
		v := p[src]
		if !normalize.Truthy(v) {
			return nil
		}
		s := []rune(normalize.String(v))
		switch len(s) {
		case 5:
			return string(s[3:5])
		case 2:
			return string(s)
		}
		return nil
	}
}

// Objects yields an array holding one object per sub-mapping.
func Objects(items ...Mapping) Value {
	return func(p Properties) interface{} {
		out := make([]interface{}, 0, len(items))
		for _, m := range items {
			out = append(out, map[string]interface{}(m.Build(p)))
		}
		return out
	}
}

func boolValue(v interface{}) interface{} {
	if b := normalize.Boolean(v); b != nil {
		return *b
	}
	return nil
}

// setPath assigns v at a dotted path, creating intermediate objects.
func setPath(root map[string]interface{}, path string, v interface{}) {
	parts := strings.Split(path, ".")
	node := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = v
}

// getPath reads the value at a dotted path. Missing intermediates yield nil.
func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	node := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]interface{})
		if !ok {
			return nil, false
		}
		node = next
	}
	v, ok := node[parts[len(parts)-1]]
	return v, ok
}
