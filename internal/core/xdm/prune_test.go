package xdm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrune(t *testing.T) {
	in := map[string]interface{}{
		"a": 1,
		"b": nil,
		"c": map[string]interface{}{
			"d": nil,
			"e": 2,
			"f": map[string]interface{}{"g": nil, "h": 3},
		},
	}

	want := map[string]interface{}{
		"a": 1,
		"c": map[string]interface{}{
			"e": 2,
			"f": map[string]interface{}{"h": 3},
		},
	}

	require.Equal(t, want, Prune(in))
}

func TestPrune_EmptyStringsAndFalseValues(t *testing.T) {
	in := map[string]interface{}{
		"empty":  "",
		"zero":   0,
		"false":  false,
		"spaces": " ",
	}

	require.Equal(t, map[string]interface{}{"zero": 0, "false": false, "spaces": " "}, Prune(in))
}

func TestPrune_KeepsEmptiedParents(t *testing.T) {
	in := map[string]interface{}{
		"outer": map[string]interface{}{
			"inner": map[string]interface{}{"x": ""},
		},
	}

	out := Prune(in)
	require.Equal(t, map[string]interface{}{
		"outer": map[string]interface{}{"inner": map[string]interface{}{}},
	}, out)
}

func TestPrune_DescendsIntoArrays(t *testing.T) {
	in := map[string]interface{}{
		"list": []interface{}{
			map[string]interface{}{"keep": "v", "drop": ""},
			"scalar",
			nil,
		},
	}

	out := Prune(in)
	list := out["list"].([]interface{})
	require.Len(t, list, 3, "array elements are never removed")
	require.Equal(t, map[string]interface{}{"keep": "v"}, list[0])
}

func TestPrune_Idempotent(t *testing.T) {
	raw := `{"a":"","b":{"c":null,"d":"x","e":{"f":""}},"g":[{"h":null,"i":1}],"j":true}`

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &first))
	once := Prune(first)
	onceJSON, err := json.Marshal(once)
	require.NoError(t, err)

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(onceJSON, &second))
	twice := Prune(second)
	twiceJSON, err := json.Marshal(twice)
	require.NoError(t, err)

	require.JSONEq(t, string(onceJSON), string(twiceJSON))
	require.JSONEq(t, `{"b":{"d":"x","e":{}},"g":[{"i":1}],"j":true}`, string(onceJSON))
}

func TestApplyDefaults(t *testing.T) {
	e := Entity{
		"billingAddress": map[string]interface{}{"countryCode": ""},
		"audit":          map[string]interface{}{"createdDate": "2024-01-01T00:00:00.000Z"},
	}

	ApplyDefaults(e, []Default{
		{"billingAddress.countryCode", "US"},
		{"audit.createdDate", EpochDefault},
		{"audit.lastUpdatedDate", EpochDefault},
		{"missing.parent.value", "x"},
	})

	require.Equal(t, "US", e["billingAddress"].(map[string]interface{})["countryCode"])
	audit := e["audit"].(map[string]interface{})
	require.Equal(t, "2024-01-01T00:00:00.000Z", audit["createdDate"])
	require.Equal(t, EpochDefault, audit["lastUpdatedDate"])
	v, ok := getPath(e, "missing.parent.value")
	require.True(t, ok)
	require.Equal(t, "x", v)
}
