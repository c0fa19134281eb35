package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socketcraft.ai/internal/item"
)

func decode(t *testing.T, s string) *item.Item {
	t.Helper()
	var it item.Item
	require.NoError(t, json.Unmarshal([]byte(s), &it))
	return &it
}

func TestFingerprint_IgnoresVolatileFieldsAndKeyOrder(t *testing.T) {
	a := decode(t, `{
		"_id":"aaa","name":"Ruby","type":"loot","img":"ruby.png",
		"system":{"quantity":3,"type":{"value":"gem","subtype":""},"price":{"value":50,"denomination":"gp"}},
		"sort":100,"folder":"f1","ownership":{"default":0},"_stats":{"createdTime":1}
	}`)
	b := decode(t, `{
		"type":"loot","img":"ruby.png","name":"Ruby",
		"system":{"price":{"denomination":"gp","value":50},"type":{"subtype":"","value":"gem"},"quantity":1}
	}`)

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.NotContains(t, fa, "quantity")
	assert.NotContains(t, fa, "aaa")
}

func TestFingerprint_ArraysKeepOrder(t *testing.T) {
	a := decode(t, `{"name":"Ruby","type":"loot","system":{"tags":["a","b"]}}`)
	b := decode(t, `{"name":"Ruby","type":"loot","system":{"tags":["b","a"]}}`)
	fa, _ := Fingerprint(a)
	fb, _ := Fingerprint(b)
	assert.NotEqual(t, fa, fb)
}

func TestFingerprint_ContentDifferences(t *testing.T) {
	a := decode(t, `{"name":"Ruby","type":"loot","effects":[{"name":"Fire","disabled":false,"transfer":true}]}`)
	b := decode(t, `{"name":"Ruby","type":"loot","effects":[{"name":"Ice","disabled":false,"transfer":true}]}`)
	fa, _ := Fingerprint(a)
	fb, _ := Fingerprint(b)
	assert.NotEqual(t, fa, fb)
}

func TestSameStack(t *testing.T) {
	plainA := decode(t, `{"_id":"1","name":"Ruby","type":"loot"}`)
	plainB := decode(t, `{"_id":"2","name":"Ruby","type":"loot","sort":5}`)
	other := decode(t, `{"name":"Opal","type":"loot"}`)
	taggedA := decode(t, `{"name":"Ruby","type":"loot","flags":{"core":{"sourceId":"Compendium.gems.ruby"}}}`)
	taggedDrift := decode(t, `{"name":"Ruby (old)","type":"loot","flags":{"core":{"sourceId":"Compendium.gems.ruby"}}}`)
	taggedOther := decode(t, `{"name":"Ruby","type":"loot","_stats":{"compendiumSource":"Compendium.gems.opal"}}`)

	cases := []struct {
		name string
		a, b *item.Item
		want bool
	}{
		{"fingerprint equal", plainA, plainB, true},
		{"fingerprint differs", plainA, other, false},
		{"tags equal despite drift", taggedA, taggedDrift, true},
		{"tags differ", taggedA, taggedOther, false},
		{"only one tagged", taggedA, plainA, false},
		{"only one tagged reversed", plainA, taggedA, false},
	}
	for _, tc := range cases {
		got, err := SameStack(tc.a, tc.b)
		require.NoError(t, err, tc.name)
		if got != tc.want {
			t.Fatalf("%s: SameStack=%v want %v", tc.name, got, tc.want)
		}
	}
}
