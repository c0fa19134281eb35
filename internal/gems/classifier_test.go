package gems

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"socketcraft.ai/internal/item"
)

func loot(subtype any) *item.Item {
	return &item.Item{Type: "loot", System: map[string]any{"type": map[string]any{"value": subtype}}}
}

func TestMatches(t *testing.T) {
	c := NewClassifier(Config{LootType: "loot", Subtypes: []string{"gem", " Rune "}})

	cases := []struct {
		name string
		doc  *item.Item
		want bool
	}{
		{"gem", loot("gem"), true},
		{"case and space", loot("  GEM "), true},
		{"second subtype", loot("rune"), true},
		{"other subtype", loot("art"), false},
		{"empty subtype", loot(""), false},
		{"non-string subtype", loot(3), false},
		{"missing subtype", &item.Item{Type: "loot"}, false},
		{"wrong type", &item.Item{Type: "weapon", System: map[string]any{"type": map[string]any{"value": "gem"}}}, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := c.Matches(tc.doc); got != tc.want {
			t.Fatalf("%s: Matches=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestEmptyConfigFallsBackToDefault(t *testing.T) {
	c := NewClassifier(Config{Subtypes: []string{"", "   "}})
	assert.Equal(t, []string{"gem"}, c.Subtypes())
	assert.True(t, c.Matches(loot("gem")))
	assert.False(t, c.Matches(loot("rune")))
}
