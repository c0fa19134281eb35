// Package gems decides which item documents count as socketable gems.
package gems

import (
	"strings"

	"socketcraft.ai/internal/config"
	"socketcraft.ai/internal/item"
)

type Config struct {
	LootType string
	Subtypes []string
}

// FromConfig extracts the classifier settings from the engine configuration.
func FromConfig(c config.Config) Config {
	return Config{LootType: c.LootType, Subtypes: c.GemSubtypes}
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	lootType string
	subtypes map[string]struct{}
}

func NewClassifier(cfg Config) *Classifier {
	c := &Classifier{
		lootType: normalize(cfg.LootType),
		subtypes: map[string]struct{}{},
	}
	if c.lootType == "" {
		c.lootType = config.DefaultLootType
	}
	for _, s := range cfg.Subtypes {
		if s = normalize(s); s != "" {
			c.subtypes[s] = struct{}{}
		}
	}
	if len(c.subtypes) == 0 {
		c.subtypes[config.DefaultGemSubtype] = struct{}{}
	}
	return c
}

// Matches reports whether doc is a loot item whose subtype is a configured gem subtype.
func (c *Classifier) Matches(doc *item.Item) bool {
	if doc == nil || normalize(doc.Type) != c.lootType {
		return false
	}
	st, ok := doc.Subtype()
	if !ok {
		return false
	}
	st = normalize(st)
	if st == "" {
		return false
	}
	_, ok = c.subtypes[st]
	return ok
}

// Subtypes returns the normalized gem subtypes in no particular order.
func (c *Classifier) Subtypes() []string {
	out := make([]string, 0, len(c.subtypes))
	for s := range c.subtypes {
		out = append(out, s)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
