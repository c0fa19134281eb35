package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNamespace     = "socketcraft"
	DefaultLootType      = "loot"
	DefaultGemSubtype    = "gem"
	DefaultMinSlotRole   = "GAMEMASTER"
	DefaultEmptySlotImg  = "icons/svg/hole.svg"
	DefaultEmptySlotName = "Empty"
)

type Config struct {
	// Namespace scopes every flag the engine writes on a host item.
	Namespace string `yaml:"namespace" validate:"required,alphanum"`

	LootType    string   `yaml:"loot_type" validate:"required"`
	GemSubtypes []string `yaml:"gem_subtypes"`

	// MinSlotRole gates adding and removing slots.
	MinSlotRole string `yaml:"min_slot_role" validate:"oneof=PLAYER TRUSTED ASSISTANT GAMEMASTER"`

	// ActivityItemTypes lists host item types that carry an activities collection.
	ActivityItemTypes []string `yaml:"activity_item_types" validate:"dive,required"`

	EmptySlotImg  string `yaml:"empty_slot_img" validate:"required"`
	EmptySlotName string `yaml:"empty_slot_name" validate:"required"`

	// MaxSlots caps the slot list length; 0 means unlimited.
	MaxSlots int `yaml:"max_slots" validate:"gte=0,lte=64"`
}

func Defaults() Config {
	return Config{
		Namespace:         DefaultNamespace,
		LootType:          DefaultLootType,
		GemSubtypes:       []string{DefaultGemSubtype},
		MinSlotRole:       DefaultMinSlotRole,
		ActivityItemTypes: []string{"weapon", "equipment", "consumable", "tool"},
		EmptySlotImg:      DefaultEmptySlotImg,
		EmptySlotName:     DefaultEmptySlotName,
	}
}

var validate = validator.New()

// Load reads a YAML config. Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config.yaml: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config.yaml: %w", err)
	}
	return c, nil
}

func (c Config) Validate() error {
	return validate.Struct(c)
}

func (c *Config) normalize() {
	c.Namespace = strings.TrimSpace(c.Namespace)
	c.LootType = strings.ToLower(strings.TrimSpace(c.LootType))
	c.MinSlotRole = strings.ToUpper(strings.TrimSpace(c.MinSlotRole))
	for i, t := range c.ActivityItemTypes {
		c.ActivityItemTypes[i] = strings.ToLower(strings.TrimSpace(t))
	}
}

// SupportsActivities reports whether host items of the given type carry activities.
func (c Config) SupportsActivities(itemType string) bool {
	itemType = strings.ToLower(strings.TrimSpace(itemType))
	for _, t := range c.ActivityItemTypes {
		if t == itemType {
			return true
		}
	}
	return false
}
