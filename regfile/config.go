// Package regfile compiles a declarative register file description
// into validated registers, elaborated field behaviors, and a
// transaction protocol engine.
package regfile

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config describes one register file.
type Config struct {
	Name string `json:"name"`

	// AddressWidth is the width of the word address in bits. Zero
	// selects the default of 32.
	AddressWidth int `json:"address-width,omitempty"`

	// BusWidth is the width of one bus word in bits, 32 or 64. Zero
	// selects 32.
	BusWidth int `json:"bus-width,omitempty"`

	// Optimize lets the rendered decoder assume that unmapped
	// addresses never occur.
	Optimize bool `json:"optimize,omitempty"`

	Registers []RegisterConfig `json:"registers"`
}

// RegisterConfig describes one register.
type RegisterConfig struct {
	Name string `json:"name"`

	// Address is the register's address pattern, in the usual
	// grammar: decimal, hex or binary with don't-care digits, and the
	// /size, |ignore and &care suffixes.
	Address string `json:"address"`

	// Endianness selects the word order of multi-word registers,
	// "little" (the default) or "big".
	Endianness string `json:"endianness,omitempty"`

	Fields []FieldConfig `json:"fields"`
}

// FieldConfig describes one field or a repeated array of fields.
type FieldConfig struct {
	Name string `json:"name"`

	// High and Low delimit the bit range within the register.
	High int `json:"high"`
	Low  int `json:"low"`

	// Behavior is the behavior kind, "control" when empty.
	Behavior string `json:"behavior,omitempty"`

	// Reset is the post-reset value for behaviors that store one.
	Reset uint64 `json:"reset,omitempty"`

	// Repeat expands the field into an array of Repeat copies, named
	// by index suffix.
	Repeat int `json:"repeat,omitempty"`

	// Stride is the bit distance between repeated copies. Zero packs
	// them back to back.
	Stride int `json:"stride,omitempty"`

	// Deny lists the protection sides the field rejects: "user",
	// "privileged", "secure", "nonsecure", "data", "instruction".
	Deny []string `json:"deny,omitempty"`
}

// LoadConfig reads a register file description from a JSON file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("regfile: %w", err)
	}
	var config Config
	if err := json.Unmarshal(raw, &config); err != nil {
		return Config{}, fmt.Errorf("regfile: cannot parse %s: %w", path, err)
	}
	return config, nil
}
