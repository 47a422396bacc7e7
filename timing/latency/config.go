package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for the functional-unit classes.
// Defaults follow the APEX reference machine.
type TimingConfig struct {
	// ALULatency is the execution latency of the integer unit
	// (ADD, SUB, AND, OR, EX-OR, MOVC). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// MultiplyLatency is the execution latency of the multiply unit.
	// Default: 2 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// LoadStoreLatency is the address-generation latency of the load/store
	// unit. The memory access itself happens at commit. Default: 3 cycles.
	LoadStoreLatency uint64 `json:"load_store_latency"`

	// BranchLatency is the resolution latency of the branch unit.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// FrequencyMHz is the core clock used to convert cycles into simulated
	// time. Default: 1000 MHz.
	FrequencyMHz uint64 `json:"frequency_mhz"`
}

// DefaultTimingConfig returns a TimingConfig with APEX default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:       1,
		MultiplyLatency:  2,
		LoadStoreLatency: 3,
		BranchLatency:    1,
		FrequencyMHz:     1000,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.LoadStoreLatency == 0 {
		return fmt.Errorf("load_store_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.FrequencyMHz == 0 {
		return fmt.Errorf("frequency_mhz must be > 0")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
