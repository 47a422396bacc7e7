package pipeline

import (
	"fmt"

	"github.com/sarchlab/apexsim/insts"
)

// SuperscalarConfig sizes the out-of-order core.
type SuperscalarConfig struct {
	// IssueWidth is the maximum number of instructions issued per cycle.
	// Default is 3.
	IssueWidth int `json:"issue_width"`

	// CommitWidth is the maximum number of instructions committed per cycle.
	// Default is 1.
	CommitWidth int `json:"commit_width"`

	// IQSize is the issue queue capacity. Default is 16.
	IQSize int `json:"iq_size"`

	// ROBSize is the reorder buffer capacity. Default is 32.
	ROBSize int `json:"rob_size"`

	// PhysRegs is the number of physical registers. It must exceed the
	// number of architectural registers. Default is 32.
	PhysRegs int `json:"phys_regs"`
}

// DefaultSuperscalarConfig returns the APEX core configuration.
func DefaultSuperscalarConfig() SuperscalarConfig {
	return SuperscalarConfig{
		IssueWidth:  DefaultIssueWidth,
		CommitWidth: 1,
		IQSize:      16,
		ROBSize:     32,
		PhysRegs:    32,
	}
}

// Validate checks that every size is usable.
func (c SuperscalarConfig) Validate() error {
	if c.IssueWidth <= 0 {
		return fmt.Errorf("issue_width must be > 0")
	}
	if c.CommitWidth <= 0 {
		return fmt.Errorf("commit_width must be > 0")
	}
	if c.IQSize <= 0 {
		return fmt.Errorf("iq_size must be > 0")
	}
	if c.ROBSize <= 0 {
		return fmt.Errorf("rob_size must be > 0")
	}
	if archRegs := len(insts.ArchRegisterNames()); c.PhysRegs <= archRegs {
		return fmt.Errorf("phys_regs must be > %d", archRegs)
	}
	return nil
}

// WithSuperscalar sets the core configuration.
func WithSuperscalar(config SuperscalarConfig) PipelineOption {
	return func(p *Pipeline) {
		p.config = config
	}
}

// WithIssueWidth overrides only the issue width.
func WithIssueWidth(width int) PipelineOption {
	return func(p *Pipeline) {
		p.config.IssueWidth = width
	}
}
