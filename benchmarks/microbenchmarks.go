package benchmarks

import (
	"fmt"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/timing/core"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific core characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		mixedUnits(),
		memorySequential(),
		loopSimulation(),
		functionCalls(),
		branchTaken(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// memory traffic and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		memorySequential(),
		branchTaken(),
	}
}

// expectRegs checks committed register values.
func expectRegs(want map[string]int32) func(*core.Core) error {
	return func(c *core.Core) error {
		rf := c.Pipeline.RegisterFile()
		for name, v := range want {
			if got := rf.ArchValue(name); got != v {
				return fmt.Errorf("%s = %d, want %d", name, got, v)
			}
		}
		return nil
	}
}

// 1. Arithmetic Sequential - independent ALU operations
func arithmeticSequential() Benchmark {
	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "independent MOVC/ADD operations - measures ALU throughput",
		Source: `
MOVC R1,#1
MOVC R2,#2
MOVC R3,#3
MOVC R4,#4
ADD R5,R1,R1
ADD R6,R2,R2
ADD R7,R3,R3
ADD R8,R4,R4
ADD R9,R1,R2
ADD R10,R3,R4
HALT
`,
		Check: expectRegs(map[string]int32{"R5": 2, "R8": 8, "R9": 3, "R10": 7}),
	}
}

// 2. Dependency Chain - every ADD waits for the previous one
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "10 dependent ADDs - measures forwarding latency",
		Source: `
MOVC R1,#0
MOVC R2,#1
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
ADD R1,R1,R2
HALT
`,
		Check: expectRegs(map[string]int32{"R1": 10}),
	}
}

// 3. Mixed Units - independent work spread over the ALU and multiplier
func mixedUnits() Benchmark {
	return Benchmark{
		Name:        "mixed_units",
		Description: "interleaved MUL and ALU operations - measures out-of-order overlap",
		Source: `
MOVC R1,#3
MOVC R2,#5
MUL R3,R1,R2
ADD R4,R1,R2
MUL R5,R2,R2
SUB R6,R2,R1
MUL R7,R1,R1
AND R8,R1,R2
OR R9,R1,R2
EX-OR R10,R1,R2
HALT
`,
		Check: expectRegs(map[string]int32{
			"R3": 15, "R4": 8, "R5": 25, "R6": 2, "R7": 9, "R8": 1, "R9": 7, "R10": 6,
		}),
	}
}

// 4. Memory Sequential - stores then loads back
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "4 stores, 4 loads and a reduction - measures commit-time memory access",
		Setup: func(memory *emu.Memory) {
			_ = memory.WriteMem(16, 5)
		},
		Source: `
MOVC R1,#0
MOVC R2,#10
MOVC R3,#20
STORE R2,R1,#0
STORE R3,R1,#4
STORE R2,R1,#8
STORE R3,R1,#12
LOAD R4,R1,#0
LOAD R5,R1,#4
LOAD R6,R1,#8
LOAD R7,R1,#16
ADD R8,R4,R5
ADD R9,R6,R7
ADD R10,R8,R9
HALT
`,
		Check: func(c *core.Core) error {
			if err := expectRegs(map[string]int32{"R10": 45})(c); err != nil {
				return err
			}
			v, err := c.Memory().ReadMem(12)
			if err != nil {
				return err
			}
			if v != 20 {
				return fmt.Errorf("MEM[12] = %d, want 20", v)
			}
			return nil
		},
	}
}

// 5. Loop Simulation - counted loop closed by BNZ
func loopSimulation() Benchmark {
	return Benchmark{
		Name:        "loop_simulation",
		Description: "sum 1..10 in a BNZ loop - measures branch prediction and recovery",
		Source: `
MOVC R1,#10
MOVC R2,#0
MOVC R3,#1
ADD R2,R2,R1     ; loop body
SUB R1,R1,R3
BNZ #-8
HALT
`,
		Check: expectRegs(map[string]int32{"R1": 0, "R2": 55}),
	}
}

// 6. Function Calls - BAL to a subroutine and JUMP X back
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "two BAL/JUMP call-return pairs - measures target prediction",
		Source: `
MOVC R1,#4028
MOVC R6,#3
BAL R1,#0
BAL R1,#0
HALT
NOP
NOP
ADD R2,R2,R6     ; subroutine at 4028
JUMP X,#0
`,
		Check: expectRegs(map[string]int32{"R2": 6, "X": 4016}),
	}
}

// 7. Branch Taken - BZ/BNZ skipping over poisoned instructions
func branchTaken() Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "conditional branches reading the zero flag - measures flag tracking",
		Source: `
MOVC R1,#1
SUB R2,R1,R1
BZ #8
MOVC R3,#99
ADD R4,R1,R1
BNZ #8
MOVC R3,#98
SUB R5,R1,R1
BZ #8
MOVC R3,#97
HALT
`,
		Check: expectRegs(map[string]int32{"R3": 0, "R4": 2}),
	}
}
