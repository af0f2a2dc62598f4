// Package cpu holds the RV32I register file, execution policy, and
// the running history (cycle/instruction counts, memory stalls) that
// feed the CPI and AMAT reports.
package cpu

import "rv32isim/predictor"

// Implementation selects which datapath drives the CPU.
type Implementation uint8

const (
	Pipelined Implementation = iota
	SingleCycle
)

// Register is a single 32-bit general-purpose or program-counter register.
type Register struct {
	data uint32
}

func NewRegister(data uint32) Register { return Register{data: data} }

func (r Register) Read() uint32 { return r.data }

func (r *Register) Write(value uint32) { r.data = value }

// Policy configures how a run behaves: which datapath, which branch
// heuristic, whether to trace verbosely, and whether to report history.
type Policy struct {
	Verbose   bool
	Implement Implementation
	History   bool
	Heuristic predictor.Heuristic
	MaxCycles uint64
}

// History accumulates the counters a run reports at termination.
type History struct {
	CycleCount         int32
	MemStallCount      int32
	MemStallWorstCount int32
	InstCount          int32
}

// State is the full architectural state of the simulated CPU: 32
// general-purpose registers, PC, stack bounds, policy, and history.
type State struct {
	StackBase uint32
	StackSize uint32
	PC        Register
	GPR       [32]Register

	Policy  Policy
	History History
}

// New creates a CPU with all registers zeroed under the given policy.
func New(policy Policy) *State {
	return &State{Policy: policy}
}

// StackOverflow reports whether sp has dropped below the guarded
// region (stack_base - stack_size).
func (s *State) StackOverflow() bool {
	return s.GPR[2].Read() < s.StackBase-s.StackSize
}

func (s *State) UpdateCycleCount(delta int32) { s.History.CycleCount += delta }
func (s *State) UpdateInstCount(delta int32)   { s.History.InstCount += delta }

// ReadReg returns the value of register index i; x0 always reads 0
// because writes to it are suppressed at write-back.
func (s *State) ReadReg(i uint32) int32 {
	return int32(s.GPR[i].Read())
}

// WriteReg writes value to register i unless i is x0.
func (s *State) WriteReg(i uint32, value uint32) {
	if i == 0 {
		return
	}
	s.GPR[i].Write(value)
}
