// Package pipeline implements the five-stage pipelined RV32I
// datapath: IF, ID, EX, MEM, WB, with hazard detection, forwarding,
// and branch prediction.
package pipeline

import "rv32isim/isa"

// IFID latches the instruction word fetched this cycle together with
// its PC, to be decoded next cycle.
type IFID struct {
	RawInst uint32
	PC      uint32
}

// IDEX latches a decoded instruction, its operand values, and (for a
// branch) its precomputed taken-target PC.
type IDEX struct {
	Inst    isa.Instruction
	PC      uint32
	Op1     int32
	Op2     int32
	Rs2Val  int32
	TakenPC *uint32
}

// EXMEM latches an executed instruction's ALU result, the register
// value to store (for a memory write), and its taken-target PC.
type EXMEM struct {
	Inst       isa.Instruction
	PC         uint32
	ExecResult int32
	StoreValue uint32
	TakenPC    *uint32
}

// MEMWB latches the value write-back will commit to the register
// file.
type MEMWB struct {
	Inst     isa.Instruction
	WbResult uint32
}

// State is the full set of pipeline latches; Run copies the next-cycle
// State wholesale over the current one at the end of each cycle.
type State struct {
	IFID  IFID
	IDEX  IDEX
	EXMEM EXMEM
	MEMWB MEMWB
}

// New returns a pipeline primed with bubbles in every latch.
func New() State {
	nop := isa.DefaultInstruction()
	return State{
		IFID:  IFID{RawInst: isa.NOP},
		IDEX:  IDEX{Inst: nop},
		EXMEM: EXMEM{Inst: nop},
		MEMWB: MEMWB{Inst: nop},
	}
}

// LoadHazard reports whether the instruction now in ID (decoded from
// IFID.RawInst) must stall because it reads a register the
// instruction currently in ID/EX (a load, or any multi-cycle-latency
// producer) has not yet written back.
func (s *State) LoadHazard() bool {
	consumer, err := isa.Decode(s.IFID.RawInst)
	if err != nil {
		return false
	}
	return isa.LoadHazard(s.IDEX.Inst, consumer)
}

// exHazard reports whether rs names the register EX/MEM is about to
// write, making its exec result the freshest available value.
func exHazard(rs *uint32, exMem EXMEM) bool {
	if rs == nil || *rs == 0 {
		return false
	}
	if !exMem.Inst.Controls.RegWrite {
		return false
	}
	rd := exMem.Inst.Attributes.Rd
	return rd != nil && *rd == *rs
}

// memHazard reports the same for MEM/WB, one cycle further back.
func memHazard(rs *uint32, memWb MEMWB) bool {
	if rs == nil || *rs == 0 {
		return false
	}
	if !memWb.Inst.Controls.RegWrite {
		return false
	}
	rd := memWb.Inst.Attributes.Rd
	return rd != nil && *rd == *rs
}

// forward resolves one EX-stage operand: EX/MEM forwarding takes
// priority over MEM/WB forwarding, which takes priority over the
// value latched at decode.
func forward(rs *uint32, latched int32, exMem EXMEM, memWb MEMWB) int32 {
	if exHazard(rs, exMem) {
		return exMem.ExecResult
	}
	if memHazard(rs, memWb) {
		return int32(memWb.WbResult)
	}
	return latched
}

// wbForward resolves a same-cycle WB-to-ID forward: if the
// instruction retiring this cycle writes the register ID is about to
// read, ID sees the fresh value instead of the stale register file
// entry.
func wbForward(rs *uint32, fileValue int32, memWb MEMWB) int32 {
	if rs == nil || *rs == 0 {
		return fileValue
	}
	if !memWb.Inst.Controls.RegWrite {
		return fileValue
	}
	rd := memWb.Inst.Attributes.Rd
	if rd != nil && *rd == *rs {
		return int32(memWb.WbResult)
	}
	return fileValue
}
