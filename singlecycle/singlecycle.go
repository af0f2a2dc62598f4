// Package singlecycle implements the reference non-pipelined RV32I
// datapath: fetch, decode, register read, execute, memory access, and
// write-back all complete within a single cycle.
package singlecycle

import (
	"rv32isim/cpu"
	"rv32isim/hierarchy"
	"rv32isim/isa"
	"rv32isim/simerr"
	"rv32isim/stage"
	"rv32isim/syscall"
)

// Run drives the single-cycle datapath until the guest program issues
// an exit syscall, returning the PC at which it exited.
func Run(state *cpu.State, mem *hierarchy.Hierarchy, io syscall.IO) (uint32, error) {
	for {
		if state.StackOverflow() {
			return 0, simerr.NewExecutionError(state.PC.Read(), "stack overflow")
		}
		if state.Policy.MaxCycles > 0 && uint64(state.History.CycleCount) >= state.Policy.MaxCycles {
			return 0, simerr.NewExecutionError(state.PC.Read(), "exceeded maximum cycle count")
		}
		state.UpdateCycleCount(1)

		pc := state.PC.Read()
		state.PC.Write(pc + 4)

		raw, stall, err := stage.Fetch(pc, mem)
		if err != nil {
			return 0, err
		}
		state.History.MemStallCount += stall

		inst, err := stage.Decode(raw)
		if err != nil {
			return 0, err
		}

		op1, op2 := stage.RegisterRead(state, inst)

		execResult, err := stage.Execute(state, inst, op1, op2, int32(pc), mem, io)
		if err != nil {
			return 0, err
		}
		state.UpdateInstCount(1)

		if inst.Opcode == isa.System && op2 == syscall.Exit {
			return pc, nil
		}

		rs2Val := state.ReadReg(inst.Attributes.RegOrZero(inst.Attributes.Rs2))
		wbResult, stall2, err := stage.MemoryAccess(inst, execResult, uint32(rs2Val), pc, mem)
		if err != nil {
			return 0, err
		}
		state.History.MemStallCount += stall2

		stage.WriteBack(state, inst, wbResult)

		if inst.Controls.Branch {
			notTaken := inst.Opcode == isa.Branch && execResult != 0
			if !notTaken {
				var newPC uint32
				if inst.Opcode == isa.Jalr {
					newPC = uint32(execResult) &^ 1
				} else {
					newPC = uint32(int32(pc) + int32(inst.Attributes.RegOrZero(inst.Attributes.Imm)))
				}
				state.PC.Write(newPC)
			}
		}
	}
}
