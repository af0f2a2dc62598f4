package pipeline

import (
	"rv32isim/cpu"
	"rv32isim/hierarchy"
	"rv32isim/isa"
	"rv32isim/predictor"
	"rv32isim/simerr"
	"rv32isim/stage"
	"rv32isim/syscall"
)

// Run drives the five-stage pipeline until the guest program issues
// an exit syscall, returning the PC at which it exited.
func Run(state *cpu.State, mem *hierarchy.Hierarchy, pred *predictor.Predictor, io syscall.IO) (uint32, error) {
	current := New()
	predictedBranchTaken := false

	for {
		if state.StackOverflow() {
			return 0, simerr.NewExecutionError(state.PC.Read(), "stack overflow")
		}
		if state.Policy.MaxCycles > 0 && uint64(state.History.CycleCount) >= state.Policy.MaxCycles {
			return 0, simerr.NewExecutionError(state.PC.Read(), "exceeded maximum cycle count")
		}
		state.UpdateCycleCount(1)

		next := current
		// A word that fails to decode in ID is held here: it is reported
		// only if it is neither squashed nor preceded by the exit ECALL.
		var decodeErr error

		if current.LoadHazard() {
			next.IDEX = IDEX{Inst: isa.DefaultInstruction(), PC: current.IDEX.PC}
			state.UpdateInstCount(-1)
		} else {
			pcThisFetch := state.PC.Read()
			raw, stall, err := stage.Fetch(pcThisFetch, mem)
			if err != nil {
				return 0, err
			}
			state.History.MemStallCount += stall
			state.PC.Write(pcThisFetch + 4)
			next.IFID = IFID{RawInst: raw, PC: pcThisFetch}

			inst, err := stage.Decode(current.IFID.RawInst)
			if err != nil {
				decodeErr = err
				inst = isa.DefaultInstruction()
			}
			rs1 := inst.Attributes.Rs1
			rs2 := inst.Attributes.Rs2

			op1 := state.ReadReg(inst.Attributes.RegOrZero(rs1))
			op1 = wbForward(rs1, op1, current.MEMWB)

			rs2Val := state.ReadReg(inst.Attributes.RegOrZero(rs2))
			rs2Val = wbForward(rs2, rs2Val, current.MEMWB)

			var op2 int32
			if inst.Controls.AluSrc == isa.AluSrcImm {
				op2 = int32(inst.Attributes.RegOrZero(inst.Attributes.Imm))
			} else {
				op2 = rs2Val
			}

			var takenPC *uint32
			if inst.Opcode == isa.Branch {
				imm := inst.Attributes.RegOrZero(inst.Attributes.Imm)
				t := uint32(int32(current.IFID.PC) + int32(imm))
				takenPC = &t
			}

			next.IDEX = IDEX{Inst: inst, PC: current.IFID.PC, Op1: op1, Op2: op2, Rs2Val: rs2Val, TakenPC: takenPC}
		}

		// EX
		exInst := current.IDEX.Inst
		exOp1 := forward(exInst.Attributes.Rs1, current.IDEX.Op1, current.EXMEM, current.MEMWB)
		var exOp2 int32
		if exInst.Controls.AluSrc == isa.AluSrcImm {
			exOp2 = current.IDEX.Op2
		} else {
			exOp2 = forward(exInst.Attributes.Rs2, current.IDEX.Op2, current.EXMEM, current.MEMWB)
		}
		storeValue := forward(exInst.Attributes.Rs2, current.IDEX.Rs2Val, current.EXMEM, current.MEMWB)

		execResult, err := stage.Execute(state, exInst, exOp1, exOp2, int32(current.IDEX.PC), mem, io)
		if err != nil {
			return 0, err
		}
		state.UpdateInstCount(1)
		next.EXMEM = EXMEM{Inst: exInst, PC: current.IDEX.PC, ExecResult: execResult, StoreValue: uint32(storeValue), TakenPC: current.IDEX.TakenPC}

		// MEM
		memInst := current.EXMEM.Inst
		wbResult, stall, err := stage.MemoryAccess(memInst, current.EXMEM.ExecResult, current.EXMEM.StoreValue, current.EXMEM.PC, mem)
		if err != nil {
			return 0, err
		}
		state.History.MemStallCount += stall
		next.MEMWB = MEMWB{Inst: memInst, WbResult: wbResult}

		// WB
		stage.WriteBack(state, current.MEMWB.Inst, current.MEMWB.WbResult)

		if next.EXMEM.Inst.Opcode == isa.System && exOp2 == syscall.Exit {
			return next.EXMEM.PC, nil
		}

		if exInst.Controls.Branch {
			execNotTaken := exInst.Opcode == isa.Branch && execResult != 0
			branchTaken := !execNotTaken

			var actualNewPC uint32
			switch exInst.Opcode {
			case isa.Jalr:
				actualNewPC = uint32(execResult) &^ 1
			case isa.Branch:
				if branchTaken {
					if current.IDEX.TakenPC != nil {
						actualNewPC = *current.IDEX.TakenPC
					}
				} else {
					actualNewPC = current.IDEX.PC + 4
				}
			default:
				actualNewPC = uint32(int32(current.IDEX.PC) + int32(exInst.Attributes.RegOrZero(exInst.Attributes.Imm)))
			}

			doJump := true
			if exInst.Opcode == isa.Branch {
				pred.Update(current.IDEX.PC, branchTaken)
				if branchTaken == predictedBranchTaken {
					doJump = false
				}
			}

			if doJump {
				state.PC.Write(actualNewPC)
				next.IFID.RawInst = isa.NOP
				next.IDEX.Inst = isa.DefaultInstruction()
				state.UpdateInstCount(-2)
				decodeErr = nil
			}
		}

		if decodeErr != nil {
			return 0, decodeErr
		}

		predictedBranchTaken = false
		if next.IDEX.Inst.Opcode == isa.Branch {
			if pred.Predict(next.IDEX.PC) {
				if next.IDEX.TakenPC != nil {
					state.PC.Write(*next.IDEX.TakenPC)
				}
				next.IFID.RawInst = isa.NOP
				state.UpdateInstCount(-1)
				predictedBranchTaken = true
			}
		}

		current = next
	}
}
