// Package stage implements the primitive datapath kernels — fetch,
// decode, register read, execute, memory access, write-back — shared
// by both the pipelined and single-cycle drivers.
package stage

import (
	"rv32isim/alu"
	"rv32isim/cpu"
	"rv32isim/hierarchy"
	"rv32isim/isa"
	"rv32isim/simerr"
	"rv32isim/syscall"
)

// Fetch reads the 32-bit instruction word at pc.
func Fetch(pc uint32, mem *hierarchy.Hierarchy) (uint32, int32, error) {
	return mem.Get32(pc)
}

// Decode turns a raw word into a fully-attributed Instruction.
func Decode(raw uint32) (isa.Instruction, error) {
	return isa.Decode(raw)
}

// RegisterRead resolves op1/op2 from the register file, substituting
// the sign-extended immediate for op2 when the instruction's ALU
// source is Imm.
func RegisterRead(state *cpu.State, inst isa.Instruction) (op1, op2 int32) {
	op1 = state.ReadReg(inst.Attributes.RegOrZero(inst.Attributes.Rs1))
	if inst.Controls.AluSrc == isa.AluSrcImm {
		imm := inst.Attributes.RegOrZero(inst.Attributes.Imm)
		op2 = int32(imm)
	} else {
		op2 = state.ReadReg(inst.Attributes.RegOrZero(inst.Attributes.Rs2))
	}
	return op1, op2
}

// Execute runs the ALU (or, for SYSTEM instructions, the syscall
// bridge) and returns the raw execution result.
func Execute(state *cpu.State, inst isa.Instruction, op1, op2, pc int32, mem *hierarchy.Hierarchy, io syscall.IO) (int32, error) {
	if inst.Opcode == isa.System {
		return syscall.Call(op1, op2, mem, io)
	}
	return alu.Execute(inst.Controls.AluOp, op1, op2), nil
}

// MemoryAccess performs the instruction's load/store, if any, sized
// and signed/unsigned per its function, and computes the value that
// write-back will commit for non-memory instructions (LUI/AUIPC/
// JAL/JALR all bypass the ALU result here). storeValue is rs2's value,
// used only when the instruction is a store.
func MemoryAccess(inst isa.Instruction, execResult int32, storeValue uint32, pc uint32, mem *hierarchy.Hierarchy) (wbResult uint32, stall int32, err error) {
	addr := uint32(execResult)

	if inst.Controls.MemRead {
		var raw uint32
		switch inst.Controls.MemStep {
		case 1:
			v, s, e := mem.Get8(addr)
			raw, stall, err = uint32(v), s, e
		case 2:
			v, s, e := mem.Get16(addr)
			raw, stall, err = uint32(v), s, e
		case 4:
			v, s, e := mem.Get32(addr)
			raw, stall, err = uint32(v), s, e
		default:
			return 0, 0, simerr.NewExecutionError(pc, "invalid load width")
		}
		if err != nil {
			return 0, stall, err
		}
		return signOrZeroExtendLoad(inst.Function, raw), stall, nil
	}

	if inst.Controls.MemWrite {
		switch inst.Controls.MemStep {
		case 1:
			stall, err = mem.Set8(addr, byte(storeValue))
		case 2:
			stall, err = mem.Set16(addr, uint16(storeValue))
		case 4:
			stall, err = mem.Set32(addr, storeValue)
		default:
			return 0, 0, simerr.NewExecutionError(pc, "invalid store width")
		}
		if err != nil {
			return 0, stall, err
		}
		return uint32(execResult), stall, nil
	}

	switch inst.Opcode {
	case isa.Lui:
		return inst.Attributes.RegOrZero(inst.Attributes.Imm), 0, nil
	case isa.AuiPc:
		return uint32(int32(pc) + int32(inst.Attributes.RegOrZero(inst.Attributes.Imm))), 0, nil
	case isa.Jal, isa.Jalr:
		return pc + 4, 0, nil
	default:
		return uint32(execResult), 0, nil
	}
}

// signOrZeroExtendLoad applies the correct width/sign discrimination
// a load's funct3 encodes: LB/LH sign-extend, LBU/LHU/LW do not.
func signOrZeroExtendLoad(fn isa.Function, raw uint32) uint32 {
	switch fn {
	case isa.FnLB:
		return uint32(int32(int8(raw)))
	case isa.FnLH:
		return uint32(int32(int16(raw)))
	default:
		return raw
	}
}

// WriteBack commits wbResult to rd, unless the instruction does not
// write a register.
func WriteBack(state *cpu.State, inst isa.Instruction, wbResult uint32) {
	if !inst.Controls.RegWrite {
		return
	}
	rd := inst.Attributes.RegOrZero(inst.Attributes.Rd)
	state.WriteReg(rd, wbResult)
}
