// Package alu implements the RV32I arithmetic/logic/comparison unit.
package alu

import "rv32isim/isa"

// Execute performs a single ALU operation with wrapping signed
// arithmetic. Branch comparators return the complement of the taken
// predicate: 0 means the branch is taken (see isa.Controls.AluOp and
// the pipelined/single-cycle drivers, which test exec_result != 0
// uniformly as "not taken").
func Execute(op isa.AluOp, op1, op2 int32) int32 {
	switch op {
	case isa.AluADD:
		return op1 + op2
	case isa.AluSUB:
		return op1 - op2
	case isa.AluAND:
		return op1 & op2
	case isa.AluOR:
		return op1 | op2
	case isa.AluXOR:
		return op1 ^ op2
	case isa.AluBEQ:
		return b2i(op1 != op2)
	case isa.AluBNE:
		return b2i(op1 == op2)
	case isa.AluBLT:
		return b2i(op1 >= op2)
	case isa.AluBLTU:
		return b2i(uint32(op1) >= uint32(op2))
	case isa.AluBGE:
		return b2i(op1 < op2)
	case isa.AluBGEU:
		return b2i(uint32(op1) < uint32(op2))
	case isa.AluSLL:
		return op1 << (uint32(op2) % 32)
	case isa.AluSRL:
		return int32(uint32(op1) >> (uint32(op2) % 32))
	case isa.AluSRA:
		return op1 >> (uint32(op2) % 32)
	case isa.AluSLT:
		return b2i(op1 < op2)
	case isa.AluSLTU:
		return b2i(uint32(op1) < uint32(op2))
	default:
		return 0
	}
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
