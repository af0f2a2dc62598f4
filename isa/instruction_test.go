package isa_test

import (
	"testing"

	"rv32isim/isa"
)

// encR builds an R-type word: funct7 rs2 rs1 funct3 rd opcode.
func encR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// encI builds an I-type word: imm[11:0] rs1 funct3 rd opcode.
func encI(imm, rs1, funct3, rd, opcode uint32) uint32 {
	return (imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func TestDecodeTypeR_Add(t *testing.T) {
	// add x3, x1, x2
	raw := encR(0, 2, 1, 0, 3, 0x33)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.Op {
		t.Errorf("expected Op opcode, got %v", inst.Opcode)
	}
	if inst.Format != isa.FormatR {
		t.Errorf("expected FormatR, got %v", inst.Format)
	}
	if got := inst.Attributes.RegOrZero(inst.Attributes.Rd); got != 3 {
		t.Errorf("expected rd=3, got %d", got)
	}
	if got := inst.Attributes.RegOrZero(inst.Attributes.Rs1); got != 1 {
		t.Errorf("expected rs1=1, got %d", got)
	}
	if got := inst.Attributes.RegOrZero(inst.Attributes.Rs2); got != 2 {
		t.Errorf("expected rs2=2, got %d", got)
	}
	if !inst.Controls.RegWrite {
		t.Error("expected RegWrite=true for add")
	}
}

func TestDecodeTypeI_Arithmetic(t *testing.T) {
	// addi x5, x1, -1
	raw := encI(0xfff, 1, 0, 5, 0x13)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.OpImm {
		t.Errorf("expected OpImm, got %v", inst.Opcode)
	}
	if inst.Attributes.Imm == nil || int32(*inst.Attributes.Imm) != -1 {
		t.Errorf("expected sign-extended imm -1, got %v", inst.Attributes.Imm)
	}
}

func TestDecodeTypeI_Shift(t *testing.T) {
	// slli x5, x1, 7
	raw := encI(7, 1, 0b001, 5, 0x13)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Attributes.Imm == nil || *inst.Attributes.Imm != 7 {
		t.Errorf("expected shamt=7 (unextended), got %v", inst.Attributes.Imm)
	}
}

func TestDecodeTypeI_Load(t *testing.T) {
	// lw x5, 4(x1)
	raw := encI(4, 1, 0b010, 5, 0x03)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.Load {
		t.Errorf("expected Load, got %v", inst.Opcode)
	}
	if !inst.Controls.MemRead {
		t.Error("expected MemRead=true")
	}
	if !inst.Controls.RegWrite {
		t.Error("expected RegWrite=true")
	}
}

func TestDecodeTypeI_Jalr(t *testing.T) {
	// jalr x1, 0(x2)
	raw := encI(0, 2, 0, 1, 0x67)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.Jalr {
		t.Errorf("expected Jalr, got %v", inst.Opcode)
	}
}

func TestDecodeTypeS_Store(t *testing.T) {
	// sw x2, 8(x1) -> imm=8, rs2=2, rs1=1
	raw := uint32((8&0xfe0)<<20 | 2<<20 | 1<<15 | 0b010<<12 | (8&0x1f)<<7 | 0x23)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.Store {
		t.Errorf("expected Store, got %v", inst.Opcode)
	}
	if !inst.Controls.MemWrite {
		t.Error("expected MemWrite=true")
	}
	if inst.Controls.RegWrite {
		t.Error("expected RegWrite=false for store")
	}
	if inst.Attributes.Imm == nil || int32(*inst.Attributes.Imm) != 8 {
		t.Errorf("expected imm=8, got %v", inst.Attributes.Imm)
	}
}

func TestDecodeTypeB_Branch(t *testing.T) {
	// beq x1, x2, 0 (imm=0)
	raw := encR(0, 2, 1, 0b000, 0, 0x63)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.Branch {
		t.Errorf("expected Branch, got %v", inst.Opcode)
	}
	if !inst.Controls.Branch {
		t.Error("expected Branch=true")
	}
	if inst.Controls.RegWrite {
		t.Error("expected RegWrite=false for branch")
	}
}

func TestDecodeTypeU_Lui(t *testing.T) {
	// lui x5, 0x12345
	raw := (uint32(0x12345) << 12) | (5 << 7) | 0x37
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.Lui {
		t.Errorf("expected Lui, got %v", inst.Opcode)
	}
	if inst.Attributes.Imm == nil || *inst.Attributes.Imm != 0x12345000 {
		t.Errorf("expected imm=0x12345000, got %#x", *inst.Attributes.Imm)
	}
}

func TestDecodeTypeJ_Jal(t *testing.T) {
	// jal x1, 0
	raw := uint32((1 << 7) | 0x6f)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.Jal {
		t.Errorf("expected Jal, got %v", inst.Opcode)
	}
	if !inst.Controls.RegWrite {
		t.Error("expected RegWrite=true for jal")
	}
}

func TestDecodeSystem_Ecall(t *testing.T) {
	raw := uint32(0x73)
	inst, err := isa.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inst.Opcode != isa.System {
		t.Errorf("expected System, got %v", inst.Opcode)
	}
	if got := inst.Attributes.RegOrZero(inst.Attributes.Rs2); got != 17 {
		t.Errorf("expected Rs2=a7(17), got %d", got)
	}
	if inst.Controls.AluSrc != isa.AluSrcReg {
		t.Error("expected AluSrc=AluSrcReg for ecall so a7 resolves from the register file")
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	if _, err := isa.Decode(0x7f); err == nil {
		t.Error("expected error decoding unknown opcode")
	}
}

func TestDefaultInstructionIsNop(t *testing.T) {
	inst := isa.DefaultInstruction()
	if inst.Opcode != isa.OpImm {
		t.Errorf("expected NOP to decode as OpImm (addi), got %v", inst.Opcode)
	}
	if inst.Attributes.Imm == nil || *inst.Attributes.Imm != 0 {
		t.Errorf("expected NOP imm=0, got %v", inst.Attributes.Imm)
	}
}

func TestLoadHazard(t *testing.T) {
	// lw x1, 0(x0)
	load := isa.MustDecode(encI(0, 0, 0b010, 1, 0x03))
	// add x2, x1, x1 -- reads x1, which load is about to write
	consumer := isa.MustDecode(encR(0, 1, 1, 0, 2, 0x33))
	if !isa.LoadHazard(load, consumer) {
		t.Error("expected load hazard between load-x1 and consumer reading x1")
	}

	// add x2, x3, x3 -- doesn't read x1
	noHazard := isa.MustDecode(encR(0, 3, 3, 0, 2, 0x33))
	if isa.LoadHazard(load, noHazard) {
		t.Error("expected no load hazard when consumer doesn't read the loaded register")
	}
}
