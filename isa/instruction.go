package isa

import "rv32isim/simerr"

// NOP is the encoding of ADDI x0, x0, 0.
const NOP uint32 = 0x13

// Attributes holds the field slices extracted from a raw word. A nil
// pointer means the field does not apply to this instruction's format
// (mirroring the source format's Option<u32> fields exactly, including
// for hazard-detection equality against another instruction's fields).
type Attributes struct {
	Opcode7 uint32
	Rs1     *uint32
	Rs2     *uint32
	Rd      *uint32
	Funct3  *uint32
	Funct7  *uint32
	Imm     *uint32
}

// RegOrZero returns the register index, or 0 (x0) if the field is absent.
func (a Attributes) RegOrZero(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

func u32p(v uint32) *uint32 { return &v }

// fieldsEqual mirrors Rust's Option<u32> equality: both present and
// equal values match; either absent makes the comparison false unless
// both are absent (which never arises for the call sites that use it).
func fieldsEqual(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Instruction is an immutable decoded record.
type Instruction struct {
	RawInst    uint32
	Opcode     Opcode
	Format     Format
	Function   Function
	Attributes Attributes
	Controls   Controls
}

// Decode parses a raw 32-bit word into an Instruction. Fails with
// InvalidInstructionError on an unknown opcode or funct3/funct7 combo.
func Decode(raw uint32) (Instruction, error) {
	opcode, ok := RawToOpcode(raw)
	if !ok {
		return Instruction{}, simerr.NewInvalidInstructionError(raw, 0, "unknown opcode")
	}
	format := OpcodeToFormat(opcode)

	attrs := parseAttributes(format, raw)

	funct3 := uint32(0)
	if attrs.Funct3 != nil {
		funct3 = *attrs.Funct3
	}
	bit30 := (raw & 0x40000000) >> 30

	function, ok := getFunction(opcode, funct3, bit30)
	if !ok {
		return Instruction{}, simerr.NewInvalidInstructionError(raw, 0, "invalid funct3/funct7 combination")
	}

	attrs.Imm = signExtendImm(opcode, attrs.Imm)

	return Instruction{
		RawInst:    raw,
		Opcode:     opcode,
		Format:     format,
		Function:   function,
		Attributes: attrs,
		Controls:   getControls(opcode, function),
	}, nil
}

// MustDecode decodes a word known to be well-formed (used for NOP).
func MustDecode(raw uint32) Instruction {
	inst, err := Decode(raw)
	if err != nil {
		panic(err)
	}
	return inst
}

// DefaultInstruction is a NOP-decoded instruction, used to initialize
// pipeline latches.
func DefaultInstruction() Instruction {
	return MustDecode(NOP)
}

func signExtendImm(opcode Opcode, imm *uint32) *uint32 {
	if imm == nil {
		return nil
	}
	shamt := uint(20)
	switch opcode {
	case Lui, AuiPc:
		shamt = 0
	case Jal:
		shamt = 12
	case Branch:
		shamt = 19
	}
	v := uint32(int32(*imm<<shamt) >> shamt)
	return &v
}

func parseAttributes(format Format, raw uint32) Attributes {
	switch format {
	case FormatR:
		return Attributes{
			Opcode7: getOpcode(raw),
			Rs1:     u32p(getRs1(raw)),
			Rs2:     u32p(getRs2(raw)),
			Rd:      u32p(getRd(raw)),
			Funct3:  u32p(getFunct3(raw)),
			Funct7:  u32p(getFunct7(raw)),
		}
	case FormatI:
		a := Attributes{
			Opcode7: getOpcode(raw),
			Rs1:     u32p(getRs1(raw)),
			Rd:      u32p(getRd(raw)),
			Funct3:  u32p(getFunct3(raw)),
		}
		if a.Opcode7 == 0x13 && (*a.Funct3 == 0b001 || *a.Funct3 == 0b101) {
			// Shift-immediate: the raw field is the shamt, not sign-extended.
			a.Imm = u32p(getRs2(raw))
		} else {
			a.Imm = u32p((raw & 0xfff00000) >> 20)
		}
		return a
	case FormatS:
		return Attributes{
			Opcode7: getOpcode(raw),
			Rs1:     u32p(getRs1(raw)),
			Rs2:     u32p(getRs2(raw)),
			Funct3:  u32p(getFunct3(raw)),
			Imm:     u32p(((raw & 0xfe000000) >> 20) | ((raw & 0xf80) >> 7)),
		}
	case FormatB:
		return Attributes{
			Opcode7: getOpcode(raw),
			Rs1:     u32p(getRs1(raw)),
			Rs2:     u32p(getRs2(raw)),
			Funct3:  u32p(getFunct3(raw)),
			Imm: u32p(((raw & 0x80000000) >> 19) |
				((raw & 0x80) << 4) |
				((raw & 0x7e000000) >> 20) |
				((raw & 0xf00) >> 7)),
		}
	case FormatU:
		return Attributes{
			Opcode7: getOpcode(raw),
			Rd:      u32p(getRd(raw)),
			Imm:     u32p(raw & 0xfffff000),
		}
	case FormatJ:
		return Attributes{
			Opcode7: getOpcode(raw),
			Rd:      u32p(getRd(raw)),
			Imm: u32p(((raw & 0x80000000) >> 11) |
				(raw & 0xff000) |
				((raw & 0x100000) >> 9) |
				((raw & 0x7fe00000) >> 20)),
		}
	case FormatSys:
		// a0, a7
		return Attributes{
			Opcode7: getOpcode(raw),
			Rs1:     u32p(10),
			Rs2:     u32p(17),
			Rd:      u32p(10),
		}
	default:
		return Attributes{Opcode7: getOpcode(raw)}
	}
}

func getOpcode(raw uint32) uint32 { return raw & 0x7f }
func getFunct3(raw uint32) uint32 { return (raw >> 12) & 0x7 }
func getRs1(raw uint32) uint32    { return (raw >> 15) & 0x1f }
func getRs2(raw uint32) uint32    { return (raw >> 20) & 0x1f }
func getRd(raw uint32) uint32     { return (raw >> 7) & 0x1f }
func getFunct7(raw uint32) uint32 { return (raw >> 25) & 0x7f }

// LoadHazard reports whether consumerFirst (an IF/ID-stage instruction)
// reads a register the producer (an ID/EX-stage instruction from an
// opcode class whose result is only known after MEM) is about to write.
func LoadHazard(producer, consumerFirst Instruction) bool {
	switch producer.Opcode {
	case Lui, AuiPc, Jal, Jalr, Load:
		return fieldsEqual(consumerFirst.Attributes.Rs1, producer.Attributes.Rd) ||
			fieldsEqual(consumerFirst.Attributes.Rs2, producer.Attributes.Rd)
	default:
		return false
	}
}
