// Package syscall implements the simulator's environment-call ABI:
// the handful of I/O and control operations a guest program reaches
// through ECALL, dispatched on the value of a7.
package syscall

import (
	"bufio"
	"fmt"
	"io"

	"rv32isim/hierarchy"
	"rv32isim/simerr"
)

// Call codes, read from a7 (op2) at the point of an ECALL.
const (
	PrintString = 0
	PrintChar   = 1
	PrintInt    = 2
	Exit        = 3
	ReadChar    = 4
	ReadInt     = 5
)

// IO abstracts the guest's console so tests can substitute buffers
// for os.Stdin/os.Stdout.
type IO struct {
	In  *bufio.Reader
	Out io.Writer
}

// Call dispatches one ECALL. op1 is the a0 argument, op2 is the a7
// call number; it returns the new a0 value to be written back by WB.
func Call(op1, op2 int32, mem *hierarchy.Hierarchy, io_ IO) (int32, error) {
	result := op1
	switch op2 {
	case PrintString:
		addr := uint32(op1)
		for {
			b, _, err := mem.Get8(addr)
			if err != nil {
				return 0, err
			}
			if b == 0 {
				break
			}
			fmt.Fprintf(io_.Out, "%c", b)
			addr++
		}
	case PrintChar:
		fmt.Fprintf(io_.Out, "%c", byte(op1))
	case PrintInt:
		fmt.Fprintf(io_.Out, "%d", op1)
	case Exit:
		// result already equals op1; nothing else to do.
	case ReadChar:
		b, err := io_.In.ReadByte()
		if err != nil {
			return 0, simerr.NewExecutionError(0, "syscall: failed to read char")
		}
		result = int32(b)
	case ReadInt:
		var v int32
		if _, err := fmt.Fscan(io_.In, &v); err != nil {
			return 0, simerr.NewExecutionError(0, "syscall: failed to read int")
		}
		result = v
	default:
		return 0, simerr.NewExecutionError(0, fmt.Sprintf("unknown system call %d", op2))
	}
	return result, nil
}
