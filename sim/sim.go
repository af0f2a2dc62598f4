// Package sim wires together the ELF loader, CPU state, storage
// hierarchy, branch predictor and datapath drivers into a single run,
// and computes the CPI/AMAT report emitted at the end of it.
package sim

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"rv32isim/cpu"
	"rv32isim/elf"
	"rv32isim/hierarchy"
	"rv32isim/pipeline"
	"rv32isim/predictor"
	"rv32isim/simerr"
	"rv32isim/singlecycle"
	"rv32isim/syscall"
)

const (
	defaultStackBase = 0x80000000
	defaultStackSize = 0x00400000
)

// Report is the CPI/AMAT summary printed (and returned) at the end of
// a run.
type Report struct {
	InstructionCount int32
	CycleCountBase   int32
	CycleCount       int32
	CycleCountWorst  int32
	CPIIdeal         float64
	CPI              float64
	CPIWorst         float64
	Ratio            float64
	AMAT             float64
}

// Run loads elfPath, executes it under policy against a default
// three-level inclusive hierarchy, and returns the resulting report.
func Run(elfPath string, policy cpu.Policy) (Report, error) {
	prog, err := elf.Load(elfPath)
	if err != nil {
		return Report{}, err
	}

	state := cpu.New(policy)
	state.PC = cpu.NewRegister(prog.Entry)
	state.StackBase = defaultStackBase
	state.StackSize = defaultStackSize

	mem := hierarchy.DefaultInclusive()

	if err := elf.SetStack(mem, state.StackBase, state.StackSize); err != nil {
		return Report{}, err
	}
	if err := elf.LoadIntoMMU(prog, mem); err != nil {
		return Report{}, err
	}

	guestIO := syscall.IO{In: bufio.NewReader(os.Stdin), Out: os.Stdout}

	var exitPC uint32
	switch policy.Implement {
	case cpu.SingleCycle:
		exitPC, err = singlecycle.Run(state, mem, guestIO)
	default:
		pred := predictor.New(policy.Heuristic)
		exitPC, err = pipeline.Run(state, mem, pred, guestIO)
	}
	if err != nil {
		return Report{}, err
	}

	if err := mem.VerifyCoherence(); err != nil {
		return Report{}, simerr.NewExecutionError(exitPC, "storage hierarchy invariant violated: "+err.Error())
	}

	report := buildReport(state, mem)
	if policy.History {
		printHistory(os.Stderr, report)
	}
	return report, nil
}

func buildReport(state *cpu.State, mem *hierarchy.Hierarchy) Report {
	instCount := state.History.InstCount
	base := state.History.CycleCount
	cycleCount := base + state.History.MemStallCount
	cycleCountWorst := base + mem.TotalWorstPenalty

	r := Report{
		InstructionCount: instCount,
		CycleCountBase:   base,
		CycleCount:       cycleCount,
		CycleCountWorst:  cycleCountWorst,
		AMAT:             mem.GetAMAT(),
	}
	if instCount > 0 {
		r.CPIIdeal = float64(base) / float64(instCount)
		r.CPI = float64(cycleCount) / float64(instCount)
		r.CPIWorst = float64(cycleCountWorst) / float64(instCount)
	}
	if r.CPI != 0 {
		r.Ratio = r.CPIWorst / r.CPI
	}
	return r
}

func printHistory(w io.Writer, r Report) {
	fmt.Fprintf(w, "instructions executed: %d\n", r.InstructionCount)
	fmt.Fprintf(w, "cpi ideal/actual/worst: %.3f / %.3f / %.3f\n", r.CPIIdeal, r.CPI, r.CPIWorst)
	fmt.Fprintf(w, "amat: %.3f\n", r.AMAT)
}
