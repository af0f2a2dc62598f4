package main

import (
	"flag"
	"fmt"
	"os"

	"rv32isim/config"
	"rv32isim/cpu"
	"rv32isim/predictor"
	"rv32isim/sim"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var (
		showVersion    = flag.Bool("version", false, "Show version information")
		showHelp       = flag.Bool("help", false, "Show help information")
		historyMode    = flag.Bool("history", cfg.Execution.EnableHistory, "Print instruction/CPI/AMAT history to stderr")
		implementation = flag.String("i", cfg.Execution.Implementation, "Datapath: P (pipelined) or S (single-cycle)")
		heuristic      = flag.String("p", cfg.Execution.Heuristic, "Branch prediction: BP (buffered) or ANT (always-not-taken)")
		verboseMode    = flag.Bool("v", cfg.Execution.Verbose, "Verbose output")
		maxCycles      = flag.Uint64("max-cycles", cfg.Execution.MaxCycles, "Maximum cycles before a fatal execution error")
	)

	flag.StringVar(implementation, "implementation", cfg.Execution.Implementation, "Datapath: P (pipelined) or S (single-cycle)")
	flag.StringVar(heuristic, "prediction", cfg.Execution.Heuristic, "Branch prediction: BP (buffered) or ANT (always-not-taken)")
	flag.BoolVar(verboseMode, "verbose", cfg.Execution.Verbose, "Verbose output")

	flag.Parse()

	if *showVersion {
		fmt.Printf("rv32isim %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp || flag.NArg() == 0 {
		printHelp()
		if flag.NArg() == 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	elfFile := flag.Arg(0)
	if _, err := os.Stat(elfFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", elfFile)
		os.Exit(1)
	}

	impl, err := parseImplementation(*implementation)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	heur, err := parseHeuristic(*heuristic)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	policy := cpu.Policy{
		Verbose:   *verboseMode,
		Implement: impl,
		History:   *historyMode,
		Heuristic: heur,
		MaxCycles: *maxCycles,
	}

	if *verboseMode {
		fmt.Printf("Loading ELF: %s\n", elfFile)
	}

	report, err := sim.Run(elfFile, policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Instructions executed: %d\n", report.InstructionCount)
		fmt.Printf("CPI ideal/actual/worst: %.3f / %.3f / %.3f\n", report.CPIIdeal, report.CPI, report.CPIWorst)
	}
}

func parseImplementation(s string) (cpu.Implementation, error) {
	switch s {
	case "P", "p", "pipelined":
		return cpu.Pipelined, nil
	case "S", "s", "single-cycle":
		return cpu.SingleCycle, nil
	default:
		return 0, fmt.Errorf("unknown implementation %q: expected P or S", s)
	}
}

func parseHeuristic(s string) (predictor.Heuristic, error) {
	switch s {
	case "BP", "bp", "buffered":
		return predictor.BufferedPrediction, nil
	case "ANT", "ant", "always-not-taken":
		return predictor.AlwaysNotTaken, nil
	default:
		return 0, fmt.Errorf("unknown prediction heuristic %q: expected BP or ANT", s)
	}
}

func printHelp() {
	fmt.Printf(`rv32isim %s

Usage: rv32isim [options] <elf-file>

Options:
  -help              Show this help message
  -version           Show version information
  -history           Print instruction/CPI/AMAT history to stderr
  -i P|S             Datapath: P=pipelined (default), S=single-cycle (alias -implementation)
  -p BP|ANT          Branch prediction: BP=buffered (default), ANT=always-not-taken (alias -prediction)
  -v                 Verbose output (alias -verbose)
  -max-cycles N      Maximum cycles before a fatal execution error (default: %d)

Examples:
  rv32isim program.elf
  rv32isim -i S -history program.elf
  rv32isim -p ANT -v program.elf

For more information, see the README.md file.
`, Version, 1000000)
}
