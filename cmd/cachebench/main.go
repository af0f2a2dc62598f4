// Command cachebench replays a memory-access trace file through each
// of the simulator's standard cache configurations and reports AMAT,
// reproducing the CSV shape used to compare caching strategies.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"

	"rv32isim/cache"
	"rv32isim/hierarchy"
	"rv32isim/trace"
)

func main() {
	var (
		traceFile  = flag.String("trace", "", "Path to the memory-access trace file (required)")
		outputFile = flag.String("out", "", "Output CSV path (default: stdout)")
	)
	flag.Parse()

	if *traceFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: cachebench -trace <file> [-out <file.csv>]")
		os.Exit(1)
	}

	rows, err := buildRows(*traceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile) // #nosec G304 -- user-specified output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	defer w.Flush()
	_ = w.Write([]string{"Policy", "AMAT"})
	for _, row := range rows {
		_ = w.Write([]string{row.policy, fmt.Sprintf("%.3f", row.amat)})
	}
}

type row struct {
	policy string
	amat   float64
}

func buildRows(tracePath string) ([]row, error) {
	var rows []row

	single := hierarchy.NewInclusive(singleLevelPolicies(), hierarchy.WriteBack, hierarchy.WriteAllocate, 100, false)
	amat, err := trace.Run(single, tracePath)
	if err != nil {
		return nil, err
	}
	rows = append(rows, row{"Single-level", amat})

	multiInclusive := hierarchy.DefaultInclusive()
	amat, err = trace.Run(multiInclusive, tracePath)
	if err != nil {
		return nil, err
	}
	rows = append(rows, row{"Multi-level inclusive", amat})

	withVC := hierarchy.NewInclusive(hierarchy.DefaultPolicies(), hierarchy.WriteBack, hierarchy.WriteAllocate, 100, true)
	amat, err = trace.Run(withVC, tracePath)
	if err != nil {
		return nil, err
	}
	rows = append(rows, row{"Multi-level inclusive with VC", amat})

	exclusive := hierarchy.DefaultExclusive()
	amat, err = trace.Run(exclusive, tracePath)
	if err != nil {
		return nil, err
	}
	rows = append(rows, row{"Multi-level exclusive", amat})

	return rows, nil
}

func singleLevelPolicies() []cache.Policy {
	return []cache.Policy{hierarchy.SingleLevelPolicy()}
}
