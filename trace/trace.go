// Package trace parses memory-access trace files and replays them
// through a storage hierarchy, used by the cache-bench harness to
// measure AMAT independent of any CPU datapath.
package trace

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"rv32isim/hierarchy"
	"rv32isim/simerr"
)

// Op is one recorded access: a read or a write at an address.
type Op struct {
	Write   bool
	Address uint32
}

// FetchOperations parses a trace file of lines "<r|w> 0x<hex>",
// skipping blank lines.
func FetchOperations(path string) ([]Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, simerr.WrapElfLoadError(path, err)
	}
	defer f.Close()

	var ops []Op
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, parseError(path, lineNo, line)
		}
		var write bool
		switch fields[0] {
		case "r":
			write = false
		case "w":
			write = true
		default:
			return nil, parseError(path, lineNo, line)
		}
		if !strings.HasPrefix(fields[1], "0x") {
			return nil, parseError(path, lineNo, line)
		}
		addr, err := strconv.ParseUint(fields[1][2:], 16, 32)
		if err != nil {
			return nil, parseError(path, lineNo, line)
		}
		ops = append(ops, Op{Write: write, Address: uint32(addr)})
	}
	if err := scanner.Err(); err != nil {
		return nil, simerr.WrapElfLoadError(path, err)
	}
	return ops, nil
}

func parseError(path string, lineNo int, line string) error {
	return simerr.NewElfLoadError(path, fmt.Sprintf("malformed trace line %d: %q", lineNo, line))
}

// Run allocates a page for every address referenced in path up front,
// then replays each operation as a single-byte cache access, and
// returns the resulting AMAT.
func Run(h *hierarchy.Hierarchy, path string) (float64, error) {
	ops, err := FetchOperations(path)
	if err != nil {
		return 0, err
	}
	for _, op := range ops {
		h.MMU.AllocatePage(op.Address)
	}
	for _, op := range ops {
		if op.Write {
			if _, err := h.Set8(op.Address, 0); err != nil {
				return 0, err
			}
		} else {
			if _, _, err := h.Get8(op.Address); err != nil {
				return 0, err
			}
		}
	}
	return h.GetAMAT(), nil
}
